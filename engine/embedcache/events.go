package embedcache

import (
	"context"

	"github.com/opencircuit/core/pkg/eventbus"
	"github.com/nats-io/nats.go"
)

// SubscribeInvalidation drops the in-memory cache whenever another
// orchestrator instance publishes an embedding model change, keeping every
// instance sharing this NATS deployment invalidated in lockstep.
func (s *Service) SubscribeInvalidation(nc *nats.Conn) (*nats.Subscription, error) {
	return eventbus.Subscribe(nc, eventbus.SubjectEmbeddingModelChanged, func(ctx context.Context, ev eventbus.EmbeddingModelChanged) {
		s.logger.InfoContext(ctx, "embedding model changed, clearing cache",
			"previous_model", ev.PreviousModel, "current_model", ev.CurrentModel)
		s.cache.Clear()
	})
}
