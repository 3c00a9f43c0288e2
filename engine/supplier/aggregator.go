// Package supplier aggregates one or more upstream parts-catalog sources
// behind a single, rate-limited, cached contract: search and details.
// Callers never see a raw transient failure from an upstream source — the
// aggregator retries and queues internally and only surfaces the terminal
// failure modes listed in Error.
package supplier

import (
	"context"

	"github.com/opencircuit/core/engine/domain"
)

// Source is one upstream parts catalog the Aggregator queries.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]domain.Component, error)
	Details(ctx context.Context, partNumber string) (*domain.Component, error)
}

// Aggregator is the contract the rest of the module consumes.
type Aggregator interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Component, error)
	Details(ctx context.Context, partNumber string) (*domain.Component, error)
}
