package embedcache

import (
	"context"
	"log/slog"

	"github.com/opencircuit/core/engine/domain"
)

// Embedder is the primary embedding path: the LLM orchestrator's embed
// endpoint. embedcache depends only on this narrow interface so it never
// imports engine/llm directly.
type Embedder interface {
	Embed(ctx context.Context, text, model string) ([]float32, error)
}

// Service wraps a Cache with an Embedder, falling back to a deterministic
// hash-mix vector when the embedder is unavailable.
type Service struct {
	cache    *Cache
	embedder Embedder
	logger   *slog.Logger
}

func NewService(cache *Cache, embedder Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: cache, embedder: embedder, logger: logger}
}

// EmbedComponent returns the embedding for c under model, serving from
// cache when possible and falling back to a hash-mix vector if the
// orchestrator call fails.
func (s *Service) EmbedComponent(ctx context.Context, c domain.Component, model string) ([]float32, error) {
	text := CanonicalText(c)
	return s.Embed(ctx, text, model)
}

// Embed returns the embedding for an arbitrary canonical text under
// model.
func (s *Service) Embed(ctx context.Context, text, model string) ([]float32, error) {
	if v, _, ok := s.cache.Get(text, model); ok {
		return v, nil
	}

	vector, err := s.embedder.Embed(ctx, text, model)
	if err != nil {
		s.logger.WarnContext(ctx, "embedding orchestrator unavailable, using fallback", "error", err)
		fallback := FallbackEmbed(text)
		s.cache.Put(text, model, fallback, true)
		return fallback, nil
	}

	vector = L2Normalize(vector)
	s.cache.Put(text, model, vector, false)
	return vector, nil
}

// Flush returns the vector for (text, model) suitable for persisting to
// durable storage, refusing fallback-sourced vectors.
func (s *Service) Flush(text, model string) ([]float32, error) {
	return s.cache.Flush(text, model)
}
