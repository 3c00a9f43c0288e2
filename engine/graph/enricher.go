package graph

import (
	"context"

	"github.com/opencircuit/core/engine/domain"
)

// Hydrator resolves a part number back to its full catalog record. The
// graph only stores a thin Node; engine/store remains the source of truth.
type Hydrator func(ctx context.Context, partNumber string) (domain.Component, error)

// Enricher adapts a GraphStore into the recommender's GraphEnricher
// interface, hydrating SIMILAR_TO neighbors into full domain.Component
// values via the supplied Hydrator.
type Enricher struct {
	store   *GraphStore
	hydrate Hydrator
}

// NewEnricher builds an Enricher backed by store, using hydrate to turn
// stored part numbers back into catalog components.
func NewEnricher(store *GraphStore, hydrate Hydrator) *Enricher {
	return &Enricher{store: store, hydrate: hydrate}
}

// Alternatives returns catalog components connected to partNumber by a
// SIMILAR_TO edge with weight >= minSimilarity, in descending similarity
// order. Hydration failures for an individual neighbor are skipped rather
// than failing the whole call, since the graph can drift from the catalog
// between reindex runs.
func (e *Enricher) Alternatives(ctx context.Context, partNumber string, minSimilarity float64, max int) ([]domain.Component, error) {
	neighbors, err := e.store.SimilarTo(ctx, partNumber, minSimilarity, max)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Component, 0, len(neighbors))
	for _, pn := range neighbors {
		c, err := e.hydrate(ctx, pn)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
