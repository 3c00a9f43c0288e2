package store

import (
	"context"

	"github.com/opencircuit/core/engine/domain"
	"github.com/opencircuit/core/pkg/repo"
)

// ComponentRepository adapts Store to the generic Repository contract so
// it can be composed with the rest of the module's generic pipeline and
// resilience helpers.
type ComponentRepository struct {
	store *Store
}

func NewComponentRepository(s *Store) *ComponentRepository {
	return &ComponentRepository{store: s}
}

var _ repo.Repository[domain.Component, domain.ComponentId] = (*ComponentRepository)(nil)

func (r *ComponentRepository) Get(ctx context.Context, id domain.ComponentId) (domain.Component, error) {
	return r.store.GetByID(ctx, id)
}

func (r *ComponentRepository) List(ctx context.Context, opts repo.ListOpts) ([]domain.Component, error) {
	category, _ := opts.Filter["category"].(string)
	if category != "" {
		return r.store.ByCategory(ctx, category, opts.Limit, opts.Offset)
	}
	query, _ := opts.Filter["query"].(string)
	if query != "" {
		results, err := r.store.Search(ctx, domain.ComponentSearchFilter{FreeText: query, Limit: opts.Limit})
		if err != nil {
			return nil, err
		}
		components := make([]domain.Component, len(results))
		for i, res := range results {
			components[i] = res.Component
		}
		return components, nil
	}
	return r.store.ByCategory(ctx, "", opts.Limit, opts.Offset)
}

func (r *ComponentRepository) Create(ctx context.Context, entity domain.Component) (domain.Component, error) {
	return r.store.Put(ctx, entity)
}

func (r *ComponentRepository) Update(ctx context.Context, entity domain.Component) (domain.Component, error) {
	return r.store.Put(ctx, entity)
}

func (r *ComponentRepository) Delete(ctx context.Context, id domain.ComponentId) error {
	return r.store.DeleteByID(ctx, id)
}
