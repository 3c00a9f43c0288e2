package recommend

import (
	"context"
	"testing"

	"github.com/opencircuit/core/engine/domain"
)

type stubCatalog struct {
	results []domain.Component
	err     error
}

func (s *stubCatalog) Search(ctx context.Context, filter domain.ComponentSearchFilter) ([]domain.ComponentSearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	results := s.results
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	out := make([]domain.ComponentSearchResult, len(results))
	for i, c := range results {
		out[i] = domain.ComponentSearchResult{Component: c, RelevanceScore: 1.0}
	}
	return out, nil
}

func (s *stubCatalog) ByCategory(ctx context.Context, category string, limit, offset int) ([]domain.Component, error) {
	return s.results, nil
}

// stubVectors assigns each component a synthetic embedding derived from
// its part number so cosine similarity is meaningful and deterministic.
type stubVectors struct{}

func (stubVectors) Embed(ctx context.Context, text, model string) ([]float32, error) {
	return vectorFor(text), nil
}

func (stubVectors) EmbedComponent(ctx context.Context, c domain.Component, model string) ([]float32, error) {
	return vectorFor(c.PartNumber), nil
}

func vectorFor(seed string) []float32 {
	v := make([]float32, 8)
	for i, r := range seed {
		v[i%8] += float32(r % 7)
	}
	v[0] += 1
	return v
}

type stubClassifier struct {
	reply string
	err   error
}

func (c *stubClassifier) Generate(ctx context.Context, prompt string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func part(partNumber, category string, price float64, priceKnown bool, stock int) domain.Component {
	return domain.Component{
		ID:           domain.NewComponentId(),
		PartNumber:   partNumber,
		Manufacturer: "Acme",
		Category:     category,
		Description:  "a " + category,
		Price:        domain.PriceInfo{UnitPrice: price, Known: priceKnown, Currency: "USD"},
		Availability: domain.Availability{StockQty: stock, Known: stock > 0},
	}
}

func TestRecommend_RanksAndReturnsResults(t *testing.T) {
	catalog := &stubCatalog{results: []domain.Component{
		part("R-1", "Resistor", 0.10, true, 5000),
		part("R-2", "Resistor", 0.20, true, 200),
	}}
	svc := New(catalog, stubVectors{}, &stubClassifier{reply: "Resistor"}, nil, Options{}, nil)

	res, err := svc.Recommend(context.Background(), Request{
		NaturalLanguageRequirement: "1k ohm resistor for a voltage divider",
		Category:                   "Resistor",
		Priority:                   PriorityBalanced,
		MaxResults:                 2,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(res.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(res.Recommendations))
	}
	if res.Degraded {
		t.Fatal("expected not degraded")
	}
	if res.Recommendations[0].Justification == "" {
		t.Fatal("expected a justification to have been filled in")
	}
}

func TestRecommend_BudgetFilterDropsOverBudgetParts(t *testing.T) {
	catalog := &stubCatalog{results: []domain.Component{
		part("R-cheap", "Resistor", 0.10, true, 100),
		part("R-expensive", "Resistor", 50.0, true, 100),
	}}
	svc := New(catalog, stubVectors{}, nil, nil, Options{}, nil)

	res, err := svc.Recommend(context.Background(), Request{
		NaturalLanguageRequirement: "resistor",
		Category:                   "Resistor",
		Budget:                     &Budget{Currency: "USD", MaxUnitPrice: 1.0},
		MaxResults:                 5,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	for _, r := range res.Recommendations {
		if r.Component.PartNumber == "R-expensive" {
			t.Fatal("expected over-budget part to be dropped")
		}
	}
}

func TestRecommend_DegradedWhenClassifierUnavailableAndCategoryUnset(t *testing.T) {
	catalog := &stubCatalog{results: []domain.Component{part("X-1", "Other", 1, true, 10)}}
	svc := New(catalog, stubVectors{}, nil, nil, Options{}, nil)

	res, err := svc.Recommend(context.Background(), Request{
		NaturalLanguageRequirement: "something vague with blinking lights",
		MaxResults:                 5,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded=true when the classifier is unavailable and no category is recognized")
	}
	for _, r := range res.Recommendations {
		if r.Justification != "" {
			t.Fatal("expected empty justification in degraded mode")
		}
	}
}

func TestRecommend_CatalogUnavailableFailsWholeRequest(t *testing.T) {
	catalog := &stubCatalog{err: &Error{Kind: CatalogUnavailable, Detail: "down"}}
	svc := New(catalog, stubVectors{}, &stubClassifier{reply: "Resistor"}, nil, Options{}, nil)

	_, err := svc.Recommend(context.Background(), Request{
		NaturalLanguageRequirement: "resistor",
		Category:                  "Resistor",
	})
	if err == nil {
		t.Fatal("expected an error when the catalog is unavailable")
	}
}

func TestRecommend_AlternativesAreSameCategoryAndSimilar(t *testing.T) {
	catalog := &stubCatalog{results: []domain.Component{
		part("R-1", "Resistor", 0.1, true, 100),
		part("R-1A", "Resistor", 0.1, true, 100),
		part("C-1", "Capacitor", 0.1, true, 100),
	}}
	svc := New(catalog, stubVectors{}, &stubClassifier{reply: "Resistor"}, nil, Options{}, nil)

	res, err := svc.Recommend(context.Background(), Request{
		NaturalLanguageRequirement: "resistor",
		Category:                  "Resistor",
		MaxResults:                1,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	for _, alt := range res.Recommendations[0].Alternatives {
		if alt.Category != "Resistor" {
			t.Fatalf("expected only same-category alternatives, got %s", alt.Category)
		}
	}
}
