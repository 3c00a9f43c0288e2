package supplier

import (
	"context"
	"testing"
	"time"

	"github.com/opencircuit/core/engine/domain"
	"github.com/opencircuit/core/pkg/fn"
	"github.com/opencircuit/core/pkg/resilience"
)

// stubSource is an in-memory Source for tests, with knobs to force a
// given failure mode or count calls.
type stubSource struct {
	name    string
	results []domain.Component
	detail  *domain.Component
	err     error
	calls   int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(ctx context.Context, query string, limit int) ([]domain.Component, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func (s *stubSource) Details(ctx context.Context, partNumber string) (*domain.Component, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.detail, nil
}

func fastAggregator(sources []Source) *MultiSourceAggregator {
	return New(sources, Options{
		CacheTTL: time.Minute,
		Retry:    fn.RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond, Jitter: false},
		Limiter:  resilience.LimiterOpts{Rate: 1000, Burst: 1000},
	}, nil)
}

func comp(partNumber string) domain.Component {
	return domain.Component{ID: domain.NewComponentId(), PartNumber: partNumber, Category: "resistor"}
}

func TestAggregator_Search_DeduplicatesByPartNumber(t *testing.T) {
	a := &stubSource{name: "a", results: []domain.Component{comp("R-100"), comp("R-200")}}
	b := &stubSource{name: "b", results: []domain.Component{comp("R-200"), comp("R-300")}}

	agg := fastAggregator([]Source{a, b})
	out, err := agg.Search(context.Background(), "resistor", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 unique parts, got %d: %+v", len(out), out)
	}
}

func TestAggregator_Search_EmptyQueryIsInvalid(t *testing.T) {
	agg := fastAggregator(nil)
	_, err := agg.Search(context.Background(), "", 10)
	assertKind(t, err, InvalidQuery)
}

func TestAggregator_Search_RespectsLimit(t *testing.T) {
	a := &stubSource{name: "a", results: []domain.Component{comp("R-1"), comp("R-2"), comp("R-3")}}
	agg := fastAggregator([]Source{a})
	out, err := agg.Search(context.Background(), "resistor", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(out))
	}
}

func TestAggregator_Search_CachesPerEndpointAndQuery(t *testing.T) {
	a := &stubSource{name: "a", results: []domain.Component{comp("R-1")}}
	agg := fastAggregator([]Source{a})

	if _, err := agg.Search(context.Background(), "resistor", 10); err != nil {
		t.Fatalf("Search #1: %v", err)
	}
	if _, err := agg.Search(context.Background(), "resistor", 10); err != nil {
		t.Fatalf("Search #2: %v", err)
	}
	if a.calls != 1 {
		t.Fatalf("expected the second search to hit the cache, source was called %d times", a.calls)
	}
}

func TestAggregator_Search_OneSourceFailingDoesNotAbortOthers(t *testing.T) {
	bad := &stubSource{name: "bad", err: &Error{Kind: Unreachable, Detail: "down"}}
	good := &stubSource{name: "good", results: []domain.Component{comp("R-1")}}

	agg := fastAggregator([]Source{bad, good})
	out, err := agg.Search(context.Background(), "resistor", 10)
	if err != nil {
		t.Fatalf("expected the good source's results despite the bad source failing, got %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 result from the good source, got %d", len(out))
	}
}

func TestAggregator_Search_AllSourcesFailingSurfacesError(t *testing.T) {
	bad := &stubSource{name: "bad", err: &Error{Kind: Unreachable, Detail: "down"}}
	agg := fastAggregator([]Source{bad})
	_, err := agg.Search(context.Background(), "resistor", 10)
	assertKind(t, err, Unreachable)
}

func TestAggregator_Details_NotFoundAcrossAllSources(t *testing.T) {
	a := &stubSource{name: "a", err: &Error{Kind: NotFound, Detail: "R-404"}}
	agg := fastAggregator([]Source{a})
	_, err := agg.Details(context.Background(), "R-404")
	assertKind(t, err, NotFound)
}

func TestAggregator_Details_QuotaExhausted(t *testing.T) {
	a := &stubSource{name: "a", err: &Error{Kind: QuotaExhausted, Detail: "R-1"}}
	agg := fastAggregator([]Source{a})
	_, err := agg.Details(context.Background(), "R-1")
	assertKind(t, err, QuotaExhausted)
}

func TestAggregator_Details_EmptyPartNumberIsInvalid(t *testing.T) {
	agg := fastAggregator(nil)
	_, err := agg.Details(context.Background(), "")
	assertKind(t, err, InvalidQuery)
}

func TestAggregator_Details_FindsFirstMatchingSource(t *testing.T) {
	want := comp("R-1")
	a := &stubSource{name: "a", err: &Error{Kind: NotFound, Detail: "R-1"}}
	b := &stubSource{name: "b", detail: &want}

	agg := fastAggregator([]Source{a, b})
	got, err := agg.Details(context.Background(), "R-1")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if got == nil || got.PartNumber != "R-1" {
		t.Fatalf("expected R-1, got %+v", got)
	}
}

func assertKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error of kind %s, got nil", kind)
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *supplier.Error, got %T: %v", err, err)
	}
	if e.Kind != kind {
		t.Fatalf("expected kind %s, got %s", kind, e.Kind)
	}
}
