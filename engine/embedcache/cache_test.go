package embedcache

import (
	"context"
	"errors"
	"testing"

	"github.com/opencircuit/core/engine/domain"
)

func TestCanonicalText_SortsSpecKeys(t *testing.T) {
	c := domain.Component{
		Category:     "resistor",
		PartNumber:   "RC0603-1K",
		Manufacturer: "TI",
		Description:  "chip resistor",
		Specifications: map[string]domain.SpecValue{
			"tolerance":  domain.NewNumberValue(0.01),
			"resistance": domain.NewNumberValue(1000),
		},
	}
	text := CanonicalText(c)
	wantOrder := "resistance=1000; tolerance=0.01"
	if got := text[len(text)-len(wantOrder):]; got != wantOrder {
		t.Fatalf("expected spec keys sorted ascending, got suffix %q", got)
	}
}

func TestFallbackEmbed_Deterministic(t *testing.T) {
	a := FallbackEmbed("resistor | RC0603-1K")
	b := FallbackEmbed("resistor | RC0603-1K")
	if len(a) != FallbackDimension {
		t.Fatalf("expected dimension %d, got %d", FallbackDimension, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected deterministic fallback embedding, differed at index %d", i)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 1, 0}
	if sim := CosineSimilarity(a, b); sim < 0.999 {
		t.Fatalf("expected identical vectors to have similarity ~1, got %v", sim)
	}
	if sim := CosineSimilarity(a, c); sim > 0.001 {
		t.Fatalf("expected orthogonal vectors to have similarity ~0, got %v", sim)
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewCache(3 * 4) // room for 3 float32s

	cache.Put("a", "m1", []float32{1}, false)
	cache.Put("b", "m1", []float32{1}, false)
	cache.Put("c", "m1", []float32{1}, false)

	// touch "a" so "b" becomes the least-recently-used entry
	cache.Get("a", "m1")
	cache.Put("d", "m1", []float32{1}, false)

	if _, _, ok := cache.Get("b", "m1"); ok {
		t.Fatal("expected b to have been evicted")
	}
	if _, _, ok := cache.Get("a", "m1"); !ok {
		t.Fatal("expected a to survive eviction")
	}
	if _, _, ok := cache.Get("d", "m1"); !ok {
		t.Fatal("expected d to be present")
	}
}

func TestCache_Flush_RefusesFallback(t *testing.T) {
	cache := NewCache(1 << 20)
	cache.Put("text", "m1", FallbackEmbed("text"), true)

	_, err := cache.Flush("text", "m1")
	if !errors.Is(err, ErrFallbackNotPersistable) {
		t.Fatalf("expected ErrFallbackNotPersistable, got %v", err)
	}
}

func TestCache_Flush_AllowsRealEmbedding(t *testing.T) {
	cache := NewCache(1 << 20)
	cache.Put("text", "m1", []float32{0.5, 0.5}, false)

	v, err := cache.Flush("text", "m1")
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(v) != 2 {
		t.Fatalf("expected vector to be returned, got %v", v)
	}
}

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s stubEmbedder) Embed(ctx context.Context, text, model string) ([]float32, error) {
	return s.vector, s.err
}

func TestService_FallsBackOnEmbedderError(t *testing.T) {
	svc := NewService(NewCache(1<<20), stubEmbedder{err: errors.New("orchestrator down")}, nil)

	v, err := svc.Embed(context.Background(), "some text", "nomic-embed-text")
	if err != nil {
		t.Fatalf("Embed should not surface embedder errors, got %v", err)
	}
	if len(v) != FallbackDimension {
		t.Fatalf("expected fallback dimension, got %d", len(v))
	}

	if _, err := svc.Flush("some text", "nomic-embed-text"); !errors.Is(err, ErrFallbackNotPersistable) {
		t.Fatalf("expected fallback vector to be unflushable, got %v", err)
	}
}

func TestService_CachesRealEmbedding(t *testing.T) {
	svc := NewService(NewCache(1<<20), stubEmbedder{vector: []float32{3, 4}}, nil)

	v, err := svc.Embed(context.Background(), "text", "m1")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	// L2-normalized [3,4] -> [0.6, 0.8]
	if v[0] < 0.59 || v[0] > 0.61 {
		t.Fatalf("expected normalized vector, got %v", v)
	}

	flushed, err := svc.Flush("text", "m1")
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if flushed[0] != v[0] {
		t.Fatalf("expected flushed vector to match cached vector")
	}
}
