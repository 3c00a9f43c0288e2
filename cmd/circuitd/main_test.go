package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opencircuit/core/engine/domain"
	"github.com/opencircuit/core/engine/recommend"
)

type stubCatalog struct {
	components []domain.Component
}

func (s *stubCatalog) Search(ctx context.Context, filter domain.ComponentSearchFilter) ([]domain.ComponentSearchResult, error) {
	out := make([]domain.ComponentSearchResult, len(s.components))
	for i, c := range s.components {
		out[i] = domain.ComponentSearchResult{Component: c, RelevanceScore: 1.0}
	}
	return out, nil
}

func (s *stubCatalog) ByCategory(ctx context.Context, category string, limit, offset int) ([]domain.Component, error) {
	return s.components, nil
}

type stubVectors struct{}

func (stubVectors) Embed(ctx context.Context, text, model string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (stubVectors) EmbedComponent(ctx context.Context, c domain.Component, model string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

type stubClassifier struct{ reply string }

func (c *stubClassifier) Generate(ctx context.Context, prompt string) (string, error) {
	return c.reply, nil
}

func newTestRecommendService() *recommend.Service {
	components := []domain.Component{
		{PartNumber: "LM317T", Manufacturer: "TI", Category: "Voltage Regulator"},
	}
	return recommend.New(
		&stubCatalog{components: components},
		stubVectors{},
		&stubClassifier{reply: "LM317T fits because it is adjustable."},
		nil,
		recommend.Options{EmbeddingModel: "test-model", Categories: []string{"Voltage Regulator"}},
		slog.Default(),
	)
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHandleRecommend_RejectsEmptyRequirement(t *testing.T) {
	svc := newTestRecommendService()
	body, _ := json.Marshal(recommendRequest{Requirement: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/recommend", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handleRecommend(svc, slog.Default())(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleRecommend_ReturnsRecommendations(t *testing.T) {
	svc := newTestRecommendService()
	body, _ := json.Marshal(recommendRequest{
		Requirement: "I need an adjustable voltage regulator for a 5V rail",
		Category:    "Voltage Regulator",
		MaxResults:  3,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/recommend", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handleRecommend(svc, slog.Default())(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result recommend.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Recommendations) == 0 {
		t.Fatal("expected at least one recommendation")
	}
	if result.Recommendations[0].Component.PartNumber != "LM317T" {
		t.Fatalf("unexpected top recommendation: %+v", result.Recommendations[0])
	}
}

func TestHandleValidateNetlist_ParsesAndValidates(t *testing.T) {
	netlistSrc := "V1 in 0 DC 5\nR1 in out 1k\nR2 out 0 1k\n.END\n"
	body, _ := json.Marshal(validateRequest{Netlist: netlistSrc})
	req := httptest.NewRequest(http.MethodPost, "/api/netlist/validate", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handleValidateNetlist(slog.Default())(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var report domain.ValidationReport
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHandleValidateNetlist_RejectsMalformedNetlist(t *testing.T) {
	// The first line is always the title card, so the malformed text goes
	// on the second line.
	body, _ := json.Marshal(validateRequest{Netlist: "bad\nnot a netlist at all ((("})
	req := httptest.NewRequest(http.MethodPost, "/api/netlist/validate", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handleValidateNetlist(slog.Default())(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleSimulate_ReturnsServiceUnavailableWithoutAdapter(t *testing.T) {
	body, _ := json.Marshal(simulateRequest{Netlist: "R1 in out 1k\n", Kind: "operating_point"})
	req := httptest.NewRequest(http.MethodPost, "/api/netlist/simulate", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handleSimulate(nil, 5*time.Second, slog.Default())(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with a nil adapter, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSimulateRequest_RejectsUnknownKind(t *testing.T) {
	req := simulateRequest{Kind: "bogus"}
	if _, err := req.toAnalysis(); err == nil {
		t.Fatal("expected an error for an unknown analysis kind")
	}
}
