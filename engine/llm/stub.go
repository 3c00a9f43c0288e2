package llm

import (
	"context"
	"fmt"

	"github.com/opencircuit/core/engine/domain"
	"github.com/opencircuit/core/engine/embedcache"
)

// StubBackend is a deterministic in-memory Backend used by unit tests
// and by the recommender's degraded-mode tests. Available reports which
// models it will serve; anything else comes back ModelUnavailable.
type StubBackend struct {
	Available map[string]bool
	Reply     string
}

func NewStubBackend(available ...string) *StubBackend {
	set := make(map[string]bool, len(available))
	for _, m := range available {
		set[m] = true
	}
	return &StubBackend{Available: set, Reply: "stub response"}
}

func (s *StubBackend) checkAvailable(model string) error {
	if !s.Available[model] {
		return &Error{Kind: ModelUnavailable, Detail: fmt.Sprintf("model %q not loaded", model)}
	}
	return nil
}

func (s *StubBackend) Generate(ctx context.Context, model, prompt string) (string, error) {
	if err := s.checkAvailable(model); err != nil {
		return "", err
	}
	return s.Reply, nil
}

func (s *StubBackend) GenerateStream(ctx context.Context, model, prompt string) <-chan StreamToken {
	out := make(chan StreamToken, 2)
	if err := s.checkAvailable(model); err != nil {
		out <- StreamToken{Err: err}
		close(out)
		return out
	}
	out <- StreamToken{Content: s.Reply}
	out <- StreamToken{Done: true}
	close(out)
	return out
}

func (s *StubBackend) Chat(ctx context.Context, model string, messages []domain.Message) (domain.Message, error) {
	if err := s.checkAvailable(model); err != nil {
		return domain.Message{}, err
	}
	return domain.Message{Role: domain.RoleAssistant, Content: s.Reply}, nil
}

func (s *StubBackend) ChatStream(ctx context.Context, model string, messages []domain.Message) <-chan StreamToken {
	out := make(chan StreamToken, 2)
	if err := s.checkAvailable(model); err != nil {
		out <- StreamToken{Err: err}
		close(out)
		return out
	}
	out <- StreamToken{Content: s.Reply}
	out <- StreamToken{Done: true}
	close(out)
	return out
}

func (s *StubBackend) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if err := s.checkAvailable(model); err != nil {
		return nil, err
	}
	return embedcache.FallbackEmbed(text), nil
}

func (s *StubBackend) ListModels(ctx context.Context) ([]ModelInfo, error) {
	out := make([]ModelInfo, 0, len(s.Available))
	for name := range s.Available {
		out = append(out, ModelInfo{Name: name})
	}
	return out, nil
}

// PullModel loads nothing: a model outside Available stays unavailable and
// the call returns ModelUnavailable.
func (s *StubBackend) PullModel(ctx context.Context, model string) error {
	return s.checkAvailable(model)
}

func (s *StubBackend) DeleteModel(ctx context.Context, model string) error {
	delete(s.Available, model)
	return nil
}

func (s *StubBackend) ShowModel(ctx context.Context, model string) (ModelDetails, error) {
	if err := s.checkAvailable(model); err != nil {
		return ModelDetails{}, err
	}
	return ModelDetails{Modelfile: "FROM " + model}, nil
}
