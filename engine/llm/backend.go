package llm

import (
	"context"

	"github.com/opencircuit/core/engine/domain"
)

// ModelInfo describes one model reported by the inference server.
type ModelInfo struct {
	Name string
	Size int64
}

// ModelDetails is the Modelfile/parameters/template bundle returned by
// show_model.
type ModelDetails struct {
	Modelfile  string
	Parameters string
	Template   string
}

// StreamToken is one chunk of a streamed generate/chat response.
type StreamToken struct {
	Content string
	Done    bool
	Err     error
}

// Backend is the single model-serving variant point: LocalHTTP talks to a
// real inference server; Stub is deterministic and used in tests.
type Backend interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	GenerateStream(ctx context.Context, model, prompt string) <-chan StreamToken
	Chat(ctx context.Context, model string, messages []domain.Message) (domain.Message, error)
	ChatStream(ctx context.Context, model string, messages []domain.Message) <-chan StreamToken
	Embed(ctx context.Context, model, text string) ([]float32, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
	PullModel(ctx context.Context, model string) error
	DeleteModel(ctx context.Context, model string) error
	ShowModel(ctx context.Context, model string) (ModelDetails, error)
}
