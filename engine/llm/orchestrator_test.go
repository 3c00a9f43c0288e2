package llm

import (
	"context"
	"testing"
	"time"

	"github.com/opencircuit/core/engine/domain"
	"github.com/opencircuit/core/pkg/fn"
	"github.com/opencircuit/core/pkg/resilience"
)

func fastOrchestrator(backend Backend, models ...string) *Orchestrator {
	return New(backend, Options{
		Models:  models,
		Timeout: time.Second,
		Retry:   fn.RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Jitter: false},
		Breaker: resilience.BreakerOpts{FailThreshold: 2, Timeout: 10 * time.Millisecond, HalfOpenMax: 1},
	}, nil)
}

func TestOrchestrator_Generate_UsesPrimaryModel(t *testing.T) {
	backend := NewStubBackend("qwen2.5:0.5b")
	o := fastOrchestrator(backend, "qwen2.5:0.5b", "llama3.1:8b")

	out, err := o.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != backend.Reply {
		t.Fatalf("expected stub reply, got %q", out)
	}
}

func TestOrchestrator_Generate_FallsBackWhenPrimaryUnavailable(t *testing.T) {
	backend := NewStubBackend("llama3.1:8b") // primary "qwen2.5:0.5b" is not loaded
	o := fastOrchestrator(backend, "qwen2.5:0.5b", "llama3.1:8b")

	out, err := o.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if out != backend.Reply {
		t.Fatalf("expected stub reply via fallback, got %q", out)
	}
}

func TestOrchestrator_Generate_AllModelsUnavailable(t *testing.T) {
	backend := NewStubBackend() // nothing available
	o := fastOrchestrator(backend, "qwen2.5:0.5b", "llama3.1:8b")

	_, err := o.Generate(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected an error when no fallback model is available")
	}
}

func TestOrchestrator_AutoLoadsModelAfterPull(t *testing.T) {
	backend := &pullOnDemandBackend{StubBackend: NewStubBackend()}
	o := fastOrchestrator(backend, "qwen2.5:0.5b")

	out, err := o.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected pull-then-retry to succeed, got %v", err)
	}
	if out != backend.Reply {
		t.Fatalf("expected stub reply, got %q", out)
	}
	if !backend.pulled {
		t.Fatal("expected PullModel to have been invoked")
	}
}

// pullOnDemandBackend reports a model as unavailable until PullModel is
// called, simulating the "load on demand" behavior of a real server.
type pullOnDemandBackend struct {
	*StubBackend
	pulled bool
}

func (b *pullOnDemandBackend) PullModel(ctx context.Context, model string) error {
	b.pulled = true
	b.Available[model] = true
	return nil
}

func TestOrchestrator_Chat_TrimsConversation(t *testing.T) {
	backend := NewStubBackend("qwen2.5:0.5b")
	o := fastOrchestrator(backend, "qwen2.5:0.5b")

	conv := domain.Conversation{Messages: []domain.Message{
		{Role: domain.RoleSystem, Content: "system"},
		{Role: domain.RoleUser, Content: "1"},
		{Role: domain.RoleAssistant, Content: "2"},
		{Role: domain.RoleUser, Content: "3"},
	}}

	msg, err := o.Chat(context.Background(), conv, 2)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if msg.Content != backend.Reply {
		t.Fatalf("expected stub reply, got %q", msg.Content)
	}
}

func TestOrchestrator_Embed(t *testing.T) {
	backend := NewStubBackend("nomic-embed-text")
	o := fastOrchestrator(backend, "nomic-embed-text")

	vec, err := o.Embed(context.Background(), "resistor", "")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) == 0 {
		t.Fatal("expected a non-empty embedding")
	}
}
