// Package llm orchestrates calls to a local model-serving backend:
// generate/chat/embed/list/pull/delete/show, with retry, circuit
// breaking per model, a fallback preference ladder, and conversation
// trimming before every chat call.
package llm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/opencircuit/core/engine/domain"
	"github.com/opencircuit/core/pkg/fn"
	"github.com/opencircuit/core/pkg/resilience"
)

// DefaultRetry matches spec.md's backoff contract: 100ms base, factor 2
// (fn.Retry's built-in doubling), jitter, capped at 5 attempts.
var DefaultRetry = fn.RetryOpts{
	MaxAttempts: 5,
	InitialWait: 100 * time.Millisecond,
	MaxWait:     2 * time.Second,
	Jitter:      true,
}

// Options configures an Orchestrator.
type Options struct {
	// Models is the fallback preference ladder, most-preferred first.
	Models  []string
	Timeout time.Duration
	Retry   fn.RetryOpts
	Breaker resilience.BreakerOpts
}

// Orchestrator is the single entry point the rest of the module uses to
// talk to the model-serving backend.
type Orchestrator struct {
	backend Backend
	models  []string
	timeout time.Duration
	retry   fn.RetryOpts

	mu       sync.Mutex
	breakers map[string]*resilience.Breaker
	breakOpt resilience.BreakerOpts

	logger *slog.Logger
}

func New(backend Backend, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetry
	}
	if opts.Breaker.FailThreshold == 0 {
		opts.Breaker = resilience.DefaultBreakerOpts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		backend:  backend,
		models:   opts.Models,
		timeout:  opts.Timeout,
		retry:    opts.Retry,
		breakers: make(map[string]*resilience.Breaker),
		breakOpt: opts.Breaker,
		logger:   logger,
	}
}

func (o *Orchestrator) breakerFor(model string) *resilience.Breaker {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.breakers[model]
	if !ok {
		b = resilience.NewBreaker(o.breakOpt)
		o.breakers[model] = b
	}
	return b
}

// Generate completes prompt against the first healthy model in the
// fallback ladder.
func (o *Orchestrator) Generate(ctx context.Context, prompt string) (string, error) {
	return fallbackLadder(ctx, o, func(ctx context.Context, model string) (string, error) {
		return o.backend.Generate(ctx, model, prompt)
	})
}

// Chat completes a trimmed conversation against the fallback ladder.
// conversation is trimmed to maxMessages before the call, keeping the
// leading system message.
func (o *Orchestrator) Chat(ctx context.Context, conversation domain.Conversation, maxMessages int) (domain.Message, error) {
	trimmed := conversation.Trim(maxMessages)
	return fallbackLadder(ctx, o, func(ctx context.Context, model string) (domain.Message, error) {
		return o.backend.Chat(ctx, model, trimmed.Messages)
	})
}

// Embed embeds text with the first healthy model in the ladder,
// satisfying engine/embedcache.Embedder.
func (o *Orchestrator) Embed(ctx context.Context, text, model string) ([]float32, error) {
	models := o.models
	if model != "" {
		models = []string{model}
	}
	return fallbackLadderWith(ctx, o, models, func(ctx context.Context, model string) ([]float32, error) {
		return o.backend.Embed(ctx, model, text)
	})
}

func (o *Orchestrator) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.backend.ListModels(ctx)
}

func (o *Orchestrator) PullModel(ctx context.Context, model string) error {
	return o.backend.PullModel(ctx, model)
}

func (o *Orchestrator) DeleteModel(ctx context.Context, model string) error {
	return o.backend.DeleteModel(ctx, model)
}

func (o *Orchestrator) ShowModel(ctx context.Context, model string) (ModelDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.backend.ShowModel(ctx, model)
}

// GenerateStream streams a completion from the first healthy model in
// the ladder. Fallback is attempted before the first token is read;
// mid-stream failures are surfaced to the caller rather than retried,
// since a partial answer has already been emitted.
func (o *Orchestrator) GenerateStream(ctx context.Context, prompt string) <-chan StreamToken {
	for _, model := range o.models {
		if err := o.probe(ctx, model); err != nil {
			continue
		}
		return o.backend.GenerateStream(ctx, model, prompt)
	}
	out := make(chan StreamToken, 1)
	out <- StreamToken{Err: &Error{Kind: ModelUnavailable, Detail: "no model in fallback ladder is available"}}
	close(out)
	return out
}

// ChatStream streams a chat completion the same way GenerateStream does.
func (o *Orchestrator) ChatStream(ctx context.Context, conversation domain.Conversation, maxMessages int) <-chan StreamToken {
	trimmed := conversation.Trim(maxMessages)
	for _, model := range o.models {
		if err := o.probe(ctx, model); err != nil {
			continue
		}
		return o.backend.ChatStream(ctx, model, trimmed.Messages)
	}
	out := make(chan StreamToken, 1)
	out <- StreamToken{Err: &Error{Kind: ModelUnavailable, Detail: "no model in fallback ladder is available"}}
	close(out)
	return out
}

// probe is a cheap canary call used to pick a streaming model without
// committing to the full retry/breaker path a streaming response can't
// be rewound through.
func (o *Orchestrator) probe(ctx context.Context, model string) error {
	models, err := o.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		if m.Name == model {
			return nil
		}
	}
	return &Error{Kind: ModelUnavailable, Detail: model + " not reported by server"}
}

func fallbackLadder[T any](ctx context.Context, o *Orchestrator, call func(context.Context, string) (T, error)) (T, error) {
	return fallbackLadderWith(ctx, o, o.models, call)
}

func fallbackLadderWith[T any](ctx context.Context, o *Orchestrator, models []string, call func(context.Context, string) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for _, model := range models {
		v, err := callModel(ctx, o, model, call)
		if err == nil {
			return v, nil
		}
		lastErr = err
		var e *Error
		if errors.As(err, &e) && (e.Kind == ModelUnavailable || errors.Is(err, resilience.ErrCircuitOpen)) {
			o.logger.WarnContext(ctx, "model unavailable, trying next in fallback ladder", "model", model, "error", err)
			continue
		}
		o.logger.WarnContext(ctx, "model call failed, trying next in fallback ladder", "model", model, "error", err)
	}
	if lastErr == nil {
		lastErr = &Error{Kind: ModelUnavailable, Detail: "fallback ladder is empty"}
	}
	return zero, lastErr
}

// callModel runs call against model behind a timeout, circuit breaker
// and retry, auto-loading the model and retrying once on
// ModelUnavailable before giving up on it.
func callModel[T any](ctx context.Context, o *Orchestrator, model string, call func(context.Context, string) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	breaker := o.breakerFor(model)
	result := resilience.CallResult(breaker, ctx, func(ctx context.Context) fn.Result[T] {
		return fn.Retry(ctx, o.retry, func(ctx context.Context) fn.Result[T] {
			v, err := call(ctx, model)
			if err == nil {
				return fn.Ok(v)
			}
			var e *Error
			if errors.As(err, &e) && e.Kind == ModelUnavailable {
				if pullErr := o.backend.PullModel(ctx, model); pullErr == nil {
					if v2, err2 := call(ctx, model); err2 == nil {
						return fn.Ok(v2)
					}
				}
			}
			return fn.Err[T](err)
		})
	})
	return result.Unwrap()
}
