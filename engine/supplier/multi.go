package supplier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/opencircuit/core/engine/domain"
	"github.com/opencircuit/core/pkg/fn"
	"github.com/opencircuit/core/pkg/resilience"
)

// Options configures a MultiSourceAggregator.
type Options struct {
	CacheTTL time.Duration
	Retry    fn.RetryOpts
	Limiter  resilience.LimiterOpts
}

var defaultOptions = Options{
	CacheTTL: 10 * time.Minute,
	Retry:    fn.RetryOpts{MaxAttempts: 3, InitialWait: 5 * time.Second, MaxWait: 30 * time.Second, Jitter: true},
	Limiter:  resilience.LimiterOpts{Rate: 5, Burst: 10},
}

// MultiSourceAggregator fans a search or details lookup out to every
// configured Source, rate limiting and retrying each internally, caching
// responses per (endpoint, query), and deduplicating results by part
// number across sources.
type MultiSourceAggregator struct {
	sources []Source
	cache   *responseCache
	retry   fn.RetryOpts
	limiter map[string]*resilience.Limiter
	logger  *slog.Logger
}

func New(sources []Source, opts Options, logger *slog.Logger) *MultiSourceAggregator {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultOptions.CacheTTL
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = defaultOptions.Retry
	}
	if opts.Limiter.Rate == 0 {
		opts.Limiter = defaultOptions.Limiter
	}
	if logger == nil {
		logger = slog.Default()
	}
	limiters := make(map[string]*resilience.Limiter, len(sources))
	for _, s := range sources {
		limiters[s.Name()] = resilience.NewLimiter(opts.Limiter)
	}
	return &MultiSourceAggregator{
		sources: sources,
		cache:   newResponseCache(opts.CacheTTL),
		retry:   opts.Retry,
		limiter: limiters,
		logger:  logger,
	}
}

// Search queries every configured source, deduplicating results by part
// number. A cached source contributes its cached results without a call.
// A source that keeps failing after its retries does not abort the whole
// call — its contribution is simply empty; the call fails only when no
// source answered.
func (a *MultiSourceAggregator) Search(ctx context.Context, query string, limit int) ([]domain.Component, error) {
	if query == "" {
		return nil, &Error{Kind: InvalidQuery, Detail: "query must not be empty"}
	}
	if limit <= 0 {
		limit = 20
	}

	seen := make(map[string]bool)
	var out []domain.Component
	var lastErr error
	anyOk := false

	for _, src := range a.sources {
		if cached, ok := a.cache.getSearch(src.Name(), query); ok {
			anyOk = true
			appendUnique(&out, &seen, cached, limit)
			continue
		}

		results, err := callSource(a, src, ctx, func(ctx context.Context) ([]domain.Component, error) {
			return src.Search(ctx, query, limit)
		})
		if err != nil {
			lastErr = err
			a.logger.WarnContext(ctx, "supplier source search failed", "source", src.Name(), "error", err)
			continue
		}
		anyOk = true
		a.cache.putSearch(src.Name(), query, results)
		appendUnique(&out, &seen, results, limit)
	}

	if !anyOk && lastErr != nil {
		return nil, lastErr
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Details looks up a single part number across sources, returning the
// first match. When no source has the part it returns a NotFound error,
// unless some source failed, in which case that failure is returned.
func (a *MultiSourceAggregator) Details(ctx context.Context, partNumber string) (*domain.Component, error) {
	if partNumber == "" {
		return nil, &Error{Kind: InvalidQuery, Detail: "part number must not be empty"}
	}

	var lastErr error
	for _, src := range a.sources {
		if cached, ok := a.cache.getDetail(src.Name(), partNumber); ok {
			if cached != nil {
				return cached, nil
			}
			continue
		}

		detail, err := callSource(a, src, ctx, func(ctx context.Context) (*domain.Component, error) {
			return src.Details(ctx, partNumber)
		})
		if err != nil {
			var e *Error
			if errors.As(err, &e) && e.Kind == NotFound {
				a.cache.putDetail(src.Name(), partNumber, nil)
				continue
			}
			lastErr = err
			a.logger.WarnContext(ctx, "supplier source details failed", "source", src.Name(), "error", err)
			continue
		}
		a.cache.putDetail(src.Name(), partNumber, detail)
		return detail, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &Error{Kind: NotFound, Detail: partNumber}
}

// callSource runs call against a source behind that source's rate
// limiter, waiting for a token rather than rejecting — callers must
// never observe a rate-limit error the aggregator did not already queue
// through — and retries transient failures with backoff.
func callSource[T any](a *MultiSourceAggregator, src Source, ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	limiter := a.limiter[src.Name()]
	result := fn.Retry(ctx, a.retry, func(ctx context.Context) fn.Result[T] {
		if err := limiter.Wait(ctx); err != nil {
			return fn.Err[T](err)
		}
		return fn.FromPair(call(ctx))
	})
	return result.Unwrap()
}

func appendUnique(out *[]domain.Component, seen *map[string]bool, in []domain.Component, limit int) {
	for _, c := range in {
		if len(*out) >= limit {
			return
		}
		if (*seen)[c.PartNumber] {
			continue
		}
		(*seen)[c.PartNumber] = true
		*out = append(*out, c)
	}
}
