// Package recommend ranks component catalog candidates against a
// natural-language requirement: lexical search, vector re-ranking,
// budget/priority adjustment, LLM-written justification, and
// similarity-based alternatives — the candidate order itself is never
// handed to the LLM to decide.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/opencircuit/core/engine/domain"
	"github.com/opencircuit/core/engine/embedcache"
	"github.com/opencircuit/core/engine/specnlp"
	"github.com/opencircuit/core/pkg/fn"
)

// CatalogSearcher is C1, the component store, as the recommender needs
// it: relevance-scored search and category browse.
type CatalogSearcher interface {
	Search(ctx context.Context, filter domain.ComponentSearchFilter) ([]domain.ComponentSearchResult, error)
	ByCategory(ctx context.Context, category string, limit, offset int) ([]domain.Component, error)
}

// VectorSource is C2/C3 together, narrowed to what the recommender needs
// to embed a requirement and a catalog component.
type VectorSource interface {
	Embed(ctx context.Context, text, model string) ([]float32, error)
	EmbedComponent(ctx context.Context, c domain.Component, model string) ([]float32, error)
}

// Classifier is C3, narrowed to a single free-form completion, used for
// the requirement-text category-classification prompt.
type Classifier interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GraphEnricher optionally supplies a persisted SIMILAR_TO alternatives
// graph (C9). Alternatives from the in-memory candidate pool are always
// computed; when nil, they are the only source.
type GraphEnricher interface {
	Alternatives(ctx context.Context, partNumber string, minSimilarity float64, max int) ([]domain.Component, error)
}

// Options configures a Service.
type Options struct {
	// NLex is the lexical-search candidate pool size before vector
	// re-ranking. Defaults to 64.
	NLex int
	// EmbeddingModel is passed through to VectorSource.Embed.
	EmbeddingModel string
	// Known categories, used to validate the LLM's classification output.
	Categories []string
}

func (o Options) withDefaults() Options {
	if o.NLex <= 0 {
		o.NLex = 64
	}
	return o
}

// Service implements the Component Recommender.
type Service struct {
	catalog    CatalogSearcher
	vectors    VectorSource
	classifier Classifier // nil when the LLM orchestrator is unavailable
	graph      GraphEnricher
	opts       Options
	logger     *slog.Logger
}

func New(catalog CatalogSearcher, vectors VectorSource, classifier Classifier, graph GraphEnricher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:    catalog,
		vectors:    vectors,
		classifier: classifier,
		graph:      graph,
		opts:       opts.withDefaults(),
		logger:     logger,
	}
}

type scoredCandidate struct {
	component domain.Component
	lexScore  float64
	vector    []float32
	combined  float64
}

// Recommend runs the full pipeline for req.
func (s *Service) Recommend(ctx context.Context, req Request) (Result, error) {
	if req.MaxResults <= 0 {
		req.MaxResults = 5
	}

	category, degraded, err := s.resolveCategory(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if s.classifier == nil {
		degraded = true
	}

	filter := domain.ComponentSearchFilter{FreeText: req.NaturalLanguageRequirement, Limit: s.opts.NLex}
	candidates, err := s.catalog.Search(ctx, filter)
	if err != nil {
		return Result{}, &Error{Kind: CatalogUnavailable, Detail: err.Error()}
	}
	candidates = filterCategory(candidates, category)
	candidates = filterExcluded(candidates, req.ExcludePartNumbers)

	scored := assignLexScores(candidates)
	if err := s.embedCandidates(ctx, req, scored); err != nil {
		return Result{}, &Error{Kind: CatalogUnavailable, Detail: err.Error()}
	}

	scored = applyBudgetFilter(scored, req.Budget)
	applyPriorityAdjustment(scored, req.Priority)

	sort.Slice(scored, func(i, j int) bool { return scored[i].combined > scored[j].combined })
	pool := scored

	if len(scored) > req.MaxResults {
		scored = scored[:req.MaxResults]
	}

	recs := make([]Recommendation, len(scored))
	for i, sc := range scored {
		recs[i] = Recommendation{Component: sc.component, CombinedScore: sc.combined}
	}

	if !degraded && s.classifier != nil {
		s.justify(ctx, req, recs)
	}

	s.attachAlternatives(ctx, scored, pool, recs)

	return Result{Recommendations: recs, Degraded: degraded}, nil
}

// resolveCategory implements step 1's category resolution, including the
// C3-unavailable degraded path.
func (s *Service) resolveCategory(ctx context.Context, req Request) (category string, degraded bool, err error) {
	if req.Category != "" {
		return req.Category, false, nil
	}

	nlCat, conf := specnlp.ClassifyCategory(req.NaturalLanguageRequirement)
	if conf >= 0.6 {
		return nlCat, false, nil
	}

	if s.classifier == nil {
		return "", true, nil
	}

	prompt := classificationPrompt(req.NaturalLanguageRequirement, s.opts.Categories)
	out, genErr := s.classifier.Generate(ctx, prompt)
	if genErr != nil {
		s.logger.WarnContext(ctx, "recommend: category classification failed, defaulting to Other", "error", genErr)
		return specnlp.OtherCategory, false, nil
	}
	cat := strings.TrimSpace(out)
	if !validCategory(cat, s.opts.Categories) {
		return specnlp.OtherCategory, false, nil
	}
	return cat, false, nil
}

func classificationPrompt(requirement string, categories []string) string {
	var b strings.Builder
	b.WriteString("Classify the following component requirement into exactly one category")
	if len(categories) > 0 {
		fmt.Fprintf(&b, " from this list: %s", strings.Join(categories, ", "))
	}
	b.WriteString(". Respond with only the category name.\n\nRequirement: ")
	b.WriteString(requirement)
	return b.String()
}

func validCategory(cat string, categories []string) bool {
	if cat == "" {
		return false
	}
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		if strings.EqualFold(c, cat) {
			return true
		}
	}
	return false
}

func filterCategory(in []domain.ComponentSearchResult, category string) []domain.ComponentSearchResult {
	if category == "" || category == specnlp.OtherCategory {
		return in
	}
	out := in[:0:0]
	for _, r := range in {
		if strings.EqualFold(r.Component.Category, category) {
			out = append(out, r)
		}
	}
	return out
}

func filterExcluded(in []domain.ComponentSearchResult, excluded []string) []domain.ComponentSearchResult {
	if len(excluded) == 0 {
		return in
	}
	ex := make(map[string]bool, len(excluded))
	for _, p := range excluded {
		ex[p] = true
	}
	out := in[:0:0]
	for _, r := range in {
		if !ex[r.Component.PartNumber] {
			out = append(out, r)
		}
	}
	return out
}

// assignLexScores carries C1's own relevance score through as the
// recommender's lex_score — step 2's combined score is defined over that
// real score, not a re-derived proxy.
func assignLexScores(candidates []domain.ComponentSearchResult) []*scoredCandidate {
	out := make([]*scoredCandidate, len(candidates))
	for i, r := range candidates {
		out[i] = &scoredCandidate{component: r.Component, lexScore: r.RelevanceScore}
	}
	return out
}

func (s *Service) embedCandidates(ctx context.Context, req Request, scored []*scoredCandidate) error {
	reqVec, err := s.vectors.Embed(ctx, req.NaturalLanguageRequirement, s.opts.EmbeddingModel)
	if err != nil {
		return err
	}

	results := fn.ParMapResult(scored, 8, func(sc *scoredCandidate) fn.Result[[]float32] {
		return fn.FromPair(s.vectors.EmbedComponent(ctx, sc.component, s.opts.EmbeddingModel))
	})
	for i, r := range results {
		vec, err := r.Unwrap()
		if err != nil {
			return err
		}
		scored[i].vector = vec
		cos := embedcache.CosineSimilarity(reqVec, vec)
		scored[i].combined = 0.5*scored[i].lexScore + 0.5*float64(cos)
	}
	return nil
}

func (s *Service) attachAlternatives(ctx context.Context, top []*scoredCandidate, pool []*scoredCandidate, recs []Recommendation) {
	for i := range recs {
		primary := top[i]
		var alts []domain.Component
		for _, other := range pool {
			if len(alts) >= 2 {
				break
			}
			if other.component.PartNumber == primary.component.PartNumber {
				continue
			}
			if !strings.EqualFold(other.component.Category, primary.component.Category) {
				continue
			}
			if embedcache.CosineSimilarity(primary.vector, other.vector) >= 0.85 {
				alts = append(alts, other.component)
			}
		}
		if s.graph != nil {
			if graphAlts, err := s.graph.Alternatives(ctx, primary.component.PartNumber, 0.85, 2); err == nil {
				alts = mergeAlternatives(alts, graphAlts, 2)
			}
		}
		recs[i].Alternatives = alts
	}
}

func mergeAlternatives(primary, extra []domain.Component, max int) []domain.Component {
	seen := make(map[string]bool, len(primary))
	for _, c := range primary {
		seen[c.PartNumber] = true
	}
	out := primary
	for _, c := range extra {
		if len(out) >= max {
			break
		}
		if seen[c.PartNumber] {
			continue
		}
		seen[c.PartNumber] = true
		out = append(out, c)
	}
	return out
}
