package recommend

import "github.com/opencircuit/core/engine/domain"

// Priority tells the recommender which factor to weigh the ranking by.
type Priority string

const (
	PriorityCost         Priority = "cost"
	PriorityPerformance  Priority = "performance"
	PriorityAvailability Priority = "availability"
	PriorityBalanced     Priority = "balanced"
)

// Budget caps the unit price a recommended component may carry.
type Budget struct {
	Currency     string
	MaxUnitPrice float64
}

// Request is a natural-language component requirement plus its
// structured constraints.
type Request struct {
	NaturalLanguageRequirement string
	Category                   string
	PreferredSpecs             map[string]domain.SpecValue
	Budget                     *Budget
	Priority                   Priority
	ExcludePartNumbers         []string
	MaxResults                 int
}

// Recommendation is one ranked candidate in a Result.
type Recommendation struct {
	Component     domain.Component
	CombinedScore float64
	Justification string
	Alternatives  []domain.Component
}

// Result is the full response to a Request.
type Result struct {
	Recommendations []Recommendation
	// Degraded is set when the Service has no classifier (LLM orchestrator):
	// category inference by the classifier is skipped and justifications are
	// left empty. If no category was given and none is recognised in the
	// requirement text, candidates are not narrowed by category.
	Degraded bool
}
