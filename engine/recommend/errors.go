package recommend

import "fmt"

type ErrorKind string

const (
	// CatalogUnavailable means C1 (the component store) could not be
	// reached; the whole request fails, there is no degraded path.
	CatalogUnavailable ErrorKind = "catalog_unavailable"
	// CategoryRequired means the LLM orchestrator is unavailable and the
	// requirement text did not name a recognizable category, so an
	// explicit category is required.
	CategoryRequired ErrorKind = "category_required"
)

type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string { return fmt.Sprintf("recommend: %s: %s", e.Kind, e.Detail) }
func (e *Error) Tag() string   { return string(e.Kind) }
