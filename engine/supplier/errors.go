package supplier

import "fmt"

// ErrorKind tags an Error with its machine-readable category.
type ErrorKind string

const (
	Unreachable    ErrorKind = "unreachable"
	NotFound       ErrorKind = "not_found"
	InvalidQuery   ErrorKind = "invalid_query"
	QuotaExhausted ErrorKind = "quota_exhausted"
)

// Error is the error type returned by every Aggregator operation.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string { return fmt.Sprintf("supplier: %s: %s", e.Kind, e.Detail) }
func (e *Error) Tag() string   { return string(e.Kind) }
