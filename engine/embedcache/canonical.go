package embedcache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opencircuit/core/engine/domain"
)

// CanonicalText builds the textual projection of a Component that is
// embedded and used as half of the cache key. Specification keys are
// sorted ascending so the projection — and therefore the embedding — is
// independent of map iteration order.
func CanonicalText(c domain.Component) string {
	keys := make([]string, 0, len(c.Specifications))
	for k := range c.Specifications {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	specParts := make([]string, 0, len(keys))
	for _, k := range keys {
		specParts = append(specParts, fmt.Sprintf("%s=%s", k, specValueString(c.Specifications[k])))
	}

	return fmt.Sprintf("%s | %s | %s | %s | %s",
		c.Category, c.PartNumber, c.Manufacturer, c.Description, strings.Join(specParts, "; "))
}

func specValueString(v domain.SpecValue) string {
	switch v.Kind {
	case domain.SpecText:
		return v.Text
	case domain.SpecNumber:
		return fmt.Sprintf("%g", v.Num)
	case domain.SpecBoolean:
		return fmt.Sprintf("%t", v.Bool)
	case domain.SpecRange:
		return fmt.Sprintf("%g..%g", v.Low, v.High)
	default:
		return ""
	}
}
