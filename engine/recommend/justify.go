package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/opencircuit/core/engine/domain"
)

// justify invokes the classifier (C3) once per top candidate to write a
// one-paragraph rationale. The LLM's output is only ever read as prose —
// it never reorders recs, which are already ranked by the time this runs.
func (s *Service) justify(ctx context.Context, req Request, recs []Recommendation) {
	for i := range recs {
		prompt := justificationPrompt(req, recs[i].Component)
		text, err := s.classifier.Generate(ctx, prompt)
		if err != nil {
			s.logger.WarnContext(ctx, "recommend: justification failed, leaving blank", "part_number", recs[i].Component.PartNumber, "error", err)
			continue
		}
		recs[i].Justification = strings.TrimSpace(text)
	}
}

func justificationPrompt(req Request, c domain.Component) string {
	var b strings.Builder
	b.WriteString("Requirement: ")
	b.WriteString(req.NaturalLanguageRequirement)
	b.WriteString("\n\nCandidate part:\n")
	fmt.Fprintf(&b, "- Part number: %s\n", c.PartNumber)
	fmt.Fprintf(&b, "- Manufacturer: %s\n", c.Manufacturer)
	fmt.Fprintf(&b, "- Category: %s\n", c.Category)
	fmt.Fprintf(&b, "- Description: %s\n", c.Description)
	for k, v := range c.Specifications {
		fmt.Fprintf(&b, "- %s: %s\n", k, specString(v))
	}
	b.WriteString("\nWrite a single paragraph explaining why this part fits the requirement.")
	return b.String()
}

func specString(v domain.SpecValue) string {
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
