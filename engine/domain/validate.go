package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// injectionPatterns catch fragments that should never appear in free-text
// sent on to the LLM orchestrator as part of a prompt.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(DROP|DELETE|INSERT|UPDATE|ALTER|EXEC|UNION)\b.*\b(TABLE|FROM|INTO|SELECT|SET)\b`),
	regexp.MustCompile(`(?i)(--|;)\s*(DROP|DELETE|SELECT)`),
	regexp.MustCompile(`(?i)\$\{.*\}`),            // template injection
	regexp.MustCompile(`(?i)\{\s*"\$[a-z]+"\s*:`), // NoSQL/JSON operator injection
	regexp.MustCompile(`(?i)ignore (all )?(previous|prior) instructions`),
	regexp.MustCompile(`(?i)you are now`),
}

var profanityWords = map[string]bool{
	"fuck": true, "shit": true, "ass": true, "bitch": true,
	"damn": true, "cunt": true, "dick": true, "piss": true,
}

const minRequirementLength = 5

// ValidateRequirementText guards a natural_language_requirement string
// before it is ever interpolated into an LLM prompt: it must carry real
// content, must not look like an injection attempt, and must not contain
// profanity.
func ValidateRequirementText(text string) error {
	trimmed := strings.TrimSpace(text)

	if utf8.RuneCountInString(trimmed) < minRequirementLength {
		return NewValidationError("requirement", trimmed, ErrRequirementTooShort)
	}

	for _, pat := range injectionPatterns {
		if pat.MatchString(trimmed) {
			return NewValidationError("requirement", trimmed, ErrRequirementInjection)
		}
	}

	lower := strings.ToLower(trimmed)
	for _, word := range strings.Fields(lower) {
		cleaned := strings.Trim(word, ".,!?;:'\"()-")
		if profanityWords[cleaned] {
			return NewValidationError("requirement", cleaned, ErrRequirementProfanity)
		}
	}

	return nil
}

// ValidateCategory checks a category string against a known set. An empty
// known set accepts anything (used when the store hasn't been seeded yet).
func ValidateCategory(category string, known map[string]bool) error {
	if len(known) == 0 {
		return nil
	}
	if !known[strings.ToLower(category)] {
		return NewValidationError("category", category, ErrInvalidCategory)
	}
	return nil
}
