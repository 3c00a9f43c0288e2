package netlist

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericPrefix matches the leading numeric portion of an engineering value:
// an optional sign, digits, an optional decimal point, and an optional
// exponent. Anything after is the suffix+unit tail.
var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// suffixScale maps a recognised engineering suffix (already matched
// longest-first) to its multiplier. MEG must be checked before M: a bare
// "M" means milli, "MEG" means mega — the only ambiguity in the SPICE
// suffix alphabet, and the one place this parser must not default to the
// friendlier "mega" reading.
var suffixOrder = []string{"MEG", "T", "G", "K", "M", "U", "N", "P", "F"}

var suffixScale = map[string]float64{
	"T":   1e12,
	"G":   1e9,
	"MEG": 1e6,
	"K":   1e3,
	"M":   1e-3,
	"U":   1e-6,
	"N":   1e-9,
	"P":   1e-12,
	"F":   1e-15,
}

// ParseEngineeringValue parses a SPICE-style engineering-notation value such
// as "10k", "2.2MEG", "100n", "4M7" is NOT supported (no IEC multiplier
// infix), "5" (bare number, scale 1). Trailing alphabetic unit text (e.g.
// the "F" in "10UF", the "OHM" in "10KOHM") is recognised and ignored. A
// suffix that doesn't match a known prefix, or unit text containing
// non-letters, is a MalformedLine error.
func ParseEngineeringValue(raw string) (float64, error) {
	m := numericPrefix.FindString(raw)
	if m == "" {
		return 0, &ParseError{Kind: MalformedLine, Detail: fmt.Sprintf("no numeric value in %q", raw)}
	}
	base, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, &ParseError{Kind: MalformedLine, Detail: fmt.Sprintf("bad number %q: %v", m, err)}
	}

	tail := raw[len(m):]
	if tail == "" {
		return base, nil
	}

	upper := strings.ToUpper(tail)
	for _, suf := range suffixOrder {
		if strings.HasPrefix(upper, suf) {
			unit := tail[len(suf):]
			if !isAlpha(unit) {
				return 0, &ParseError{Kind: MalformedLine, Detail: fmt.Sprintf("bad unit text %q in %q", unit, raw)}
			}
			scale := suffixScale[suf]
			if scale < 1 {
				// Divide by the exact power of ten instead of multiplying by
				// its inexact reciprocal, so "100n" is the same float64 as 100e-9.
				return base / math.Round(1/scale), nil
			}
			return base * scale, nil
		}
	}

	if isAlpha(tail) {
		// No recognised scale prefix, but pure unit text like "OHM" with no
		// suffix at all (e.g. "10OHM") — scale is 1.
		return base, nil
	}

	return 0, &ParseError{Kind: MalformedLine, Detail: fmt.Sprintf("unrecognised suffix %q in %q", tail, raw)}
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}

// FormatEngineeringValue renders v using the canonical suffix for its
// magnitude, chosen so the mantissa stays in [1, 1000). Used by Emit to
// make parse(emit(g)) == g hold without relying on the original literal's
// spelling.
func FormatEngineeringValue(v float64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	av := v
	if neg {
		av = -v
	}

	type tier struct {
		scale float64
		suf   string
	}
	tiers := []tier{
		{1e12, "T"}, {1e9, "G"}, {1e6, "MEG"}, {1e3, "K"},
		{1, ""}, {1e-3, "M"}, {1e-6, "U"}, {1e-9, "N"}, {1e-12, "P"}, {1e-15, "F"},
	}
	for _, t := range tiers {
		scaled := av / t.scale
		if t.scale < 1 {
			scaled = av * math.Round(1/t.scale)
		}
		if scaled >= 1 && scaled < 1000 {
			s := strconv.FormatFloat(scaled, 'g', -1, 64)
			if neg {
				s = "-" + s
			}
			return s + t.suf
		}
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	return s
}
