package netlist

import "strings"

// designatorKind maps a designator's first letter to the device kind it
// names, the idiomatic dispatch table used throughout the pack for
// first-letter-keyed element types rather than a long switch statement.
var designatorKind = map[byte]string{
	'R': "resistor",
	'C': "capacitor",
	'L': "inductor",
	'D': "diode",
	'Q': "bjt",
	'M': "mosfet",
	'J': "jfet",
	'V': "voltage_source",
	'I': "current_source",
	'U': "ic",
	'X': "subcircuit",
}

// kindDesignator is the inverse of designatorKind: the canonical first
// letter for a given element kind. Emit does not use it; it writes each
// element's own Designator.
var kindDesignator = func() map[string]byte {
	out := make(map[string]byte, len(designatorKind))
	for letter, kind := range designatorKind {
		out[kind] = letter
	}
	return out
}()

// kindOf returns the device kind for a designator, or "" if its first
// letter isn't recognised.
func kindOf(designator string) string {
	if designator == "" {
		return ""
	}
	letter := strings.ToUpper(designator)[0]
	return designatorKind[letter]
}

// minNodesFor is the minimum node count each device kind requires; arity
// below this is an ArityMismatch. "subcircuit" (X) has variable arity and
// is parsed separately — see parseSubcircuitLine.
var minNodesFor = map[string]int{
	"resistor":       2,
	"capacitor":      2,
	"inductor":       2,
	"diode":          2,
	"bjt":            3,
	"mosfet":         4,
	"jfet":           3,
	"voltage_source": 2,
	"current_source": 2,
	"ic":             2,
}
