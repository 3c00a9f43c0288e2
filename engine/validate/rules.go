// Package validate implements the circuit validation engine: a fixed set of
// independent rules run in a stable order over a CircuitGraph.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opencircuit/core/engine/domain"
)

// Rule inspects a graph and returns zero or more findings. Rules never
// short-circuit each other — every rule always runs against the same
// input graph, regardless of what earlier rules found.
type Rule func(domain.CircuitGraph) []domain.Finding

// Rules runs in this exact order, matching the documented rule order. Every
// rule always runs; none of them short-circuit the others.
var Rules = []Rule{
	GroundReference,
	FloatingNode,
	DuplicateDesignator,
	ComponentValueRange,
	ShortCircuit,
	MissingPowerSource,
	NamingConflict,
}

const (
	ruleGroundReference     = "GroundReference"
	ruleFloatingNode        = "FloatingNode"
	ruleDuplicateDesignator = "DuplicateDesignator"
	ruleComponentValueRange = "ComponentValueRange"
	ruleShortCircuit        = "ShortCircuit"
	ruleMissingPowerSource  = "MissingPowerSource"
	ruleNamingConflict      = "NamingConflict"
)

func finding(rule string, severity domain.Severity, element, format string, args ...any) domain.Finding {
	return domain.Finding{
		Rule:     rule,
		Severity: severity,
		Element:  element,
		Message:  fmt.Sprintf("%s: %s", rule, fmt.Sprintf(format, args...)),
	}
}

// isGround reports whether n is the ground net, either by its canonical
// name "0" or its alias "GND" (case-insensitive).
func isGround(n domain.NodeId) bool {
	return n == "0" || strings.EqualFold(string(n), "GND")
}

// GroundReference requires at least one element to connect to the ground
// net, named "0" or aliased "GND".
func GroundReference(g domain.CircuitGraph) []domain.Finding {
	for _, e := range g.Elements {
		for _, n := range e.Nodes {
			if isGround(n) {
				return nil
			}
		}
	}
	return []domain.Finding{finding(ruleGroundReference, domain.SeverityError, "", "circuit has no connection to ground node \"0\"")}
}

// FloatingNode requires every non-ground node to appear on at least two
// distinct elements; a node touched by only one element can't carry current
// anywhere and is floating.
func FloatingNode(g domain.CircuitGraph) []domain.Finding {
	degree := make(map[domain.NodeId]int)
	for _, e := range g.Elements {
		seen := make(map[domain.NodeId]bool)
		for _, n := range e.Nodes {
			if !seen[n] {
				degree[n]++
				seen[n] = true
			}
		}
	}

	var violators []domain.NodeId
	for node, d := range degree {
		if isGround(node) {
			continue
		}
		if d < 2 {
			violators = append(violators, node)
		}
	}
	sort.Slice(violators, func(i, j int) bool { return violators[i] < violators[j] })

	var findings []domain.Finding
	for _, node := range violators {
		findings = append(findings, finding(ruleFloatingNode, domain.SeverityError, "", "node %s is floating (connected to only %d element)", node, degree[node]))
	}
	return findings
}

// DuplicateDesignator flags elements sharing a designator. The parser
// already rejects this on text input; this rule catches it for graphs
// built programmatically.
func DuplicateDesignator(g domain.CircuitGraph) []domain.Finding {
	seen := make(map[string]bool)
	var findings []domain.Finding
	for _, e := range g.Elements {
		if seen[e.Designator] {
			findings = append(findings, finding(ruleDuplicateDesignator, domain.SeverityError, e.Designator, "designator %s used more than once", e.Designator))
		}
		seen[e.Designator] = true
	}
	return findings
}

// valueRange is the plausible [min, max] magnitude for a device kind's
// primary value, in SI base units.
type valueRange struct{ min, max float64 }

var plausibleRange = map[string]valueRange{
	"resistor":       {1e-3, 1e9},
	"capacitor":      {1e-15, 1e0},
	"inductor":       {1e-12, 1e3},
	"voltage_source": {-1e6, 1e6},
	"current_source": {-1e3, 1e3},
}

// ComponentValueRange warns when a component's value falls outside the
// plausible range for its kind.
func ComponentValueRange(g domain.CircuitGraph) []domain.Finding {
	var findings []domain.Finding
	for _, e := range g.Elements {
		r, ok := plausibleRange[e.Kind]
		if !ok {
			continue
		}
		if e.Value < r.min || e.Value > r.max {
			findings = append(findings, finding(ruleComponentValueRange, domain.SeverityWarning, e.Designator, "%s value %g outside plausible range [%g, %g]", e.Designator, e.Value, r.min, r.max))
		}
	}
	return findings
}

// samePair reports whether a and b name the same unordered pair of nodes.
func samePair(a, b []domain.NodeId) bool {
	if len(a) != 2 || len(b) != 2 {
		return false
	}
	return (a[0] == b[0] && a[1] == b[1]) || (a[0] == b[1] && a[1] == b[0])
}

// ShortCircuit flags two independent voltage sources connected to the same
// pair of nodes with different values — an unsatisfiable constraint that
// would force zero impedance to carry their difference.
func ShortCircuit(g domain.CircuitGraph) []domain.Finding {
	var sources []domain.CircuitElement
	for _, e := range g.Elements {
		if e.Kind == "voltage_source" && len(e.Nodes) == 2 {
			sources = append(sources, e)
		}
	}

	var findings []domain.Finding
	for i := 0; i < len(sources); i++ {
		for j := i + 1; j < len(sources); j++ {
			a, b := sources[i], sources[j]
			if samePair(a.Nodes, b.Nodes) && a.Value != b.Value {
				findings = append(findings, finding(ruleShortCircuit, domain.SeverityError, a.Designator,
					"%s and %s both connect nodes %s/%s with conflicting values %g and %g", a.Designator, b.Designator, a.Nodes[0], a.Nodes[1], a.Value, b.Value))
			}
		}
	}
	return findings
}

// MissingPowerSource requires at least one voltage or current source.
func MissingPowerSource(g domain.CircuitGraph) []domain.Finding {
	for _, e := range g.Elements {
		if e.Kind == "voltage_source" || e.Kind == "current_source" {
			return nil
		}
	}
	return []domain.Finding{finding(ruleMissingPowerSource, domain.SeverityWarning, "", "circuit has no stimulus (no voltage or current source)")}
}

// NamingConflict warns when two designators differ only in case (e.g. "R1"
// and "r1"), which is ambiguous to a case-insensitive netlist reader.
func NamingConflict(g domain.CircuitGraph) []domain.Finding {
	byLower := make(map[string][]string)
	for _, e := range g.Elements {
		lower := strings.ToLower(e.Designator)
		found := false
		for _, d := range byLower[lower] {
			if d == e.Designator {
				found = true
				break
			}
		}
		if !found {
			byLower[lower] = append(byLower[lower], e.Designator)
		}
	}

	var keys []string
	for lower, variants := range byLower {
		if len(variants) > 1 {
			keys = append(keys, lower)
		}
	}
	sort.Strings(keys)

	var findings []domain.Finding
	for _, lower := range keys {
		variants := append([]string{}, byLower[lower]...)
		sort.Strings(variants)
		findings = append(findings, finding(ruleNamingConflict, domain.SeverityWarning, variants[0], "designators %s differ only in case", strings.Join(variants, ", ")))
	}
	return findings
}
