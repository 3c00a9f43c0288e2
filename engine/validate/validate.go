package validate

import "github.com/opencircuit/core/engine/domain"

// Validate runs every rule against g, in order, and aggregates every
// finding into a single report. A rule that finds nothing contributes
// nothing; it is never skipped.
func Validate(g domain.CircuitGraph) domain.ValidationReport {
	var errors, warnings []domain.Finding
	for _, rule := range Rules {
		for _, f := range rule(g) {
			switch f.Severity {
			case domain.SeverityWarning:
				warnings = append(warnings, f)
			default:
				errors = append(errors, f)
			}
		}
	}

	return domain.ValidationReport{
		IsValid:  len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
		Metrics:  computeMetrics(g),
	}
}

// computeMetrics summarizes the graph independently of which rules fired —
// branch_count counts elements (each element is one branch in the circuit
// graph sense), node_count the distinct nets, and floating_nodes mirrors
// what FloatingNode would flag, for callers that want the count without
// re-running the rule.
func computeMetrics(g domain.CircuitGraph) domain.ValidationMetrics {
	nodes := g.Nodes()

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

	floating := 0
	for node, d := range degree {
		if isGround(node) {
			continue
		}
		if d < 2 {
			floating++
		}
	}

	return domain.ValidationMetrics{
		ComponentCount: len(g.Elements),
		NodeCount:      len(nodes),
		BranchCount:    len(g.Elements),
		FloatingNodes:  floating,
	}
}
