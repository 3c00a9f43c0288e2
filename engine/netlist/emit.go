package netlist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opencircuit/core/engine/domain"
)

// Emit renders a CircuitGraph back to SPICE-subset netlist text. Emit is
// canonical: elements are written in the order they appear in g.Elements,
// model cards are written sorted by name for determinism, analysis
// directives follow in g.Analyses order, and every value is rendered via
// FormatEngineeringValue — so Parse(Emit(g)) reproduces a graph equal to g
// even when g.Elements came from a differently-spelled literal ("0.01u" vs
// "10n").
func Emit(g domain.CircuitGraph) string {
	var b strings.Builder

	title := g.Title
	if title == "" {
		title = "untitled"
	}
	fmt.Fprintln(&b, title)

	for _, e := range g.Elements {
		fmt.Fprint(&b, e.Designator)
		for _, n := range e.Nodes {
			fmt.Fprint(&b, " ", string(n))
		}
		if e.Kind == "ic" || e.Kind == "subcircuit" {
			if e.ModelName != "" {
				fmt.Fprint(&b, " ", e.ModelName)
			}
		} else {
			fmt.Fprint(&b, " ", FormatEngineeringValue(e.Value))
			if e.ModelName != "" {
				fmt.Fprint(&b, " ", e.ModelName)
			}
		}
		fmt.Fprintln(&b)
	}

	names := make([]string, 0, len(g.Models))
	for n := range g.Models {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		m := g.Models[n]
		fmt.Fprintf(&b, ".MODEL %s %s(%s)\n", m.Name, m.Type, m.Body)
	}

	for _, a := range g.Analyses {
		fmt.Fprint(&b, ".", a.Kind)
		for _, p := range a.Params {
			fmt.Fprint(&b, " ", p)
		}
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, ".END")
	return b.String()
}
