// Package netlist implements the SPICE-subset netlist parser, in-memory
// model, and canonical emitter.
package netlist

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/opencircuit/core/engine/domain"
)

var nodeNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Parse reads a SPICE-subset netlist and builds a CircuitGraph. The first
// non-blank line is the title card, even when it begins with '*'; later
// lines beginning with '*' are comments. Lines beginning with '+'
// continue the previous physical line.
func Parse(src string) (domain.CircuitGraph, error) {
	lines := joinContinuations(strings.Split(src, "\n"))

	g := domain.CircuitGraph{Models: make(map[string]domain.ModelDef)}
	seenDesignators := make(map[string]bool)
	haveTitle := false

	for lineNo, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !haveTitle {
			g.Title = line
			haveTitle = true
			continue
		}
		if strings.HasPrefix(line, "*") {
			continue // comment
		}
		if strings.HasPrefix(line, ".") {
			upper := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(upper, ".MODEL"):
				model, err := parseModelLine(line, lineNo+1)
				if err != nil {
					return domain.CircuitGraph{}, err
				}
				g.Models[model.Name] = model
			case strings.HasPrefix(upper, ".END"):
				continue
			case strings.HasPrefix(upper, ".OP"),
				strings.HasPrefix(upper, ".DC"),
				strings.HasPrefix(upper, ".AC"),
				strings.HasPrefix(upper, ".TRAN"):
				g.Analyses = append(g.Analyses, parseAnalysisLine(line))
			default:
				return domain.CircuitGraph{}, &ParseError{Kind: UnknownDirective, Line: lineNo + 1, Detail: line}
			}
			continue
		}

		elem, err := parseElementLine(line, lineNo+1)
		if err != nil {
			return domain.CircuitGraph{}, err
		}
		if seenDesignators[strings.ToUpper(elem.Designator)] {
			return domain.CircuitGraph{}, &ParseError{Kind: DuplicateDesignator, Line: lineNo + 1, Detail: elem.Designator}
		}
		seenDesignators[strings.ToUpper(elem.Designator)] = true
		g.Elements = append(g.Elements, elem)
	}

	return g, nil
}

// joinContinuations merges "+"-prefixed continuation lines onto the
// preceding physical line, preserving line indices for error reporting by
// leaving an empty placeholder where a continuation used to be.
func joinContinuations(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		trimmed := strings.TrimLeft(l, " \t")
		if strings.HasPrefix(trimmed, "+") && len(out) > 0 {
			out[len(out)-1] = out[len(out)-1] + " " + strings.TrimSpace(trimmed[1:])
			out = append(out, "")
			continue
		}
		out = append(out, l)
	}
	return out
}

func parseElementLine(line string, lineNo int) (domain.CircuitElement, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return domain.CircuitElement{}, &ParseError{Kind: MalformedLine, Line: lineNo, Detail: line}
	}

	designator := fields[0]
	kind := kindOf(designator)
	if kind == "" {
		return domain.CircuitElement{}, &ParseError{Kind: MalformedLine, Line: lineNo, Detail: fmt.Sprintf("unknown designator %q", designator)}
	}

	rest := fields[1:]
	if kind == "subcircuit" {
		return parseSubcircuitLine(designator, rest, lineNo)
	}

	minNodes := minNodesFor[kind]
	if len(rest) < minNodes {
		return domain.CircuitElement{}, &ParseError{Kind: ArityMismatch, Line: lineNo, Detail: fmt.Sprintf("%s requires %d nodes, got %d", designator, minNodes, len(rest))}
	}

	nodes := make([]domain.NodeId, 0, minNodes)
	for _, n := range rest[:minNodes] {
		if !nodeNameRe.MatchString(n) {
			return domain.CircuitElement{}, &ParseError{Kind: InvalidNodeName, Line: lineNo, Detail: n}
		}
		nodes = append(nodes, domain.NodeId(n))
	}

	tail := rest[minNodes:]
	var value float64
	var modelName string
	if kind == "ic" {
		if len(tail) > 0 {
			modelName = tail[0]
		}
	} else if len(tail) > 0 {
		v, err := ParseEngineeringValue(tail[0])
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Line = lineNo
				return domain.CircuitElement{}, pe
			}
			return domain.CircuitElement{}, &ParseError{Kind: MalformedLine, Line: lineNo, Detail: tail[0]}
		}
		value = v
		if len(tail) > 1 {
			modelName = tail[1]
		}
	} else {
		return domain.CircuitElement{}, &ParseError{Kind: ArityMismatch, Line: lineNo, Detail: fmt.Sprintf("%s missing value", designator)}
	}

	return domain.CircuitElement{
		Designator: designator,
		Kind:       kind,
		Nodes:      nodes,
		Value:      value,
		ModelName:  modelName,
	}, nil
}

// parseSubcircuitLine parses an "X" element, which takes a variable number
// of nodes followed by the invoked subcircuit's name: "X<name> <node1>
// [<node2> ...] <subckt>". There is no value field.
func parseSubcircuitLine(designator string, rest []string, lineNo int) (domain.CircuitElement, error) {
	if len(rest) < 2 {
		return domain.CircuitElement{}, &ParseError{Kind: ArityMismatch, Line: lineNo, Detail: fmt.Sprintf("%s requires at least 1 node and a subcircuit name", designator)}
	}

	nodeTokens := rest[:len(rest)-1]
	nodes := make([]domain.NodeId, 0, len(nodeTokens))
	for _, n := range nodeTokens {
		if !nodeNameRe.MatchString(n) {
			return domain.CircuitElement{}, &ParseError{Kind: InvalidNodeName, Line: lineNo, Detail: n}
		}
		nodes = append(nodes, domain.NodeId(n))
	}

	return domain.CircuitElement{
		Designator: designator,
		Kind:       "subcircuit",
		Nodes:      nodes,
		ModelName:  rest[len(rest)-1],
	}, nil
}

// parseAnalysisLine splits a .OP/.DC/.AC/.TRAN directive into its kind
// keyword and verbatim argument tokens.
func parseAnalysisLine(line string) domain.AnalysisCommand {
	fields := strings.Fields(line)
	kind := strings.ToUpper(strings.TrimPrefix(fields[0], "."))
	return domain.AnalysisCommand{Kind: kind, Params: append([]string{}, fields[1:]...)}
}

// parseModelLine splits a .MODEL card into its name and type keyword but
// leaves the parameter list untouched: the body is stored verbatim so it
// round-trips byte-for-byte even when it carries non-numeric flags or
// vendor-specific parameters the netlist layer has no business interpreting.
func parseModelLine(line string, lineNo int) (domain.ModelDef, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return domain.ModelDef{}, &ParseError{Kind: ArityMismatch, Line: lineNo, Detail: line}
	}
	name := fields[1]
	devType := fields[2]
	rest := strings.Join(fields[3:], " ")
	if i := strings.Index(devType, "("); i >= 0 {
		// "D(IS=1n)": the parameter list starts inside the type token.
		rest = strings.TrimSpace(devType[i:] + " " + rest)
		devType = devType[:i]
	}

	body := strings.TrimSpace(strings.Trim(rest, "()"))

	return domain.ModelDef{Name: name, Type: devType, Body: body}, nil
}
