package simulate

import (
	"strings"
	"time"

	"github.com/opencircuit/core/engine/domain"
)

// rawVector is one named plot variable as read back from the engine,
// already copied into a Go-owned buffer.
type rawVector struct {
	name   string
	values []float64
}

// buildResult sorts raw engine output vectors into domain.SimulationResult:
// "v(<node>)" becomes NodeVoltages[node], "i(<designator>)" becomes
// BranchCurrents[designator], and the analysis's own sweep variable
// (time, frequency, or the DC source name) becomes TimeOrFreq.
func buildResult(analysisName string, sweepVar string, vectors []rawVector, warnings []string, elapsed time.Duration) domain.SimulationResult {
	res := domain.SimulationResult{
		Analysis:       analysisName,
		NodeVoltages:   make(map[string][]float64),
		BranchCurrents: make(map[string][]float64),
		Metadata:       domain.SimulationMetadata{TotalDuration: elapsed},
		Warnings:       warnings,
	}

	for _, v := range vectors {
		lower := strings.ToLower(v.name)
		switch {
		case strings.EqualFold(v.name, sweepVar):
			res.TimeOrFreq = v.values
		case strings.HasPrefix(lower, "v(") && strings.HasSuffix(lower, ")"):
			node := v.name[2 : len(v.name)-1]
			res.NodeVoltages[node] = v.values
		case strings.HasPrefix(lower, "i(") && strings.HasSuffix(lower, ")"):
			designator := v.name[2 : len(v.name)-1]
			res.BranchCurrents[designator] = v.values
		default:
			// Engine-internal bookkeeping vectors (e.g. "sweep_index")
			// that don't match either naming convention are dropped;
			// they carry no circuit meaning.
		}
	}

	return res
}
