package store

import (
	"encoding/binary"
	"math"

	"github.com/opencircuit/core/engine/domain"
)

// wireSpecValue is the JSON-serializable projection of domain.SpecValue.
// SpecValue's Kind is a Go-internal discriminant; the wire form spells it
// out so the stored JSON stays readable outside this package.
type wireSpecValue struct {
	Kind string  `json:"kind"`
	Text string  `json:"text,omitempty"`
	Num  float64 `json:"num,omitempty"`
	Bool bool    `json:"bool,omitempty"`
	Low  float64 `json:"low,omitempty"`
	High float64 `json:"high,omitempty"`
}

var specKindToWire = map[domain.SpecValueKind]string{
	domain.SpecText:    "text",
	domain.SpecNumber:  "number",
	domain.SpecBoolean: "boolean",
	domain.SpecRange:   "range",
}

var wireToSpecKind = map[string]domain.SpecValueKind{
	"text":    domain.SpecText,
	"number":  domain.SpecNumber,
	"boolean": domain.SpecBoolean,
	"range":   domain.SpecRange,
}

func specsToWire(specs map[string]domain.SpecValue) map[string]wireSpecValue {
	out := make(map[string]wireSpecValue, len(specs))
	for k, v := range specs {
		out[k] = wireSpecValue{
			Kind: specKindToWire[v.Kind],
			Text: v.Text,
			Num:  v.Num,
			Bool: v.Bool,
			Low:  v.Low,
			High: v.High,
		}
	}
	return out
}

func specsFromWire(wire map[string]wireSpecValue) map[string]domain.SpecValue {
	if wire == nil {
		return nil
	}
	out := make(map[string]domain.SpecValue, len(wire))
	for k, v := range wire {
		out[k] = domain.SpecValue{
			Kind: wireToSpecKind[v.Kind],
			Text: v.Text,
			Num:  v.Num,
			Bool: v.Bool,
			Low:  v.Low,
			High: v.High,
		}
	}
	return out
}

// encodeVector packs a float32 embedding into a little-endian byte blob,
// matching the component_vectors.vector BLOB column.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
