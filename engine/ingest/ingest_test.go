package ingest

import (
	"context"
	"testing"

	"github.com/opencircuit/core/engine/domain"
)

func TestValidate_RejectsMissingFields(t *testing.T) {
	cases := []RawComponent{
		{Manufacturer: "TI", Category: "Voltage Regulator"},
		{PartNumber: "LM317T", Category: "Voltage Regulator"},
		{PartNumber: "LM317T", Manufacturer: "TI"},
	}
	for _, raw := range cases {
		if res := Validate(context.Background(), raw); res.IsOk() {
			t.Fatalf("expected error for %+v", raw)
		}
	}
}

func TestValidate_AcceptsCompleteRow(t *testing.T) {
	raw := RawComponent{PartNumber: "LM317T", Manufacturer: "TI", Category: "Voltage Regulator"}
	res := Validate(context.Background(), raw)
	if res.IsErr() {
		_, err := res.Unwrap()
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClassifySpec(t *testing.T) {
	cases := []struct {
		raw  string
		kind domain.SpecValueKind
	}{
		{"true", domain.SpecBoolean},
		{"No", domain.SpecBoolean},
		{"10k", domain.SpecNumber},
		{"2.2MEG", domain.SpecNumber},
		{"TO-220", domain.SpecText},
	}
	for _, c := range cases {
		got := classifySpec(c.raw)
		if got.Kind != c.kind {
			t.Fatalf("classifySpec(%q): expected kind %v, got %v", c.raw, c.kind, got.Kind)
		}
	}
}

func TestNormalize_BuildsComponent(t *testing.T) {
	raw := RawComponent{
		PartNumber:   "LM317T",
		Manufacturer: "Texas Instruments",
		Category:     "Voltage Regulator",
		Footprint:    "TO-220",
		Specs: []RawSpec{
			{Key: "output_voltage_min", Value: "1.25"},
			{Key: "adjustable", Value: "true"},
			{Key: "package", Value: "TO-220"},
		},
		Source: "digikey",
	}

	res := Normalize(context.Background(), raw)
	if res.IsErr() {
		_, err := res.Unwrap()
		t.Fatalf("unexpected error: %v", err)
	}
	nc, _ := res.Unwrap()

	if nc.PartNumber != "LM317T" || nc.Manufacturer != "Texas Instruments" {
		t.Fatalf("unexpected component: %+v", nc.Component)
	}
	if nc.Source != "digikey" {
		t.Fatalf("expected source to survive normalization, got %q", nc.Source)
	}
	if len(nc.Specifications) != 3 {
		t.Fatalf("expected 3 specs, got %d", len(nc.Specifications))
	}
	if nc.Specifications["adjustable"].Kind != domain.SpecBoolean {
		t.Fatalf("expected adjustable to classify as boolean")
	}
	if nc.Specifications["output_voltage_min"].Kind != domain.SpecNumber {
		t.Fatalf("expected output_voltage_min to classify as numeric")
	}
}
