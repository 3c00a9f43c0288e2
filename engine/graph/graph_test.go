package graph

import (
	"testing"
)

func TestSanitizeRelType(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"similar_to", "SIMILAR_TO"},
		{"connects_to", "CONNECTS_TO"},
		{"powers", "POWERS"},
		{"grounds", "GROUNDS"},
		{"", "RELATED_TO"},
		{"has-wire", "HASWIRE"},
		{"ALREADY_UPPER", "ALREADY_UPPER"},
	}
	for _, tt := range tests {
		got := sanitizeRelType(tt.input)
		if got != tt.want {
			t.Errorf("sanitizeRelType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNodeFromProps(t *testing.T) {
	props := map[string]any{
		"part_number":  "LM317T",
		"category":     "Voltage Regulator",
		"manufacturer": "Texas Instruments",
	}
	n := nodeFromProps(props)
	if n.PartNumber != "LM317T" {
		t.Fatalf("expected part_number=LM317T, got %s", n.PartNumber)
	}
	if n.Category != "Voltage Regulator" {
		t.Fatalf("expected category, got %s", n.Category)
	}
	if n.Manufacturer != "Texas Instruments" {
		t.Fatalf("expected manufacturer, got %s", n.Manufacturer)
	}
}

func TestNodeToMap(t *testing.T) {
	n := Node{PartNumber: "LM317T", Category: "Voltage Regulator", Manufacturer: "Texas Instruments"}
	m := nodeToMap(n)
	if m["part_number"] != "LM317T" {
		t.Fatal("missing part_number")
	}
	if m["category"] != "Voltage Regulator" {
		t.Fatal("missing category")
	}
}

func TestNewGraphStore(t *testing.T) {
	gs := New(nil)
	if gs == nil {
		t.Fatal("expected non-nil GraphStore")
	}
	if gs.nodes == nil {
		t.Fatal("expected non-nil nodes repo")
	}
}
