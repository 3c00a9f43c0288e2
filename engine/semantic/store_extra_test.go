package semantic

import (
	"context"
	"testing"
)

func TestUpsertEmptySlice(t *testing.T) {
	store := &VectorStore{collection: "test"}
	if err := store.Upsert(context.Background(), []VectorRecord{}); err != nil {
		t.Errorf("Upsert empty slice: %v", err)
	}
}

func TestSearchResultFields(t *testing.T) {
	sr := SearchResult{
		PartNumber:   "LM317T",
		Score:        0.95,
		Category:     "Voltage Regulator",
		Manufacturer: "Texas Instruments",
		Meta:         map[string]string{"key": "val"},
	}
	if sr.PartNumber != "LM317T" || sr.Score != 0.95 || sr.Category != "Voltage Regulator" {
		t.Error("field mismatch")
	}
	if sr.Meta["key"] != "val" {
		t.Error("meta mismatch")
	}
}

func TestVectorRecordFields(t *testing.T) {
	vr := VectorRecord{
		PartNumber: "LM317T",
		Embedding:  []float32{0.1, 0.2, 0.3},
		Payload:    map[string]any{"category": "Voltage Regulator", "count": 5},
	}
	if vr.PartNumber != "LM317T" {
		t.Error("PartNumber mismatch")
	}
	if len(vr.Embedding) != 3 {
		t.Error("embedding length mismatch")
	}
	if vr.Payload["category"] != "Voltage Regulator" {
		t.Error("payload mismatch")
	}
}
