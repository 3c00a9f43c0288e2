package ingest

import "github.com/opencircuit/core/engine/domain"

// RawSpec is a single specification field as it arrives from a supplier
// feed, before it has been classified into domain.SpecValue's closed
// union.
type RawSpec struct {
	Key   string
	Value string
}

// RawComponent is one row of an import batch: a supplier feed record or
// a line from a manually curated catalog file, not yet validated or
// normalized into a domain.Component.
type RawComponent struct {
	PartNumber   string
	Manufacturer string
	Category     string
	Description  string
	DatasheetURL string
	Footprint    string
	Specs        []RawSpec
	Source       string
}

// NormalizedComponent is a RawComponent promoted to a domain.Component,
// still missing its catalog-assigned ID until the store stage persists it.
type NormalizedComponent struct {
	domain.Component
	Source string
}

// EmbeddedComponent is a NormalizedComponent with its canonical-text
// embedding attached, ready for storage.
type EmbeddedComponent struct {
	NormalizedComponent
	Vector         []float32
	EmbeddingModel string
}
