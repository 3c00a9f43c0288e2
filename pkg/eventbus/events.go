package eventbus

import "time"

// Subjects for the three domain events published across the system.
const (
	// SubjectComponentUpdated fires whenever a component's catalog record
	// changes (price refresh, spec correction, manual edit).
	SubjectComponentUpdated = "component.updated"
	// SubjectComponentImported fires once per component written by a bulk
	// or streaming import.
	SubjectComponentImported = "component.imported"
	// SubjectEmbeddingModelChanged fires when the configured embedding
	// model identifier changes, so every orchestrator instance sharing
	// this NATS deployment drops its in-memory vector cache together.
	SubjectEmbeddingModelChanged = "embedding.model_changed"
)

// ComponentUpdated is published on SubjectComponentUpdated.
type ComponentUpdated struct {
	PartNumber string    `json:"part_number"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ComponentImported is published on SubjectComponentImported.
type ComponentImported struct {
	PartNumber string    `json:"part_number"`
	Source     string    `json:"source"`
	ImportedAt time.Time `json:"imported_at"`
}

// EmbeddingModelChanged is published on SubjectEmbeddingModelChanged.
type EmbeddingModelChanged struct {
	PreviousModel string    `json:"previous_model"`
	CurrentModel  string    `json:"current_model"`
	ChangedAt     time.Time `json:"changed_at"`
}
