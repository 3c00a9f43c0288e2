// Package ingest provides the streaming import pipeline that turns raw
// supplier-feed rows into catalog components: validation, normalization,
// embedding, and storage across the relational store, the graph overlay,
// and (when configured) the vector index.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opencircuit/core/engine/domain"
	"github.com/opencircuit/core/engine/embedcache"
	"github.com/opencircuit/core/engine/graph"
	"github.com/opencircuit/core/engine/netlist"
	"github.com/opencircuit/core/engine/semantic"
	"github.com/opencircuit/core/engine/store"
	"github.com/opencircuit/core/pkg/eventbus"
	"github.com/opencircuit/core/pkg/fn"

	"github.com/nats-io/nats.go"
)

const (
	// IngestSubject is the NATS subject for incoming raw component rows.
	IngestSubject = "engine.ingest"
	// DLQSubject is the dead letter queue subject for rows that failed
	// every retry.
	DLQSubject = "engine.ingest.dlq"
	// MaxRetries before a row is sent to the DLQ.
	MaxRetries = 3
)

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Embedder        *embedcache.Service
	EmbeddingModel  string
	Store           *store.Store
	GraphStore      *graph.GraphStore
	VectorStore     *semantic.VectorStore // optional; nil disables the ANN index write
	NATS            *nats.Conn            // optional; nil disables event publication
	DeduplicateF    func(ctx context.Context, partNumber string) (bool, error)
	Logger          *slog.Logger
}

// Validate rejects a RawComponent missing the fields every downstream
// stage assumes are present.
var Validate fn.Stage[RawComponent, RawComponent] = func(_ context.Context, raw RawComponent) fn.Result[RawComponent] {
	if strings.TrimSpace(raw.PartNumber) == "" {
		return fn.Errf[RawComponent]("ingest: missing part number")
	}
	if strings.TrimSpace(raw.Manufacturer) == "" {
		return fn.Errf[RawComponent]("ingest: missing manufacturer for part %q", raw.PartNumber)
	}
	if strings.TrimSpace(raw.Category) == "" {
		return fn.Errf[RawComponent]("ingest: missing category for part %q", raw.PartNumber)
	}
	return fn.Ok(raw)
}

// Normalize promotes a RawComponent into a NormalizedComponent, classifying
// each free-text spec field into domain.SpecValue's closed union.
var Normalize fn.Stage[RawComponent, NormalizedComponent] = func(_ context.Context, raw RawComponent) fn.Result[NormalizedComponent] {
	specs := make(map[string]domain.SpecValue, len(raw.Specs))
	for _, s := range raw.Specs {
		specs[s.Key] = classifySpec(s.Value)
	}

	now := time.Now().UTC()
	c := domain.Component{
		PartNumber:     raw.PartNumber,
		Manufacturer:   raw.Manufacturer,
		Category:       raw.Category,
		Description:    raw.Description,
		DatasheetURL:   raw.DatasheetURL,
		Footprint:      raw.Footprint,
		Specifications: specs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return fn.Ok(NormalizedComponent{Component: c, Source: raw.Source})
}

// classifySpec turns a raw spec value into a boolean, numeric, or text
// SpecValue. Range values ("10-20") are not auto-detected here: a range
// spec must be set explicitly by a feed that knows it's a range, since a
// bare hyphen is ambiguous with a negative engineering value.
func classifySpec(raw string) domain.SpecValue {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "true", "yes":
		return domain.NewBooleanValue(true)
	case "false", "no":
		return domain.NewBooleanValue(false)
	}
	if n, err := netlist.ParseEngineeringValue(trimmed); err == nil {
		return domain.NewNumberValue(n)
	}
	return domain.NewTextValue(trimmed)
}

// NewEmbed creates an Embed stage that attaches a canonical-text embedding
// to a NormalizedComponent via the orchestrator's cache-backed embedder.
func NewEmbed(embedder *embedcache.Service, model string) fn.Stage[NormalizedComponent, EmbeddedComponent] {
	return func(ctx context.Context, nc NormalizedComponent) fn.Result[EmbeddedComponent] {
		vec, err := embedder.EmbedComponent(ctx, nc.Component, model)
		if err != nil {
			return fn.Err[EmbeddedComponent](fmt.Errorf("embed: %w", err))
		}
		return fn.Ok(EmbeddedComponent{NormalizedComponent: nc, Vector: vec, EmbeddingModel: model})
	}
}

// NewStore creates a Store stage that persists an EmbeddedComponent to the
// relational catalog, the graph overlay, and (when configured) the vector
// index, then publishes a component.imported event.
func NewStore(deps Deps) fn.Stage[EmbeddedComponent, string] {
	return func(ctx context.Context, ec EmbeddedComponent) fn.Result[string] {
		saved, err := deps.Store.Put(ctx, ec.Component)
		if err != nil {
			return fn.Err[string](fmt.Errorf("store put: %w", err))
		}

		if err := deps.Store.PutVector(ctx, domain.ComponentVector{
			ComponentID:    saved.ID,
			EmbeddingModel: ec.EmbeddingModel,
			Vector:         ec.Vector,
			CreatedAt:      time.Now().UTC(),
		}); err != nil {
			return fn.Err[string](fmt.Errorf("store put vector: %w", err))
		}

		if deps.GraphStore != nil {
			node := graph.Node{
				PartNumber:   saved.PartNumber,
				Category:     saved.Category,
				Manufacturer: saved.Manufacturer,
			}
			if err := deps.GraphStore.SaveNode(ctx, node); err != nil {
				return fn.Err[string](fmt.Errorf("graph save: %w", err))
			}
		}

		if deps.VectorStore != nil {
			record := semantic.VectorRecord{
				PartNumber: saved.PartNumber,
				Embedding:  ec.Vector,
				Payload: map[string]any{
					"category":     saved.Category,
					"manufacturer": saved.Manufacturer,
				},
			}
			if err := deps.VectorStore.Upsert(ctx, []semantic.VectorRecord{record}); err != nil {
				return fn.Err[string](fmt.Errorf("vector upsert: %w", err))
			}
		}

		if deps.NATS != nil {
			_ = eventbus.Publish(ctx, deps.NATS, eventbus.SubjectComponentImported, eventbus.ComponentImported{
				PartNumber: saved.PartNumber,
				Source:     ec.Source,
				ImportedAt: time.Now().UTC(),
			})
		}

		return fn.Ok(saved.PartNumber)
	}
}

// LoggedTap returns a stage that logs entry/exit with duration.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(_ context.Context, t T) fn.Result[T] {
		log.Info("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Info("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// NewPipeline constructs the full ingestion pipeline: validate, normalize,
// embed, store, with logging taps between stages.
func NewPipeline(deps Deps) fn.Stage[RawComponent, string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	validated := fn.Then(LoggedTap[RawComponent]("validate", log), Validate)
	normalized := fn.Then(validated, fn.Then(LoggedTap[RawComponent]("normalize", log), Normalize))
	embedded := fn.Then(normalized, fn.Then(LoggedTap[NormalizedComponent]("embed", log), NewEmbed(deps.Embedder, deps.EmbeddingModel)))
	stored := fn.Then(embedded, fn.Then(LoggedTap[EmbeddedComponent]("store", log), NewStore(deps)))

	return stored
}

// dlqMessage is published to the DLQ once a row exhausts its retries.
type dlqMessage struct {
	Raw     RawComponent `json:"raw"`
	Error   string       `json:"error"`
	Retries int          `json:"retries"`
}

// StartConsumer starts a NATS subscriber that runs incoming raw component
// rows through the ingestion pipeline with retry and DLQ support.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	deps.NATS = nc
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(IngestSubject, func(msg *nats.Msg) {
		var raw RawComponent
		if err := json.Unmarshal(msg.Data, &raw); err != nil {
			log.Error("ingest: unmarshal failed", "error", err)
			return
		}

		ctx := context.Background()

		if deps.DeduplicateF != nil {
			exists, err := deps.DeduplicateF(ctx, raw.PartNumber)
			if err != nil {
				log.Warn("ingest: dedup check failed", "error", err)
			} else if exists {
				log.Info("ingest: skipping duplicate", "part_number", raw.PartNumber)
				return
			}
		}

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		result := pipeline(ctx, raw)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("ingest: pipeline failed",
				"error", pipeErr,
				"part_number", raw.PartNumber,
				"retry", retries,
			)

			if retries >= MaxRetries {
				dlq := dlqMessage{Raw: raw, Error: pipeErr.Error(), Retries: retries}
				data, _ := json.Marshal(dlq)
				if err := nc.Publish(DLQSubject, data); err != nil {
					log.Error("ingest: DLQ publish failed", "error", err)
				}
				return
			}

			retryMsg := nats.NewMsg(IngestSubject)
			retryMsg.Data = msg.Data
			retryMsg.Header = nats.Header{}
			retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
			if err := nc.PublishMsg(retryMsg); err != nil {
				log.Error("ingest: retry publish failed", "error", err)
			}
			return
		}

		partNumber, _ := result.Unwrap()
		log.Info("ingest: success", "part_number", partNumber)
	})
}
