// Command importer watches a directory for supplier-feed JSON files and
// runs each row through the ingestion pipeline into the catalog store,
// the graph overlay, and (when configured) the Qdrant vector index. It
// also accepts streaming rows over NATS when a server is configured.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencircuit/core/engine/embedcache"
	"github.com/opencircuit/core/engine/graph"
	"github.com/opencircuit/core/engine/ingest"
	"github.com/opencircuit/core/engine/llm"
	"github.com/opencircuit/core/engine/semantic"
	"github.com/opencircuit/core/engine/store"
	"github.com/opencircuit/core/pkg/fn"
	"github.com/opencircuit/core/pkg/metrics"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var met = metrics.New()

var (
	mComponentsTotal  = func(source string) *metrics.Counter { return met.Counter(metrics.WithLabels("importer_components_total", "source", source), "Total components ingested") }
	mErrorsTotal      = func(stage string) *metrics.Counter { return met.Counter(metrics.WithLabels("importer_errors_total", "stage", stage), "Total ingestion errors") }
	mComponentsSkipped = met.Counter("importer_components_skipped_total", "Components skipped by dedup")
	mFilesProcessed   = met.Counter("importer_files_processed_total", "Files processed")
	mBytesProcessed   = met.Counter("importer_bytes_processed_total", "Total bytes of source files processed")
	mActiveRows       = met.Gauge("importer_active_rows", "Currently processing rows")
	mLastScan         = met.Gauge("importer_last_scan_timestamp", "Epoch of last directory scan")
	mQueueDepth       = met.Gauge("importer_queue_depth", "Files waiting to process")
	mPipelineDur      = met.Histogram("importer_pipeline_duration_seconds", "Per-row pipeline time", nil)
	mStageDur         = func(stage string) *metrics.Histogram { return met.Histogram(metrics.WithLabels("importer_stage_duration_seconds", "stage", stage), "Per-stage duration", nil) }
)

const vectorDims = 768 // nomic-embed-text

func main() {
	var (
		dataDir     = flag.String("dir", "/tmp/opencircuit-import", "directory to watch for supplier feed JSON files")
		dbPath      = flag.String("db", "catalog.db", "sqlite catalog database path")
		llmURL      = flag.String("llm", "http://localhost:11434", "LLM orchestrator base URL")
		embedModel  = flag.String("embed-model", "nomic-embed-text", "embedding model name")
		neo4jURL    = flag.String("neo4j", "", "Neo4j bolt URL (empty disables the graph overlay)")
		neo4jUser   = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass   = flag.String("neo4j-pass", "", "Neo4j password")
		qdrantAddr  = flag.String("qdrant", "", "Qdrant gRPC address (empty disables the vector index)")
		collection  = flag.String("collection", "components", "Qdrant collection name")
		natsURL     = flag.String("nats", "", "NATS server URL (empty disables streaming import)")
		interval    = flag.Duration("interval", 30*time.Second, "directory scan interval")
		stateFile   = flag.String("state", "/tmp/opencircuit-import/.importer-state.json", "processed files state")
		metricsPort = flag.Int("metrics-port", 9091, "metrics server port")
	)
	flag.Parse()

	met.ServeAsync(*metricsPort)

	log := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := store.Open(ctx, *dbPath)
	if err != nil {
		log.Error("store open failed", "error", err)
		os.Exit(1)
	}
	defer s.Shutdown()

	backend := llm.NewHTTPBackend(*llmURL, nil)
	orchestrator := llm.New(backend, llm.Options{Models: []string{*embedModel}}, log)
	embedder := embedcache.NewService(embedcache.NewCache(256<<20), orchestrator, log)

	var gs *graph.GraphStore
	if *neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
		if err != nil {
			log.Error("neo4j connect failed", "error", err)
			os.Exit(1)
		}
		defer driver.Close(ctx)
		if err := driver.VerifyConnectivity(ctx); err != nil {
			log.Error("neo4j verify failed", "error", err)
			os.Exit(1)
		}
		gs = graph.New(driver)
		log.Info("connected to Neo4j")
	}

	var vs *semantic.VectorStore
	if *qdrantAddr != "" {
		vs, err = semantic.New(*qdrantAddr, *collection)
		if err != nil {
			log.Error("qdrant connect failed", "error", err)
			os.Exit(1)
		}
		defer vs.Close()
		if err := vs.EnsureCollection(ctx, vectorDims); err != nil {
			log.Error("qdrant ensure collection failed", "error", err)
			os.Exit(1)
		}
		log.Info("connected to Qdrant", "collection", *collection)
	}

	var nc *nats.Conn
	if *natsURL != "" {
		nc, err = nats.Connect(*natsURL)
		if err != nil {
			log.Error("nats connect failed", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
	}

	deps := ingest.Deps{
		Embedder:       embedder,
		EmbeddingModel: *embedModel,
		Store:          s,
		GraphStore:     gs,
		VectorStore:    vs,
		NATS:           nc,
		DeduplicateF: func(ctx context.Context, partNumber string) (bool, error) {
			_, err := s.GetByPartNumber(ctx, partNumber)
			if err != nil {
				return false, nil
			}
			return true, nil
		},
		Logger: log,
	}

	pipeline := ingest.NewPipeline(deps)

	if nc != nil {
		sub, err := ingest.StartConsumer(nc, deps)
		if err != nil {
			log.Error("nats consumer start failed", "error", err)
			os.Exit(1)
		}
		defer sub.Unsubscribe()
		log.Info("listening for streaming import rows", "subject", ingest.IngestSubject)
	}

	processed := loadState(*stateFile)
	os.MkdirAll(*dataDir, 0o755)
	log.Info("watching for supplier feed files", "dir", *dataDir, "interval", *interval)

	scan := func() {
		mLastScan.Set(time.Now().Unix())
		entries, err := os.ReadDir(*dataDir)
		if err != nil {
			mErrorsTotal("scan").Inc()
			log.Error("readdir failed", "error", err)
			return
		}

		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || e.Name()[0] == '.' {
				continue
			}
			path := filepath.Join(*dataDir, e.Name())
			info, _ := e.Info()
			key := e.Name()
			if info != nil {
				key = e.Name() + ":" + info.ModTime().Format(time.RFC3339Nano)
			}

			if processed[key] {
				continue
			}

			mQueueDepth.Inc()
			log.Info("processing file", "file", e.Name())
			if info != nil {
				mBytesProcessed.Add(info.Size())
			}
			count, errs := processFile(ctx, path, pipeline)
			mQueueDepth.Dec()
			log.Info("file done", "file", e.Name(), "ingested", count, "errors", errs)
			mFilesProcessed.Inc()

			if errs == 0 {
				processed[key] = true
				saveState(*stateFile, processed)
			} else {
				log.Warn("file had errors, will retry on next scan", "file", e.Name(), "errors", errs)
			}
		}
	}

	scan()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-ticker.C:
			scan()
		}
	}
}

// processFile decodes path as either a JSON array of ingest.RawComponent
// or newline-delimited JSON objects, and runs each row through pipeline.
func processFile(ctx context.Context, path string, pipeline fn.Stage[ingest.RawComponent, string]) (int, int) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 1
	}

	var rows []ingest.RawComponent
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &rows); err != nil {
			return 0, 1
		}
	} else {
		dec := json.NewDecoder(strings.NewReader(trimmed))
		for {
			var row ingest.RawComponent
			if err := dec.Decode(&row); err != nil {
				break
			}
			rows = append(rows, row)
		}
	}

	count, errs := 0, 0
	log := slog.Default()
	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		mActiveRows.Inc()
		start := time.Now()
		result := pipeline(ctx, row)
		mPipelineDur.Since(start)
		mActiveRows.Dec()
		if result.IsErr() {
			_, err := result.Unwrap()
			log.Error("pipeline error", "part_number", row.PartNumber, "error", err)
			mErrorsTotal("pipeline").Inc()
			errs++
			continue
		}
		source := row.Source
		if source == "" {
			source = "unknown"
		}
		mComponentsTotal(source).Inc()
		count++
	}
	return count, errs
}

func loadState(path string) map[string]bool {
	m := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	json.Unmarshal(data, &m)
	return m
}

func saveState(path string, m map[string]bool) {
	data, _ := json.Marshal(m)
	os.WriteFile(path, data, 0o644)
}
