// Command circuitd runs the opencircuit API server: component lookup and
// recommendation, netlist validation, and (when Neo4j/Qdrant are
// configured) graph- and vector-backed enrichment.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/opencircuit/core/engine/domain"
	"github.com/opencircuit/core/engine/embedcache"
	"github.com/opencircuit/core/engine/graph"
	"github.com/opencircuit/core/engine/llm"
	"github.com/opencircuit/core/engine/netlist"
	"github.com/opencircuit/core/engine/recommend"
	"github.com/opencircuit/core/engine/semantic"
	"github.com/opencircuit/core/engine/simulate"
	"github.com/opencircuit/core/engine/store"
	"github.com/opencircuit/core/engine/validate"
	"github.com/opencircuit/core/pkg/mid"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Config holds all environment-based configuration, per spec.md §6's
// configuration table plus the ambient keys the graph/vector/event-bus/
// metrics components add.
type Config struct {
	Port       string
	DBPath     string
	LLMURL     string
	EmbedModel string
	ChatModel  string
	Neo4jURL   string
	Neo4jUser  string
	Neo4jPass  string
	QdrantAddr string
	Collection string
	NATSURL    string
	CORSOrigin string

	SimLibraryPath string
	SimTimeoutS    int
}

func loadConfig() Config {
	simTimeout := 60
	if v := os.Getenv("SIMULATION_TIMEOUT_S"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			simTimeout = n
		}
	}
	return Config{
		Port:       envOr("PORT", "8080"),
		DBPath:     envOr("DB_PATH", "catalog.db"),
		LLMURL:     envOr("LLM_URL", "http://localhost:11434"),
		EmbedModel: envOr("EMBED_MODEL", "nomic-embed-text"),
		ChatModel:  envOr("CHAT_MODEL", "llama3.1:8b"),
		Neo4jURL:   envOr("NEO4J_URL", ""),
		Neo4jUser:  envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:  envOr("NEO4J_PASS", ""),
		QdrantAddr: envOr("QDRANT_URL", ""),
		Collection: envOr("QDRANT_COLLECTION", "components"),
		NATSURL:    envOr("NATS_URL", ""),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),

		SimLibraryPath: envOr("SIMULATION_LIBRARY_PATH", ""),
		SimTimeoutS:    simTimeout,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("store open: %w", err)
	}
	defer s.Shutdown()

	backend := llm.NewHTTPBackend(cfg.LLMURL, nil)
	orchestrator := llm.New(backend, llm.Options{Models: []string{cfg.ChatModel}}, logger)
	embedSvc := embedcache.NewService(embedcache.NewCache(256<<20), orchestrator, logger)

	var enricher recommend.GraphEnricher
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		gs := graph.New(driver)
		enricher = graph.NewEnricher(gs, func(ctx context.Context, partNumber string) (domain.Component, error) {
			return s.GetByPartNumber(ctx, partNumber)
		})
	}

	if cfg.QdrantAddr != "" {
		vs, err := semantic.New(cfg.QdrantAddr, cfg.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer vs.Close()
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		if _, err := embedSvc.SubscribeInvalidation(nc); err != nil {
			return fmt.Errorf("subscribe invalidation: %w", err)
		}
	}

	recSvc := recommend.New(s, embedSvc, orchestrator, enricher, recommend.Options{EmbeddingModel: cfg.EmbedModel}, logger)

	// The simulation adapter dials a native shared library; its absence is
	// not fatal to the rest of the server, only to /api/netlist/simulate.
	var simAdapter *simulate.Adapter
	if cfg.SimLibraryPath != "" {
		os.Setenv("SIMULATE_NGSPICE_LIB", cfg.SimLibraryPath)
	}
	if a, err := simulate.Init(simulate.Options{Policy: simulate.Queue}); err != nil {
		logger.Warn("simulation adapter unavailable, /api/netlist/simulate will return 503", "err", err)
	} else {
		simAdapter = a
		defer simulate.Shutdown()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/components/{partNumber}", handleGetComponent(s))
	mux.HandleFunc("GET /api/components", handleListComponents(s))
	mux.HandleFunc("POST /api/recommend", handleRecommend(recSvc, logger))
	mux.HandleFunc("POST /api/netlist/validate", handleValidateNetlist(logger))
	mux.HandleFunc("POST /api/netlist/simulate", handleSimulate(simAdapter, time.Duration(cfg.SimTimeoutS)*time.Second, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("circuitd starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleGetComponent(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partNumber := r.PathValue("partNumber")
		c, err := s.GetByPartNumber(r.Context(), partNumber)
		if err != nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(c)
	}
}

func handleListComponents(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		limit := 25
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		offset := 0
		if v := r.URL.Query().Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				offset = n
			}
		}

		if category != "" {
			components, err := s.ByCategory(r.Context(), category, limit, offset)
			if err != nil {
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(components)
			return
		}

		q := r.URL.Query().Get("q")
		if q == "" {
			http.Error(w, `{"error":"category or q query parameter required"}`, http.StatusBadRequest)
			return
		}
		results, err := s.Search(r.Context(), domain.ComponentSearchFilter{FreeText: q, Limit: limit})
		if err != nil {
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(results)
	}
}

// recommendRequest is the JSON body for POST /api/recommend.
type recommendRequest struct {
	Requirement        string             `json:"requirement"`
	Category           string             `json:"category,omitempty"`
	Priority           recommend.Priority `json:"priority,omitempty"`
	ExcludePartNumbers []string           `json:"exclude_part_numbers,omitempty"`
	MaxResults         int                `json:"max_results,omitempty"`
}

func handleRecommend(svc *recommend.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recommendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if err := domain.ValidateRequirementText(req.Requirement); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
			return
		}

		result, err := svc.Recommend(r.Context(), recommend.Request{
			NaturalLanguageRequirement: req.Requirement,
			Category:                   req.Category,
			Priority:                   req.Priority,
			ExcludePartNumbers:         req.ExcludePartNumbers,
			MaxResults:                 req.MaxResults,
		})
		if err != nil {
			logger.Error("recommend failed", "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

// validateRequest is the JSON body for POST /api/netlist/validate.
type validateRequest struct {
	Netlist string `json:"netlist"`
}

func handleValidateNetlist(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		circuit, err := netlist.Parse(req.Netlist)
		if err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
			return
		}

		report := validate.Validate(circuit)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}

// simulateRequest is the JSON body for POST /api/netlist/simulate. Analysis
// selects which fields of the params sub-objects apply; unused ones are
// ignored.
type simulateRequest struct {
	Netlist string `json:"netlist"`
	Kind    string `json:"kind"`

	DC struct {
		Source string  `json:"source"`
		Start  float64 `json:"start"`
		Stop   float64 `json:"stop"`
		Step   float64 `json:"step"`
	} `json:"dc,omitempty"`

	AC struct {
		Sweep  string  `json:"sweep"`
		Points int     `json:"points"`
		FStart float64 `json:"f_start"`
		FStop  float64 `json:"f_stop"`
	} `json:"ac,omitempty"`

	Transient struct {
		TStep  float64 `json:"t_step"`
		TStop  float64 `json:"t_stop"`
		TStart float64 `json:"t_start,omitempty"`
		TMax   float64 `json:"t_max,omitempty"`
	} `json:"transient,omitempty"`
}

func (r simulateRequest) toAnalysis() (simulate.Analysis, error) {
	switch r.Kind {
	case "operating_point":
		return simulate.OperatingPointAnalysis{}, nil
	case "dc":
		return simulate.DCAnalysis{Source: r.DC.Source, Start: r.DC.Start, Stop: r.DC.Stop, Step: r.DC.Step}, nil
	case "ac":
		return simulate.ACAnalysis{Sweep: simulate.Sweep(r.AC.Sweep), Points: r.AC.Points, FStart: r.AC.FStart, FStop: r.AC.FStop}, nil
	case "transient":
		return simulate.TransientAnalysis{TStep: r.Transient.TStep, TStop: r.Transient.TStop, TStart: r.Transient.TStart, TMax: r.Transient.TMax}, nil
	default:
		return nil, fmt.Errorf("unknown analysis kind %q", r.Kind)
	}
}

// handleSimulate loads a netlist into the singleton simulation adapter and
// runs one analysis against it. adapter is nil when no native SPICE library
// was found at startup, in which case every request fails with 503.
func handleSimulate(adapter *simulate.Adapter, timeout time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if adapter == nil {
			http.Error(w, `{"error":"simulation engine unavailable"}`, http.StatusServiceUnavailable)
			return
		}

		var req simulateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		analysis, err := req.toAnalysis()
		if err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := adapter.LoadNetlist(ctx, req.Netlist); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
			return
		}

		result, err := adapter.Run(ctx, analysis)
		if err != nil {
			logger.Error("simulation failed", "err", err)
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}
