// Package main implements a lightweight recommendation chat API: it
// embeds a natural-language requirement, searches the vector index for
// matching components, and streams an LLM-composed answer grounded in
// those results.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opencircuit/core/engine/domain"
	"github.com/opencircuit/core/engine/llm"
	"github.com/opencircuit/core/engine/semantic"

	"log/slog"
)

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

const systemPrompt = `You are the opencircuit component assistant, an expert in electronic
part selection. Answer the user's request using ONLY the provided candidate
components. If none of the candidates fit, say so honestly. Cite part
numbers when recommending. Be concise and helpful.`

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	llmURL := envOr("LLM_URL", "http://localhost:11434")
	qdrantAddr := envOr("QDRANT_URL", "localhost:6334")
	collection := envOr("QDRANT_COLLECTION", "components")
	embedModel := envOr("EMBED_MODEL", "nomic-embed-text")
	chatModel := envOr("CHAT_MODEL", "llama3.1:8b")
	port := envOr("PORT", "8090")

	vs, err := semantic.New(qdrantAddr, collection)
	if err != nil {
		logger.Error("qdrant connect failed", "err", err)
		os.Exit(1)
	}
	defer vs.Close()

	backend := llm.NewHTTPBackend(llmURL, nil)
	orchestrator := llm.New(backend, llm.Options{Models: []string{chatModel}}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(w, r, vs, orchestrator, embedModel, logger)
	})
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	srv := &http.Server{Addr: ":" + port, Handler: corsMiddleware(mux)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("chat API starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type chatRequest struct {
	Requirement string `json:"requirement"`
}

type candidate struct {
	PartNumber   string  `json:"part_number"`
	Category     string  `json:"category"`
	Manufacturer string  `json:"manufacturer"`
	Score        float32 `json:"score"`
}

func handleChat(w http.ResponseWriter, r *http.Request, vs *semantic.VectorStore, orchestrator *llm.Orchestrator, embedModel string, logger *slog.Logger) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", 405)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Requirement) == "" {
		http.Error(w, `{"error":"requirement required"}`, 400)
		return
	}
	if err := domain.ValidateRequirementText(req.Requirement); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), 400)
		return
	}

	ctx := r.Context()

	vector, err := orchestrator.Embed(ctx, req.Requirement, embedModel)
	if err != nil {
		logger.Error("embed failed", "err", err)
		http.Error(w, `{"error":"embedding failed"}`, 500)
		return
	}

	results, err := vs.Search(ctx, vector, 5)
	if err != nil {
		logger.Error("search failed", "err", err)
		http.Error(w, `{"error":"search failed"}`, 500)
		return
	}

	candidates := make([]candidate, len(results))
	var contextParts []string
	for i, res := range results {
		candidates[i] = candidate{
			PartNumber:   res.PartNumber,
			Category:     res.Category,
			Manufacturer: res.Manufacturer,
			Score:        res.Score,
		}
		contextParts = append(contextParts, fmt.Sprintf("[%d] %s (%s, %s, score %.3f)", i+1, res.PartNumber, res.Manufacturer, res.Category, res.Score))
	}

	contextText := strings.Join(contextParts, "\n")
	prompt := fmt.Sprintf("Candidate components:\n%s\n\nUser requirement: %s", contextText, req.Requirement)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", 500)
		return
	}

	candidatesJSON, _ := json.Marshal(candidates)
	fmt.Fprintf(w, "event: candidates\ndata: %s\n\n", candidatesJSON)
	flusher.Flush()

	conversation := domain.Conversation{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: systemPrompt},
			{Role: domain.RoleUser, Content: prompt},
		},
	}

	for token := range orchestrator.ChatStream(ctx, conversation, 2) {
		if token.Err != nil {
			fmt.Fprintf(w, "event: error\ndata: {\"error\":%q}\n\n", token.Err.Error())
			flusher.Flush()
			return
		}
		if token.Content != "" {
			tokenJSON, _ := json.Marshal(map[string]string{"token": token.Content})
			fmt.Fprintf(w, "event: token\ndata: %s\n\n", tokenJSON)
			flusher.Flush()
		}
		if token.Done {
			break
		}
	}

	fmt.Fprintf(w, "event: done\ndata: {}\n\n")
	flusher.Flush()
}
