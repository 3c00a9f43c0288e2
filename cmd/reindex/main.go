// Command reindex walks the full catalog store and rebuilds derived
// state: embeddings under the current model, the Qdrant vector index,
// and SIMILAR_TO graph edges between components. Run it after an
// embedding model change or a bulk import that bypassed the streaming
// pipeline.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/opencircuit/core/engine/domain"
	"github.com/opencircuit/core/engine/embedcache"
	"github.com/opencircuit/core/engine/graph"
	"github.com/opencircuit/core/engine/llm"
	"github.com/opencircuit/core/engine/semantic"
	"github.com/opencircuit/core/engine/store"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// similarityThreshold is the minimum cosine similarity at which two
// components get a persisted SIMILAR_TO edge.
const similarityThreshold = 0.85

// maxSimilarPerComponent caps how many SIMILAR_TO edges are written per
// component, so a dense cluster of near-identical parts (e.g. the same
// resistor across tolerance grades) doesn't blow up the graph.
const maxSimilarPerComponent = 10

const vectorDims = 768 // nomic-embed-text

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dbPath := envOr("DB_PATH", "catalog.db")
	llmURL := envOr("LLM_URL", "http://localhost:11434")
	embedModel := envOr("EMBED_MODEL", "nomic-embed-text")
	neo4jURL := envOr("NEO4J_URL", "")
	neo4jUser := envOr("NEO4J_USER", "neo4j")
	neo4jPass := envOr("NEO4J_PASS", "")
	qdrantAddr := envOr("QDRANT_URL", "")
	collection := envOr("QDRANT_COLLECTION", "components")

	s, err := store.Open(ctx, dbPath)
	if err != nil {
		log.Fatalf("store open: %v", err)
	}
	defer s.Shutdown()

	backend := llm.NewHTTPBackend(llmURL, nil)
	orchestrator := llm.New(backend, llm.Options{Models: []string{embedModel}}, nil)
	embedder := embedcache.NewService(embedcache.NewCache(256<<20), orchestrator, nil)

	var gs *graph.GraphStore
	if neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(neo4jURL, neo4j.BasicAuth(neo4jUser, neo4jPass, ""))
		if err != nil {
			log.Fatalf("neo4j connect: %v", err)
		}
		defer driver.Close(ctx)
		gs = graph.New(driver)
	}

	var vs *semantic.VectorStore
	if qdrantAddr != "" {
		vs, err = semantic.New(qdrantAddr, collection)
		if err != nil {
			log.Fatalf("qdrant connect: %v", err)
		}
		defer vs.Close()
		if err := vs.EnsureCollection(ctx, vectorDims); err != nil {
			log.Fatalf("qdrant ensure collection: %v", err)
		}
	}

	reindexed, skipped, errs := runReindex(ctx, s, embedder, gs, vs, embedModel)
	log.Printf("reindex done: %d reindexed, %d skipped, %d errors", reindexed, skipped, errs)

	if gs != nil {
		linked, errs := linkSimilarComponents(ctx, s, gs, embedModel)
		log.Printf("graph link done: %d edges written, %d errors", linked, errs)
	}
}

// runReindex pages through every component, re-embeds it, and writes the
// embedding to the relational store and (when configured) the vector
// index. It does not skip components that already have a vector under
// model, since the caller's whole point in running this tool is usually
// that a model just changed and stale vectors need replacing.
func runReindex(ctx context.Context, s *store.Store, embedder *embedcache.Service, gs *graph.GraphStore, vs *semantic.VectorStore, model string) (reindexed, skipped, errs int) {
	const pageSize = 100
	offset := 0
	for {
		if ctx.Err() != nil {
			return
		}
		page, err := s.All(ctx, pageSize, offset)
		if err != nil {
			log.Printf("page fetch at offset %d: %v", offset, err)
			errs++
			return
		}
		if len(page) == 0 {
			return
		}

		for _, c := range page {
			vector, err := embedder.EmbedComponent(ctx, c, model)
			if err != nil {
				log.Printf("embed %s: %v", c.PartNumber, err)
				errs++
				continue
			}

			if err := s.PutVector(ctx, domain.ComponentVector{
				ComponentID:    c.ID,
				EmbeddingModel: model,
				Vector:         vector,
			}); err != nil {
				log.Printf("put vector %s: %v", c.PartNumber, err)
				errs++
				continue
			}

			if gs != nil {
				if err := gs.SaveNode(ctx, graph.Node{
					PartNumber:   c.PartNumber,
					Category:     c.Category,
					Manufacturer: c.Manufacturer,
				}); err != nil {
					log.Printf("save node %s: %v", c.PartNumber, err)
				}
			}

			if vs != nil {
				if err := vs.Upsert(ctx, []semantic.VectorRecord{{
					PartNumber: c.PartNumber,
					Embedding:  vector,
					Payload: map[string]any{
						"category":        c.Category,
						"manufacturer":    c.Manufacturer,
						"embedding_model": model,
					},
				}}); err != nil {
					log.Printf("qdrant upsert %s: %v", c.PartNumber, err)
					errs++
					continue
				}
			}

			reindexed++
		}

		offset += pageSize
	}
}

// linkSimilarComponents computes pairwise cosine similarity across every
// stored vector under model and persists a SIMILAR_TO edge for any pair
// at or above similarityThreshold, capped at maxSimilarPerComponent per
// component. O(n^2) over the vector set; fine for catalog sizes that fit
// comfortably in the in-memory brute-force scan engine/embedcache already
// relies on, not meant for million-row catalogs.
func linkSimilarComponents(ctx context.Context, s *store.Store, gs *graph.GraphStore, model string) (linked, errs int) {
	vectors, err := s.VectorsByModel(ctx, model)
	if err != nil {
		log.Printf("vectors by model: %v", err)
		return 0, 1
	}

	idToPartNumber := make(map[domain.ComponentId]string, len(vectors))
	for _, v := range vectors {
		c, err := s.GetByID(ctx, v.ComponentID)
		if err != nil {
			continue
		}
		idToPartNumber[v.ComponentID] = c.PartNumber
	}

	counts := make(map[string]int)
	for i := range vectors {
		if ctx.Err() != nil {
			return
		}
		from, ok := idToPartNumber[vectors[i].ComponentID]
		if !ok || counts[from] >= maxSimilarPerComponent {
			continue
		}

		for j := range vectors {
			if i == j {
				continue
			}
			if counts[from] >= maxSimilarPerComponent {
				break
			}
			to, ok := idToPartNumber[vectors[j].ComponentID]
			if !ok {
				continue
			}

			sim := embedcache.CosineSimilarity(vectors[i].Vector, vectors[j].Vector)
			if sim < similarityThreshold {
				continue
			}

			if err := gs.SaveEdge(ctx, graph.Edge{
				From:   from,
				To:     to,
				Type:   "SIMILAR_TO",
				Weight: float64(sim),
			}); err != nil {
				log.Printf("save edge %s->%s: %v", from, to, err)
				errs++
				continue
			}
			counts[from]++
			linked++
		}
	}
	return
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
