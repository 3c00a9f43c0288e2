package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// CategoryStats holds node and edge counts for one component category.
type CategoryStats struct {
	Category string `json:"category"`
	Parts    int64  `json:"parts"`
	Edges    int64  `json:"edges"`
}

// NodeCounts returns node counts grouped by label.
func (g *GraphStore) NodeCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (n) RETURN labels(n)[0] AS type, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		cnt, _ := rec.Get("count")
		if t, ok := typ.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[t] = c
			}
		}
	}
	return counts, nil
}

// RelationshipCounts returns relationship counts grouped by type.
func (g *GraphStore) RelationshipCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH ()-[r]->() RETURN type(r) AS type, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		cnt, _ := rec.Get("count")
		if t, ok := typ.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[t] = c
			}
		}
	}
	return counts, nil
}

// TopCategories returns the categories with the most SIMILAR_TO edges,
// useful for spotting catalog categories that need more cross-supplier
// data before the recommender's alternatives step is useful.
func (g *GraphStore) TopCategories(ctx context.Context, limit int) ([]CategoryStats, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (n:Component)
		OPTIONAL MATCH (n)-[r:SIMILAR_TO]-()
		RETURN n.category AS category, count(DISTINCT n) AS parts, count(r) AS edges
		ORDER BY edges DESC LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	var stats []CategoryStats
	for result.Next(ctx) {
		rec := result.Record()
		cat, _ := rec.Get("category")
		parts, _ := rec.Get("parts")
		edges, _ := rec.Get("edges")
		s := CategoryStats{}
		if c, ok := cat.(string); ok {
			s.Category = c
		}
		if p, ok := parts.(int64); ok {
			s.Parts = p
		}
		if e, ok := edges.(int64); ok {
			s.Edges = e
		}
		stats = append(stats, s)
	}
	return stats, nil
}
