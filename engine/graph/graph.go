package graph

import (
	"context"
	"fmt"

	"github.com/opencircuit/core/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// GraphStore provides graph operations on top of the generic Neo4j repository.
type GraphStore struct {
	driver neo4j.DriverWithContext
	nodes  *repo.Neo4jRepo[Node, string]
}

// New creates a new GraphStore.
func New(driver neo4j.DriverWithContext) *GraphStore {
	return &GraphStore{
		driver: driver,
		nodes:  newNodeRepo(driver),
	}
}

// GetNode returns a node by part number.
func (g *GraphStore) GetNode(ctx context.Context, partNumber string) (Node, error) {
	return g.nodes.Get(ctx, partNumber)
}

// SaveNode creates or updates a component node.
func (g *GraphStore) SaveNode(ctx context.Context, n Node) error {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MERGE (n:Component {part_number: $part_number}) SET n += $props`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"part_number": n.PartNumber,
		"props":       nodeToMap(n),
	})
	return err
}

// SaveEdge creates or updates an edge between two nodes.
func (g *GraphStore) SaveEdge(ctx context.Context, e Edge) error {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH (a:Component {part_number: $from}), (b:Component {part_number: $to})
		 MERGE (a)-[r:%s {id: $id}]->(b)
		 SET r.weight = $weight`,
		sanitizeRelType(e.Type),
	)
	_, err := sess.Run(ctx, cypher, map[string]any{
		"from":   e.From,
		"to":     e.To,
		"id":     e.ID,
		"weight": e.Weight,
	})
	return err
}

// Neighbors returns nodes within the given traversal depth from a node.
func (g *GraphStore) Neighbors(ctx context.Context, partNumber string, depth int) ([]Node, error) {
	if depth <= 0 {
		depth = 1
	}
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH (start:Component {part_number: $part_number})-[*1..%d]-(n:Component)
		 WHERE n.part_number <> $part_number
		 RETURN DISTINCT n`, depth)
	result, err := sess.Run(ctx, cypher, map[string]any{"part_number": partNumber})
	if err != nil {
		return nil, err
	}
	return collectNodes(ctx, result)
}

// SimilarTo returns part numbers connected to partNumber by a SIMILAR_TO
// edge with weight >= minSimilarity, ordered by descending weight and
// capped at max.
func (g *GraphStore) SimilarTo(ctx context.Context, partNumber string, minSimilarity float64, max int) ([]string, error) {
	if max <= 0 {
		max = 2
	}
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (a:Component {part_number: $part_number})-[r:SIMILAR_TO]-(b:Component)
			   WHERE r.weight >= $min
			   RETURN DISTINCT b.part_number AS part_number, r.weight AS weight
			   ORDER BY weight DESC
			   LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{
		"part_number": partNumber,
		"min":         minSimilarity,
		"limit":       max,
	})
	if err != nil {
		return nil, err
	}
	var out []string
	for result.Next(ctx) {
		rec := result.Record()
		if pn, ok := rec.Get("part_number"); ok {
			if s, ok := pn.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// TracePath finds the shortest path between two nodes.
func (g *GraphStore) TracePath(ctx context.Context, fromPartNumber, toPartNumber string) ([]Node, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH p = shortestPath((a:Component {part_number: $from})-[*]-(b:Component {part_number: $to}))
				RETURN nodes(p) AS nodes`
	result, err := sess.Run(ctx, cypher, map[string]any{"from": fromPartNumber, "to": toPartNumber})
	if err != nil {
		return nil, err
	}
	if !result.Next(ctx) {
		return nil, fmt.Errorf("no path from %s to %s", fromPartNumber, toPartNumber)
	}

	nodesVal, ok := result.Record().Get("nodes")
	if !ok {
		return nil, fmt.Errorf("no nodes in path result")
	}
	nodeList, ok := nodesVal.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected nodes type")
	}

	var out []Node
	for _, raw := range nodeList {
		n, ok := raw.(dbtype.Node)
		if !ok {
			continue
		}
		out = append(out, nodeFromProps(n.Props))
	}
	return out, nil
}

// SaveBatch saves multiple nodes and edges in a single transaction.
func (g *GraphStore) SaveBatch(ctx context.Context, nodes []Node, edges []Edge) error {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, n := range nodes {
			cypher := `MERGE (n:Component {part_number: $part_number}) SET n += $props`
			if _, err := tx.Run(ctx, cypher, map[string]any{
				"part_number": n.PartNumber,
				"props":       nodeToMap(n),
			}); err != nil {
				return nil, err
			}
		}
		for _, e := range edges {
			cypher := fmt.Sprintf(
				`MATCH (a:Component {part_number: $from}), (b:Component {part_number: $to})
				 MERGE (a)-[r:%s {id: $id}]->(b)
				 SET r.weight = $weight`,
				sanitizeRelType(e.Type),
			)
			if _, err := tx.Run(ctx, cypher, map[string]any{
				"from":   e.From,
				"to":     e.To,
				"id":     e.ID,
				"weight": e.Weight,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// collectNodes reads all Component nodes from a result set.
func collectNodes(ctx context.Context, result neo4j.ResultWithContext) ([]Node, error) {
	var items []Node
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "n")
		if err != nil {
			return nil, err
		}
		items = append(items, nodeFromProps(node.Props))
	}
	return items, nil
}

// sanitizeRelType ensures the relationship type is a valid Cypher identifier.
func sanitizeRelType(t string) string {
	safe := make([]byte, 0, len(t))
	for i := range t {
		c := t[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			safe = append(safe, c)
		}
	}
	if len(safe) == 0 {
		return "RELATED_TO"
	}
	for i := range safe {
		if safe[i] >= 'a' && safe[i] <= 'z' {
			safe[i] -= 32
		}
	}
	return string(safe)
}
