package graph

import (
	"github.com/opencircuit/core/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// newNodeRepo creates a Neo4j-backed repository for component nodes, keyed
// by part number.
func newNodeRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[Node, string] {
	return repo.NewNeo4jRepo[Node, string](
		driver,
		"Component",
		nodeToMap,
		nodeFromRecord,
		repo.WithIDKey[Node, string]("part_number"),
	)
}

func nodeToMap(n Node) map[string]any {
	return map[string]any{
		"part_number":  n.PartNumber,
		"category":     n.Category,
		"manufacturer": n.Manufacturer,
	}
}

func nodeFromRecord(rec *neo4j.Record) (Node, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Node{}, err
	}
	return nodeFromProps(node.Props), nil
}

func nodeFromProps(props map[string]any) Node {
	return Node{
		PartNumber:   strProp(props, "part_number"),
		Category:     strProp(props, "category"),
		Manufacturer: strProp(props, "manufacturer"),
	}
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
