// Package graphtest builds snapshots for tests.
package graphtest

import (
	"fmt"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
)

// Orders returns n order nodes with ids ORD-1..ORD-n and no edges
func Orders(n int) *graph.Snapshot {
	s := &graph.Snapshot{}
	for i := 1; i <= n; i++ {
		s.Nodes = append(s.Nodes, Order(i))
	}
	return s
}

// Order returns order node i
func Order(i int) graph.Node {
	return graph.Node{
		ID:    fmt.Sprintf("ORD-%d", i),
		Type:  graph.TypeOrder,
		Label: fmt.Sprintf("Super container %d", i),
		Data: map[string]any{
			"title":          fmt.Sprintf("Super container %d", i),
			"customer":       "Acme Freight",
			"status":         "in_transit",
			"document_count": 2,
		},
	}
}

// Document returns document j belonging to order i
func Document(i, j int) graph.Node {
	return graph.Node{
		ID:    fmt.Sprintf("DOC-%d-%d", i, j),
		Type:  graph.TypeDocument,
		Label: fmt.Sprintf("Invoice %d-%d", i, j),
		Data: map[string]any{
			"name":              fmt.Sprintf("invoice-%d-%d.pdf", i, j),
			"type":              "invoice",
			"category":          "commercial",
			"processing_status": "processed",
		},
	}
}

// ThreeOrders is three orders with two documents each. Besides the six
// contains edges, the first document of every order references the first
// document of the next order, for nine edges in total.
func ThreeOrders() *graph.Snapshot {
	s := &graph.Snapshot{}
	for i := 1; i <= 3; i++ {
		s.Nodes = append(s.Nodes, Order(i))
	}
	for i := 1; i <= 3; i++ {
		for j := 1; j <= 2; j++ {
			d := Document(i, j)
			s.Nodes = append(s.Nodes, d)
			s.Edges = append(s.Edges, graph.Edge{Source: fmt.Sprintf("ORD-%d", i), Target: d.ID, Type: "contains"})
		}
	}
	for i := 1; i <= 3; i++ {
		next := i%3 + 1
		s.Edges = append(s.Edges, graph.Edge{
			Source: fmt.Sprintf("DOC-%d-1", i),
			Target: fmt.Sprintf("DOC-%d-1", next),
			Type:   "references",
		})
	}
	return s
}
