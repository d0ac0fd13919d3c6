package graph

import (
	"github.com/dd0wney/cluso-orderviz/pkg/validation"
)

// Report describes what Sanitize dropped from a snapshot
type Report struct {
	MalformedNodes int
	DuplicateNodes int
	MalformedEdges int
	DanglingEdges  int
}

// Dropped is the total number of discarded nodes and edges
func (r Report) Dropped() int {
	return r.MalformedNodes + r.DuplicateNodes + r.MalformedEdges + r.DanglingEdges
}

// Sanitize returns the valid subgraph of s. Malformed nodes (missing id or
// unknown type) are removed, duplicate ids keep their first occurrence, and
// edges whose endpoints are not both present are dropped. It never fails:
// bad input shrinks the graph instead of stopping the layout.
func Sanitize(s *Snapshot) (*Snapshot, Report) {
	var report Report
	if s == nil {
		return &Snapshot{}, report
	}

	out := &Snapshot{
		Nodes: make([]Node, 0, len(s.Nodes)),
		Edges: make([]Edge, 0, len(s.Edges)),
	}
	seen := make(map[string]struct{}, len(s.Nodes))

	for _, n := range s.Nodes {
		if err := validation.Struct(&n); err != nil {
			report.MalformedNodes++
			continue
		}
		if _, dup := seen[n.ID]; dup {
			report.DuplicateNodes++
			continue
		}
		seen[n.ID] = struct{}{}
		n.Highlighted = false
		out.Nodes = append(out.Nodes, n)
	}

	for _, e := range s.Edges {
		if err := validation.Struct(&e); err != nil {
			report.MalformedEdges++
			continue
		}
		_, okSource := seen[e.Source]
		_, okTarget := seen[e.Target]
		if !okSource || !okTarget {
			report.DanglingEdges++
			continue
		}
		out.Edges = append(out.Edges, e)
	}

	return out, report
}
