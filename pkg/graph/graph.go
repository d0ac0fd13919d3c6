// Package graph holds the order/document relationship snapshot handed to the
// visualizer. It carries no layout state: positions and pins belong to the
// layout engine for the lifetime of a loaded snapshot.
package graph

import "unicode/utf8"

// NodeType determines a node's icon, radius, colour and available actions
type NodeType string

const (
	TypeOrder    NodeType = "order"
	TypeDocument NodeType = "document"
)

// MaxLabelRunes is the longest label shown before truncation
const MaxLabelRunes = 20

// Node is a vertex representing an order or a document
type Node struct {
	ID    string         `json:"id" yaml:"id" validate:"required,max=128"`
	Type  NodeType       `json:"type" yaml:"type" validate:"required,oneof=order document"`
	Label string         `json:"label" yaml:"label"`
	Data  map[string]any `json:"data,omitempty" yaml:"data,omitempty"`

	// Highlighted is transient emphasis set by the viewer, never by loaders
	Highlighted bool `json:"-" yaml:"-"`
}

// Edge is a relationship between two nodes. Type is shown in tooltips only.
type Edge struct {
	Source string `json:"source" yaml:"source" validate:"required"`
	Target string `json:"target" yaml:"target" validate:"required"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Snapshot is one complete graph as supplied by the order/document repository
type Snapshot struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// DisplayLabel returns the label truncated to MaxLabelRunes with an ellipsis.
// Nodes without a label fall back to their id.
func (n Node) DisplayLabel() string {
	label := n.Label
	if label == "" {
		label = n.ID
	}
	if utf8.RuneCountInString(label) <= MaxLabelRunes {
		return label
	}
	runes := []rune(label)
	return string(runes[:MaxLabelRunes]) + "..."
}

// IsOrder reports whether the node is an order
func (n Node) IsOrder() bool { return n.Type == TypeOrder }

// Index maps node ids to their position in Nodes. Later duplicates are ignored.
func (s *Snapshot) Index() map[string]int {
	idx := make(map[string]int, len(s.Nodes))
	for i, n := range s.Nodes {
		if _, ok := idx[n.ID]; !ok {
			idx[n.ID] = i
		}
	}
	return idx
}

// Node looks up a node by id
func (s *Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// CountByType returns the number of orders and documents
func (s *Snapshot) CountByType() (orders, documents int) {
	for _, n := range s.Nodes {
		switch n.Type {
		case TypeOrder:
			orders++
		case TypeDocument:
			documents++
		}
	}
	return orders, documents
}

// Clone returns a deep copy of the node and edge slices. Data maps are
// shared; they are treated as read-only payload.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Nodes: make([]Node, len(s.Nodes)),
		Edges: make([]Edge, len(s.Edges)),
	}
	copy(out.Nodes, s.Nodes)
	copy(out.Edges, s.Edges)
	return out
}
