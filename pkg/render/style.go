package render

import "github.com/dd0wney/cluso-orderviz/pkg/graph"

// Node geometry in layout pixels
const (
	OrderRadius         = 20.0
	DocumentRadius      = 15.0
	OrderLabelOffset    = 35.0
	DocumentLabelOffset = 30.0
)

// Style is the visual treatment of one node
type Style struct {
	Radius      float64
	LabelOffset float64
	Fill        string
	Stroke      string
	StrokeWidth float64
	// Icon is drawn inside vector nodes, Glyph inside terminal cells
	Icon  string
	Glyph rune
}

var (
	orderStyle = Style{
		Radius:      OrderRadius,
		LabelOffset: OrderLabelOffset,
		Fill:        "#4f46e5",
		Stroke:      "#312e81",
		StrokeWidth: 1.5,
		Icon:        "\U0001F4E6",
		Glyph:       '◆',
	}
	documentStyle = Style{
		Radius:      DocumentRadius,
		LabelOffset: DocumentLabelOffset,
		Fill:        "#10b981",
		Stroke:      "#065f46",
		StrokeWidth: 1.5,
		Icon:        "\U0001F4C4",
		Glyph:       '●',
	}
)

const (
	highlightFill   = "#f59e0b"
	highlightStroke = "#b45309"
	highlightWidth  = 3.0
)

// StyleFor returns the style of a node of type t
func StyleFor(t graph.NodeType, highlighted bool) Style {
	s := documentStyle
	if t == graph.TypeOrder {
		s = orderStyle
	}
	if highlighted {
		s.Fill = highlightFill
		s.Stroke = highlightStroke
		s.StrokeWidth = highlightWidth
	}
	return s
}
