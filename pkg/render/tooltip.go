package render

import (
	"fmt"

	"github.com/dd0wney/cluso-orderviz/pkg/graph"
)

// TooltipOffset is the distance from the pointer to the tooltip anchor
const TooltipOffset = 10.0

const missingValue = "-"

var (
	orderTooltipFields = []TooltipLine{
		{Key: "Customer", Value: "customer"},
		{Key: "Status", Value: "status"},
		{Key: "Documents", Value: "document_count"},
	}
	documentTooltipFields = []TooltipLine{
		{Key: "Type", Value: "type"},
		{Key: "Category", Value: "category"},
		{Key: "Processing", Value: "processing_status"},
	}
)

// TooltipFor builds the tooltip of n for a pointer at screen (x, y). Orders
// show title, customer, status and document count; documents show name,
// type, category and processing status.
func TooltipFor(n graph.Node, x, y float64) Tooltip {
	titleKey, fields := "name", documentTooltipFields
	if n.Type == graph.TypeOrder {
		titleKey, fields = "title", orderTooltipFields
	}

	t := Tooltip{
		NodeID: n.ID,
		X:      x + TooltipOffset,
		Y:      y + TooltipOffset,
		Title:  dataString(n, titleKey),
	}
	if t.Title == missingValue {
		t.Title = n.DisplayLabel()
	}
	for _, f := range fields {
		t.Lines = append(t.Lines, TooltipLine{Key: f.Key, Value: dataString(n, f.Value)})
	}
	return t
}

func dataString(n graph.Node, key string) string {
	v, ok := n.Data[key]
	if !ok || v == nil {
		return missingValue
	}
	switch v := v.(type) {
	case string:
		if v == "" {
			return missingValue
		}
		return v
	case float64:
		// JSON numbers decode as float64
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}
