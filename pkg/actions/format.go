package actions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// FormatRecord turns a record into panel content: one field per top-level
// key in sorted order, plus the indented JSON body.
func FormatRecord(title string, rec Record) PanelContent {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := PanelContent{Title: title}
	for _, k := range keys {
		c.Fields = append(c.Fields, Field{Key: humanize(k), Value: formatValue(rec[k])})
	}
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", map[string]any(rec)))
	}
	c.Raw = raw
	return c
}

// FormatLink turns a download link into panel content showing its expiry
func FormatLink(title string, link DownloadLink, now time.Time) PanelContent {
	raw, _ := json.MarshalIndent(link, "", "  ")
	expires := "unknown"
	if !link.ExpiresAt.IsZero() {
		expires = fmt.Sprintf("%s (in %s)", link.ExpiresAt.Format(time.RFC3339), link.ExpiresAt.Sub(now).Round(time.Second))
	}
	return PanelContent{
		Title: title,
		Fields: []Field{
			{Key: "Filename", Value: link.Filename},
			{Key: "URL", Value: link.URL},
			{Key: "Expires", Value: expires},
		},
		Raw:  raw,
		Link: &link,
	}
}

func humanize(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
