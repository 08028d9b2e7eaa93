// Package visualization builds chart specifications for the dashboard and
// static PNG charts for the PDF report.
//
// Figures follow the plotly.js JSON schema ({"data": [...], "layout": {...}})
// so the browser renders them without a server round trip per interaction.
package visualization

import (
	"encoding/json"
	"sort"

	"dataanalyst/domain/dataset"
)

// Trace is one plotly.js trace
type Trace map[string]interface{}

// Layout is the plotly.js layout object
type Layout map[string]interface{}

// Figure is a complete plotly.js figure
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// EmptyFigure returns a figure without traces
func EmptyFigure() Figure {
	return Figure{Data: []Trace{}, Layout: Layout{}}
}

// IsEmpty reports whether the figure has no traces
func (f Figure) IsEmpty() bool {
	return len(f.Data) == 0
}

// JSON encodes the figure
func (f Figure) JSON() ([]byte, error) {
	return json.Marshal(f)
}

// Update merges values into the layout
func (f Figure) Update(values Layout) Figure {
	if f.Layout == nil {
		f.Layout = Layout{}
	}
	for k, v := range values {
		f.Layout[k] = v
	}
	return f
}

func axisTitle(text string) map[string]interface{} {
	return map[string]interface{}{"title": map[string]interface{}{"text": text}}
}

// columnValues returns the cells of col as JSON-ready values: numbers as
// float64, everything else formatted, missing as nil
func columnValues(col *dataset.Column) []interface{} {
	out := make([]interface{}, col.Len())
	for i, v := range col.Values {
		switch {
		case v.Missing:
			out[i] = nil
		case col.Kind.IsNumeric():
			out[i] = v.Num
		default:
			out[i] = col.Format(i)
		}
	}
	return out
}

// sortedKeys returns the distinct non-missing keys of col in natural order:
// numbers and times by value, everything else lexically
func sortedKeys(col *dataset.Column) []string {
	type entry struct {
		key string
		row int
	}
	seen := make(map[string]bool)
	var entries []entry
	for i, v := range col.Values {
		if v.Missing {
			continue
		}
		k := col.Key(i)
		if seen[k] {
			continue
		}
		seen[k] = true
		entries = append(entries, entry{key: k, row: i})
	}
	sort.Slice(entries, func(a, b int) bool {
		va, vb := col.Values[entries[a].row], col.Values[entries[b].row]
		switch col.Kind {
		case dataset.KindInt, dataset.KindFloat:
			return va.Num < vb.Num
		case dataset.KindDatetime:
			return va.Time.Before(vb.Time)
		case dataset.KindBool:
			return !va.Bool && vb.Bool
		default:
			return entries[a].key < entries[b].key
		}
	})
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	return keys
}
