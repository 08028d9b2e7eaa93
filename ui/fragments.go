package ui

import (
	"fmt"
	"net/http"
	"strconv"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/analysis"
	"dataanalyst/internal/visualization"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

func renderHTML(w http.ResponseWriter, status int, node Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func alert(kind, msg string) Node {
	return Div(Class("alert alert-"+kind), Role("alert"), Text(msg))
}

func message(msg string) Node {
	return P(Class("message"), Text(msg))
}

func section(title string, body ...Node) Node {
	return Div(Class("section"), H4(Text(title)), Group(body))
}

func dataTable(header []string, rows [][]string) Node {
	return Div(Class("table-wrap"),
		Table(Class("data-table"),
			THead(Tr(Map(header, func(h string) Node { return Th(Text(h)) }))),
			TBody(Map(rows, func(row []string) Node {
				return Tr(Map(row, func(cell string) Node { return Td(Text(cell)) }))
			})),
		),
	)
}

func frameTable(f *dataset.Frame) Node {
	rows := make([][]string, f.Rows())
	for i := range rows {
		rows[i] = f.Record(i)
	}
	return dataTable(f.Names(), rows)
}

// describeTable renders a describe grid with a leading "Statistic" column
func describeTable(t analysis.DescribeTable) Node {
	header := append([]string{"Statistic"}, t.Columns...)
	rows := make([][]string, len(t.Index))
	for i, stat := range t.Index {
		row := []string{stat}
		for _, v := range t.Values[i] {
			row = append(row, cellText(v))
		}
		rows[i] = row
	}
	return dataTable(header, rows)
}

func cellText(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return dataset.FormatFloat(x)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func metricCards(m metrics) Node {
	card := func(label, value string) Node {
		return Div(Class("metric-card"),
			Div(Class("metric-value"), Text(value)),
			Div(Class("metric-label"), Text(label)),
		)
	}
	return Div(Class("metrics"),
		card("Records", m.Records),
		card("Columns", strconv.Itoa(m.Columns)),
		card("Numeric", strconv.Itoa(m.Numeric)),
		card("Categorical", strconv.Itoa(m.Categorical)),
	)
}

func pager(page, pages int) Node {
	link := func(label string, target int, enabled bool) Node {
		if !enabled {
			return Button(Class("page-link"), Disabled(), Text(label))
		}
		return Button(Class("page-link"),
			Attr("hx-get", fmt.Sprintf("/api/preview?page=%d", target)),
			Attr("hx-target", "#preview"),
			Text(label),
		)
	}
	return Div(Class("pager"),
		link("Previous", page-1, page > 1),
		Span(Textf("Page %d of %d", page, pages)),
		link("Next", page+1, page < pages),
	)
}

// figure embeds a plotly figure for dashboard.js to draw after the swap
func figure(fig visualization.Figure) Node {
	raw, err := fig.JSON()
	if err != nil {
		return alert("danger", "Could not encode figure: "+err.Error())
	}
	return Div(Class("figure"), Data("figure", string(raw)))
}

func insightsCards(ins analysis.Insights) Node {
	card := func(title string, body ...Node) Node {
		return Div(Class("card insight-card"),
			Div(Class("card-header"), H4(Text(title))),
			Div(Class("card-body"), Group(body)),
		)
	}
	list := func(items []string) Node {
		return Ul(Map(items, func(s string) Node { return Li(Text(s)) }))
	}

	cards := []Node{card("Dataset Overview", Map(ins.Overview, func(s string) Node { return P(Text(s)) }))}
	if ins.MissingSummary != "" {
		cards = append(cards, card("Missing Data", P(Text(ins.MissingSummary)), list(ins.Missing)))
	}
	if len(ins.Correlations) > 0 {
		cards = append(cards, card("Correlation Analysis", P(Text("Top correlations between variables:")), list(ins.Correlations)))
	}
	if len(ins.Recommendations) > 0 {
		cards = append(cards, card("Recommendations", list(ins.Recommendations)))
	}
	return Div(Class("insights"), Group(cards))
}

func options(names []string) Node {
	return Group(Map(names, func(name string) Node {
		return Option(Value(name), Text(name))
	}))
}

func themeIcon(icon string) Node {
	return I(Class("fas "+icon), ID("theme-icon"))
}
