package tui

import (
	"strings"
	"time"

	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/table"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// columnsFor builds the table columns of a resource
func columnsFor(res domain.Resource) []table.Column[domain.Record] {
	cols := make([]table.Column[domain.Record], len(res.Columns))
	for i, c := range res.Columns {
		cols[i] = table.Column[domain.Record]{
			Header:   c.Header,
			Accessor: c.Path,
			Width:    c.Width,
			Renderer: rendererFor(c.Kind),
			Sortable: c.Sortable,
		}
	}
	return cols
}

// rendererFor returns the cell renderer for a column kind. Text columns
// use the surface default.
func rendererFor(kind domain.ColumnKind) table.Renderer[domain.Record] {
	switch kind {
	case domain.KindDate:
		return table.RendererFunc[domain.Record](renderDate)
	case domain.KindBool:
		return table.RendererFunc[domain.Record](renderBool)
	case domain.KindList:
		return table.RendererFunc[domain.Record](renderList)
	case domain.KindSecret:
		return table.RendererFunc[domain.Record](renderSecret)
	case domain.KindCount:
		return table.RendererFunc[domain.Record](renderCount)
	default:
		return nil
	}
}

func renderDate(c table.Cell[domain.Record]) string {
	if !c.Present || c.Value == nil {
		return table.MissingValue
	}
	s := domain.FormatValue(c.Value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if layout == "2006-01-02" {
				return t.Format("2006-01-02")
			}
			return t.Local().Format("2006-01-02 15:04")
		}
	}
	return s
}

func renderBool(c table.Cell[domain.Record]) string {
	if !c.Present || c.Value == nil {
		return table.MissingValue
	}
	switch strings.ToLower(domain.FormatValue(c.Value)) {
	case "1", "true", "yes", "y":
		return "Yes"
	default:
		return "No"
	}
}

func renderList(c table.Cell[domain.Record]) string {
	if !c.Present || c.Value == nil {
		return table.MissingValue
	}
	switch v := c.Value.(type) {
	case []any:
		if len(v) == 0 {
			return "-"
		}
	case string:
		// Some endpoints send lists as JSON text
		s := strings.Trim(v, "[]")
		s = strings.ReplaceAll(s, `"`, "")
		return strings.Join(strings.Fields(strings.ReplaceAll(s, ",", " ")), ", ")
	}
	return domain.FormatValue(c.Value)
}

func renderSecret(c table.Cell[domain.Record]) string {
	if !c.Present || domain.FormatValue(c.Value) == "" {
		return table.MissingValue
	}
	return "••••••"
}

func renderCount(c table.Cell[domain.Record]) string {
	if !c.Present || c.Value == nil {
		return "0"
	}
	return domain.FormatValue(c.Value)
}
