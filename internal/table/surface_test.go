package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/recon/internal/domain"
)

func props(data []Rec) Props[Rec] {
	return Props[Rec]{
		Columns: []Column[Rec]{
			{Header: "ASN", Accessor: "asn"},
			{Header: "Org", Accessor: "org.name"},
		},
		Data:        data,
		CurrentPage: 1,
		TotalPages:  3,
		PageSize:    10,
		EmptyText:   "No ASNs found",
		LoadingText: "Loading ASNs...",
	}
}

func TestBodyLoadingShowsOnlyLoadingText(t *testing.T) {
	p := props([]Rec{{"id": "1", "asn": "AS13335"}})
	p.Loading = true

	b := p.Body()
	assert.Equal(t, BodyLoading, b.Kind)
	assert.Equal(t, "Loading ASNs...", b.Text)
	assert.Empty(t, b.Rows)
}

func TestBodyEmptyShowsOnlyEmptyText(t *testing.T) {
	b := props(nil).Body()
	assert.Equal(t, BodyEmpty, b.Kind)
	assert.Equal(t, "No ASNs found", b.Text)
	assert.Empty(t, b.Rows)

	p := props(nil)
	p.EmptyText = ""
	assert.Equal(t, DefaultEmptyText, p.Body().Text)
}

func TestBodyRowsUseAccessors(t *testing.T) {
	b := props([]Rec{
		{"id": "1", "asn": "AS13335", "org": map[string]any{"name": "Cloudflare"}},
		{"id": "2", "asn": "AS15169"},
	}).Body()

	require.Equal(t, BodyRows, b.Kind)
	assert.Equal(t, []string{"1", "2"}, b.IDs)
	assert.Equal(t, []string{"AS13335", "Cloudflare"}, b.Rows[0])
	assert.Equal(t, []string{"AS15169", MissingValue}, b.Rows[1])
}

func TestRendererReceivesActionsUntouched(t *testing.T) {
	var copied []string
	var got Cell[Rec]
	p := props([]Rec{{"id": "7", "asn": "AS1"}})
	p.Actions = Actions[Rec]{Copy: func(r Rec) { copied = append(copied, r.GetID()) }}
	p.Columns[0].Renderer = RendererFunc[Rec](func(c Cell[Rec]) string {
		got = c
		return strings.ToLower(c.Value.(string))
	})

	assert.Equal(t, "as1", p.Body().Rows[0][0])
	assert.True(t, got.Present)
	assert.Equal(t, "7", got.Row.GetID())
	require.NotNil(t, got.Actions.Copy)
	assert.Nil(t, got.Actions.Edit)
	assert.Empty(t, copied, "surface never invokes actions")

	got.Actions.Copy(got.Row)
	assert.Equal(t, []string{"7"}, copied)
}

func TestPaginationControls(t *testing.T) {
	var requested []int
	p := props(nil)
	p.OnPageChange = func(n int) { requested = append(requested, n) }

	assert.False(t, p.CanPrev())
	assert.True(t, p.CanNext())
	assert.False(t, p.Prev())
	assert.True(t, p.Next())

	p.CurrentPage = 3
	assert.True(t, p.CanPrev())
	assert.False(t, p.CanNext())
	assert.True(t, p.Prev())

	p.TotalPages = 0
	p.CurrentPage = 1
	assert.False(t, p.CanNext())

	assert.Equal(t, []int{2, 2}, requested)
}

func TestSelectPageSize(t *testing.T) {
	var sizes []int
	p := props(nil)
	p.OnPerPageChange = func(n int) { sizes = append(sizes, n) }

	assert.True(t, p.SelectPageSize(50))
	assert.False(t, p.SelectPageSize(30))
	assert.Equal(t, []int{50}, sizes)

	assert.Equal(t, 25, NextPageSize(10))
	assert.Equal(t, 10, NextPageSize(100))
	assert.Equal(t, 10, NextPageSize(7))
}

func TestSelectionCallbacks(t *testing.T) {
	selected := map[string]bool{}
	sel := &Selection{
		IsSelected: func(id string) bool { return selected[id] },
		Toggle:     func(id string) { selected[id] = !selected[id] },
		SetAll: func(ids []string, on bool) {
			for _, id := range ids {
				selected[id] = on
			}
		},
	}
	p := props([]Rec{{"id": "1"}, {"id": "2"}})
	p.Selection = sel

	p.ToggleRow(p.Data[0])
	assert.True(t, p.IsSelected(p.Data[0]))
	assert.False(t, p.AllSelected())

	p.ToggleAll()
	assert.True(t, p.AllSelected())

	p.ToggleAll()
	assert.False(t, selected["1"])
	assert.False(t, selected["2"])
}

func TestSortRows(t *testing.T) {
	data := []Rec{
		{"id": "1", "count": float64(10), "name": "beta"},
		{"id": "2", "count": float64(9), "name": "Alpha"},
		{"id": "3", "name": "gamma"},
	}

	byCount := SortRows(data, "count", false)
	assert.Equal(t, []string{"2", "1", "3"}, ids(byCount))

	byName := SortRows(data, "name", true)
	assert.Equal(t, []string{"3", "1", "2"}, ids(byName))

	assert.Equal(t, []string{"1", "2", "3"}, ids(data), "input untouched")
}

func ids(rs []Rec) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.GetID()
	}
	return out
}

var _ Row = domain.Record{}
