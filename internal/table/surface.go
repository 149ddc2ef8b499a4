package table

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/mmcdole/recon/internal/domain"
)

// Default texts shown by a surface.
const (
	DefaultEmptyText   = "No data available"
	DefaultLoadingText = "Loading data..."
	MissingValue       = "N/A"
)

// PageSizes is the fixed set offered by the page size selector.
var PageSizes = []int{10, 25, 50, 100}

// Row is what a surface needs from a displayed item.
type Row interface {
	GetID() string
	Lookup(path string) (any, bool)
}

// Actions is the capability set passed through to cell renderers. The
// surface never calls these itself.
type Actions[T any] struct {
	View   func(row T)
	Edit   func(row T)
	Delete func(row T)
	Copy   func(row T)
}

// Cell is the argument every renderer receives.
type Cell[T any] struct {
	Value   any
	Present bool
	Row     T
	Actions Actions[T]
}

// Renderer formats one cell.
type Renderer[T any] interface {
	RenderCell(cell Cell[T]) string
}

// RendererFunc adapts a function to Renderer.
type RendererFunc[T any] func(cell Cell[T]) string

func (f RendererFunc[T]) RenderCell(cell Cell[T]) string { return f(cell) }

// Column describes one displayed column.
type Column[T any] struct {
	Header   string
	Accessor string
	Width    int
	Renderer Renderer[T]
	Sortable bool
}

// Selection lets a surface read and write a caller-owned set of ids.
type Selection struct {
	IsSelected func(id string) bool
	Toggle     func(id string)
	SetAll     func(ids []string, selected bool)
}

// Props is everything a surface renders from.
type Props[T Row] struct {
	Columns     []Column[T]
	Data        []T
	CurrentPage int
	TotalPages  int
	TotalItems  int
	PageSize    int

	OnPageChange    func(page int)
	OnPerPageChange func(size int)

	Loading     bool
	EmptyText   string
	LoadingText string

	Actions   Actions[T]
	Selection *Selection
}

// BodyKind says which of the three mutually exclusive bodies to draw.
type BodyKind int

const (
	BodyRows BodyKind = iota
	BodyLoading
	BodyEmpty
)

// Body is the render-agnostic content of a surface.
type Body struct {
	Kind BodyKind
	Text string
	IDs  []string
	Rows [][]string
}

// Body computes what to draw. While loading only the loading text is
// produced; an empty page produces only the empty text.
func (p Props[T]) Body() Body {
	if p.Loading {
		return Body{Kind: BodyLoading, Text: orDefault(p.LoadingText, DefaultLoadingText)}
	}
	if len(p.Data) == 0 {
		return Body{Kind: BodyEmpty, Text: orDefault(p.EmptyText, DefaultEmptyText)}
	}
	b := Body{Kind: BodyRows, IDs: make([]string, len(p.Data)), Rows: make([][]string, len(p.Data))}
	for i, row := range p.Data {
		b.IDs[i] = row.GetID()
		b.Rows[i] = p.Cells(row)
	}
	return b
}

// Cells computes every column of row.
func (p Props[T]) Cells(row T) []string {
	out := make([]string, len(p.Columns))
	for i, col := range p.Columns {
		out[i] = p.Cell(col, row)
	}
	return out
}

// Cell computes one column of row.
func (p Props[T]) Cell(col Column[T], row T) string {
	v, ok := row.Lookup(col.Accessor)
	if col.Renderer != nil {
		return col.Renderer.RenderCell(Cell[T]{Value: v, Present: ok, Row: row, Actions: p.Actions})
	}
	if !ok || v == nil {
		return MissingValue
	}
	return domain.FormatValue(v)
}

// CanPrev reports whether the Previous control is enabled.
func (p Props[T]) CanPrev() bool {
	return p.CurrentPage > 1
}

// CanNext reports whether the Next control is enabled.
func (p Props[T]) CanNext() bool {
	return p.TotalPages != 0 && p.CurrentPage < p.TotalPages
}

// Prev requests the previous page when allowed.
func (p Props[T]) Prev() bool {
	if !p.CanPrev() || p.OnPageChange == nil {
		return false
	}
	p.OnPageChange(p.CurrentPage - 1)
	return true
}

// Next requests the next page when allowed.
func (p Props[T]) Next() bool {
	if !p.CanNext() || p.OnPageChange == nil {
		return false
	}
	p.OnPageChange(p.CurrentPage + 1)
	return true
}

// SelectPageSize reports n through OnPerPageChange when n is one of
// PageSizes.
func (p Props[T]) SelectPageSize(n int) bool {
	if !slices.Contains(PageSizes, n) || p.OnPerPageChange == nil {
		return false
	}
	p.OnPerPageChange(n)
	return true
}

// NextPageSize returns the page size following cur in PageSizes.
func NextPageSize(cur int) int {
	i := slices.Index(PageSizes, cur)
	return PageSizes[(i+1)%len(PageSizes)]
}

// AllSelected reports whether every displayed row is selected.
func (p Props[T]) AllSelected() bool {
	if p.Selection == nil || p.Selection.IsSelected == nil || len(p.Data) == 0 {
		return false
	}
	for _, row := range p.Data {
		if !p.Selection.IsSelected(row.GetID()) {
			return false
		}
	}
	return true
}

// ToggleAll selects every displayed row, or clears them when all are
// already selected.
func (p Props[T]) ToggleAll() {
	if p.Selection == nil || p.Selection.SetAll == nil {
		return
	}
	ids := make([]string, len(p.Data))
	for i, row := range p.Data {
		ids[i] = row.GetID()
	}
	p.Selection.SetAll(ids, !p.AllSelected())
}

// ToggleRow flips membership of row in the selection.
func (p Props[T]) ToggleRow(row T) {
	if p.Selection == nil || p.Selection.Toggle == nil {
		return
	}
	p.Selection.Toggle(row.GetID())
}

// IsSelected reports whether row is in the selection.
func (p Props[T]) IsSelected(row T) bool {
	if p.Selection == nil || p.Selection.IsSelected == nil {
		return false
	}
	return p.Selection.IsSelected(row.GetID())
}

// SortRows returns a copy of rows ordered by the value at accessor. Numbers
// compare numerically, everything else case-insensitively. Missing values
// sort last.
func SortRows[T Row](rows []T, accessor string, desc bool) []T {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b T) int {
		av, aok := a.Lookup(accessor)
		bv, bok := b.Lookup(accessor)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}
		c := compareValues(av, bv)
		if desc {
			return -c
		}
		return c
	})
	return out
}

func compareValues(a, b any) int {
	as, bs := domain.FormatValue(a), domain.FormatValue(b)
	af, aerr := strconv.ParseFloat(as, 64)
	bf, berr := strconv.ParseFloat(bs, 64)
	if aerr == nil && berr == nil {
		return cmp.Compare(af, bf)
	}
	return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
