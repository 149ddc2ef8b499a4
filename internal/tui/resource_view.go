package tui

import (
	"log/slog"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/service"
	"github.com/mmcdole/recon/internal/table"
	"github.com/mmcdole/recon/internal/tui/components"
)

// actionKind identifies a row action requested through the surface
type actionKind int

const (
	actionNone actionKind = iota
	actionView
	actionEdit
	actionDelete
	actionCopy
)

// actionRequest is a row action waiting to be handled by the app
type actionRequest struct {
	kind actionKind
	row  domain.Record
}

// ResourceView holds everything one resource table needs: fetch state,
// the locally mutated page, query params, client sort, local filter and
// row selection. It is owned by the UI loop.
type ResourceView struct {
	Res     domain.Resource
	ctrl    *table.Controller[domain.Record]
	coll    *table.Collection[domain.Record]
	mutator table.Mutator[domain.Record] // nil for read-only resources

	Params   domain.QueryParams
	SortBy   string
	SortDesc bool
	Filter   string

	selected    map[string]bool
	pending     actionRequest
	pageSizeReq int
	Table       components.Table
	lastErr     error
}

// NewResourceView creates a view for res. The first Sync issues the
// initial fetch.
func NewResourceView(res domain.Resource, svc *service.ResourceService, pageSize int, logger *slog.Logger) (*ResourceView, error) {
	fetch, err := svc.Fetcher(res.Key)
	if err != nil {
		return nil, err
	}
	v := &ResourceView{
		Res:      res,
		coll:     table.NewCollection[domain.Record](nil, 0),
		Params:   domain.NewQueryParams(pageSize),
		selected: make(map[string]bool),
		Table:    components.NewTable(res.Title),
	}
	v.ctrl = table.NewController(fetch,
		table.WithLogger[domain.Record](logger.With("resource", res.Key)),
		table.WithErrorHandler[domain.Record](func(err error) { v.lastErr = err }),
	)
	if !res.ReadOnly {
		if m, err := svc.Mutator(res.Key); err == nil {
			v.mutator = m
		}
	}
	v.refreshTable()
	return v, nil
}

// Sync issues a fetch when the params changed since the last one
func (v *ResourceView) Sync() tea.Cmd {
	cycle, ok := v.ctrl.Sync(v.Params)
	v.refreshTable()
	if !ok {
		return nil
	}
	return FetchPageCmd(v.Res.Key, cycle)
}

// Resolve applies a fetch outcome. It returns the fetch error, if the
// outcome was applied and failed.
func (v *ResourceView) Resolve(o table.Outcome[domain.Record]) error {
	v.lastErr = nil
	if !v.ctrl.Resolve(o) {
		return nil
	}
	st := v.ctrl.State()
	if st.Err == nil {
		v.coll.Reset(st.Rows, st.TotalItems)
		v.pruneSelection()
	}
	v.refreshTable()
	return v.lastErr
}

// Loading reports whether a fetch is in flight
func (v *ResourceView) Loading() bool {
	return v.ctrl.Loading()
}

// Err returns the error of the last applied fetch
func (v *ResourceView) Err() error {
	return v.ctrl.State().Err
}

// ReadOnly reports whether the resource refuses mutations
func (v *ResourceView) ReadOnly() bool {
	return v.mutator == nil
}

// Mutator returns the resource's mutator
func (v *ResourceView) Mutator() table.Mutator[domain.Record] {
	return v.mutator
}

// Collection returns the locally mutated page
func (v *ResourceView) Collection() *table.Collection[domain.Record] {
	return v.coll
}

// Rows returns the displayed rows: the local page narrowed by the filter
// and ordered by the client sort.
func (v *ResourceView) Rows() []domain.Record {
	rows := v.coll.Rows()
	if v.Filter != "" {
		paths := make([]string, len(v.Res.Columns))
		for i, c := range v.Res.Columns {
			paths[i] = c.Path
		}
		rows = service.NewRowIndex(rows, paths).Rows(v.Filter)
	}
	if v.SortBy != "" {
		rows = table.SortRows(rows, v.SortBy, v.SortDesc)
	}
	return rows
}

// Props builds the surface props for the current state
func (v *ResourceView) Props() table.Props[domain.Record] {
	st := v.ctrl.State()
	empty := table.DefaultEmptyText
	switch {
	case st.Err != nil:
		empty = "Failed to load: " + st.Err.Error()
	case v.Filter != "":
		empty = "No rows on this page match the filter"
	case v.Params.Search != "":
		empty = "No results for \"" + v.Params.Search + "\""
	}

	return table.Props[domain.Record]{
		Columns:     columnsFor(v.Res),
		Data:        v.Rows(),
		CurrentPage: st.CurrentPage,
		TotalPages:  st.TotalPages,
		TotalItems:  v.coll.Total(),
		PageSize:    v.Params.PageSize,
		OnPageChange: func(page int) {
			v.Params = v.Params.WithPage(page)
		},
		OnPerPageChange: func(size int) {
			v.pageSizeReq = size
		},
		Loading:     st.Loading,
		EmptyText:   empty,
		LoadingText: "Loading " + v.Res.Title + "...",
		Actions: table.Actions[domain.Record]{
			View:   func(row domain.Record) { v.pending = actionRequest{kind: actionView, row: row} },
			Edit:   func(row domain.Record) { v.pending = actionRequest{kind: actionEdit, row: row} },
			Delete: func(row domain.Record) { v.pending = actionRequest{kind: actionDelete, row: row} },
			Copy:   func(row domain.Record) { v.pending = actionRequest{kind: actionCopy, row: row} },
		},
		Selection: &table.Selection{
			IsSelected: func(id string) bool { return v.selected[id] },
			Toggle: func(id string) {
				if v.selected[id] {
					delete(v.selected, id)
				} else {
					v.selected[id] = true
				}
			},
			SetAll: func(ids []string, on bool) {
				for _, id := range ids {
					if on {
						v.selected[id] = true
					} else {
						delete(v.selected, id)
					}
				}
			},
		},
	}
}

// TakeAction returns and clears the action requested through the surface
func (v *ResourceView) TakeAction() actionRequest {
	a := v.pending
	v.pending = actionRequest{}
	return a
}

// TakePageSize returns and clears the page size requested through the
// surface, or 0
func (v *ResourceView) TakePageSize() int {
	n := v.pageSizeReq
	v.pageSizeReq = 0
	return n
}

// Selected returns the selected rows that are still on the page
func (v *ResourceView) Selected() []domain.Record {
	var out []domain.Record
	for _, row := range v.coll.Rows() {
		if v.selected[row.GetID()] {
			out = append(out, row)
		}
	}
	return out
}

// ClearSelection empties the selection
func (v *ResourceView) ClearSelection() {
	clear(v.selected)
}

func (v *ResourceView) pruneSelection() {
	for id := range v.selected {
		if _, _, ok := v.coll.Find(id); !ok {
			delete(v.selected, id)
		}
	}
}

// SetSort changes the client-side sort of the displayed page
func (v *ResourceView) SetSort(accessor string, desc bool) {
	v.SortBy = accessor
	v.SortDesc = desc
	v.refreshTable()
}

// SetFilter changes the local filter over the displayed page
func (v *ResourceView) SetFilter(filter string) {
	v.Filter = filter
	v.Table.Top()
	v.refreshTable()
}

// refreshTable pushes the current props into the table component
func (v *ResourceView) refreshTable() {
	v.Table.SetProps(v.Props())
	v.Table.SetSort(v.SortBy, v.SortDesc)
	v.Table.SetFilter(v.Filter)
	title := v.Res.Title
	if v.Params.Search != "" {
		title += " · search: " + v.Params.Search
	}
	if v.Res.HasCategories() && domain.EffectiveCategory(v.Params.Category) != "" {
		title += " · " + v.Params.Category
	}
	if n := len(v.selected); n > 0 {
		title += " · " + strconv.Itoa(n) + " selected"
	}
	v.Table.SetTitle(title)
}

// Status maps the fetch state onto a sidebar status
func (v *ResourceView) Status() components.LoadStatus {
	st := v.ctrl.State()
	switch {
	case st.Loading:
		return components.StatusLoading
	case st.Err != nil:
		return components.StatusError
	default:
		return components.StatusLoaded
	}
}
