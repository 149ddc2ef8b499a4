// Package table holds the paginated table engine: a fetch-state controller
// that turns query params into fetch cycles, an optimistic collection for
// local add/edit/delete with rollback, and the contract a table surface
// renders from.
package table

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmcdole/recon/internal/domain"
)

// FetchFunc loads one page of a resource.
type FetchFunc[T any] func(ctx context.Context, page, pageSize int, search, category string) (domain.PageResult[T], error)

// StalePolicy decides what happens to a fetch that resolves after a newer
// one was issued.
type StalePolicy int

const (
	// DiscardStale ignores every outcome except the newest issued cycle.
	DiscardStale StalePolicy = iota

	// LastResolvedWins applies outcomes in arrival order.
	LastResolvedWins
)

var errNoFetch = errors.New("no fetch function configured")

// State is what a view renders from.
type State[T any] struct {
	Rows        []T
	CurrentPage int
	TotalPages  int
	TotalItems  int
	Loading     bool
	Err         error
}

// Cycle is one issued fetch. Run it off the UI loop and hand the outcome
// back to Controller.Resolve.
type Cycle[T any] struct {
	Seq    uint64
	Params domain.QueryParams
	fetch  FetchFunc[T]
}

// Outcome is the result of running a Cycle.
type Outcome[T any] struct {
	Seq    uint64
	Params domain.QueryParams
	Result domain.PageResult[T]
	Err    error
}

// Run performs the fetch. It touches no controller state.
func (c Cycle[T]) Run(ctx context.Context) (out Outcome[T]) {
	out = Outcome[T]{Seq: c.Seq, Params: c.Params}
	if c.fetch == nil {
		out.Err = errNoFetch
		return out
	}
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	p := c.Params
	out.Result, out.Err = c.fetch(ctx, p.Page, p.PageSize, p.Search, p.EffectiveCategory())
	return out
}

// Controller tracks fetch state for one view. All methods must be called
// from the UI loop.
type Controller[T any] struct {
	fetch   FetchFunc[T]
	policy  StalePolicy
	onError func(error)
	logger  *slog.Logger

	state  State[T]
	params domain.QueryParams
	issued bool
	dirty  bool
	seq    uint64
}

// Option configures a Controller.
type Option[T any] func(*Controller[T])

// WithStalePolicy overrides the default DiscardStale policy.
func WithStalePolicy[T any](p StalePolicy) Option[T] {
	return func(c *Controller[T]) { c.policy = p }
}

// WithErrorHandler registers the side channel that receives fetch errors.
func WithErrorHandler[T any](fn func(error)) Option[T] {
	return func(c *Controller[T]) { c.onError = fn }
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(c *Controller[T]) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a controller in the loading state with no data.
func NewController[T any](fetch FetchFunc[T], opts ...Option[T]) *Controller[T] {
	c := &Controller[T]{
		fetch:  fetch,
		logger: slog.Default(),
		state: State[T]{
			Rows:        []T{},
			CurrentPage: 1,
			TotalPages:  1,
			Loading:     true,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetFetch replaces the fetch function. The next Sync issues a cycle even
// if the params did not change.
func (c *Controller[T]) SetFetch(fetch FetchFunc[T]) {
	c.fetch = fetch
	c.dirty = true
}

// Sync compares p with the last issued params. When they differ, or the
// fetch function was replaced, it marks the state loading and returns the
// cycle to run.
func (c *Controller[T]) Sync(p domain.QueryParams) (Cycle[T], bool) {
	if c.issued && !c.dirty && p == c.params {
		return Cycle[T]{}, false
	}
	c.issued = true
	c.dirty = false
	c.params = p
	c.seq++
	c.state.Loading = true
	c.logger.Debug("fetch issued", "seq", c.seq, "page", p.Page, "page_size", p.PageSize,
		"search", p.Search, "category", p.Category)
	return Cycle[T]{Seq: c.seq, Params: p, fetch: c.fetch}, true
}

// Resolve applies an outcome. Data fields are written before Loading is
// cleared so a reader never sees loading=false next to stale rows. It
// reports whether the outcome was applied.
func (c *Controller[T]) Resolve(o Outcome[T]) bool {
	if c.policy == DiscardStale && o.Seq != c.seq {
		c.logger.Debug("stale fetch discarded", "seq", o.Seq, "current", c.seq)
		return false
	}
	if o.Err != nil {
		c.state.Err = o.Err
		c.state.Loading = false
		c.logger.Warn("fetch failed", "seq", o.Seq, "page", o.Params.Page, "error", o.Err)
		if c.onError != nil {
			c.onError(o.Err)
		}
		return true
	}

	res := o.Result.Normalize(o.Params.Page)
	c.state.Rows = res.Rows
	c.state.CurrentPage = res.CurrentPage
	c.state.TotalPages = res.TotalPages
	c.state.TotalItems = res.TotalItems
	c.state.Err = nil
	c.state.Loading = false
	return true
}

// State returns a snapshot of the current fetch state.
func (c *Controller[T]) State() State[T] {
	s := c.state
	s.Rows = append([]T(nil), c.state.Rows...)
	if s.Rows == nil {
		s.Rows = []T{}
	}
	return s
}

// Params returns the params of the last issued cycle.
func (c *Controller[T]) Params() domain.QueryParams {
	return c.params
}

// Seq returns the sequence number of the last issued cycle.
func (c *Controller[T]) Seq() uint64 {
	return c.seq
}

// Loading reports whether a cycle is in flight.
func (c *Controller[T]) Loading() bool {
	return c.state.Loading
}
