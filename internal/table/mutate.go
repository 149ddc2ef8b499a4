package table

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmcdole/recon/internal/domain"
)

// TempIDPrefix marks ids assigned locally before the server confirms a create.
const TempIDPrefix = "temp-"

// ErrRowNotFound is returned when an edit or delete targets a row the
// collection does not hold.
var ErrRowNotFound = errors.New("row not in collection")

// IsTempID reports whether id was assigned by Collection.Add.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Entity is a row the collection can mutate optimistically.
type Entity[T any] interface {
	GetID() string
	WithID(id string) T
	Merge(patch T) T
	Clone() T
}

// Mutator sends mutations to the server.
type Mutator[T any] interface {
	Create(ctx context.Context, item T) (domain.Envelope[T], error)
	Update(ctx context.Context, item T) (domain.Envelope[T], error)
	Delete(ctx context.Context, item T) (domain.Envelope[T], error)
}

// MutatorFuncs adapts plain functions to Mutator.
type MutatorFuncs[T any] struct {
	CreateFunc func(ctx context.Context, item T) (domain.Envelope[T], error)
	UpdateFunc func(ctx context.Context, item T) (domain.Envelope[T], error)
	DeleteFunc func(ctx context.Context, item T) (domain.Envelope[T], error)
}

func (m MutatorFuncs[T]) Create(ctx context.Context, item T) (domain.Envelope[T], error) {
	if m.CreateFunc == nil {
		return domain.Envelope[T]{}, errors.New("create not supported")
	}
	return m.CreateFunc(ctx, item)
}

func (m MutatorFuncs[T]) Update(ctx context.Context, item T) (domain.Envelope[T], error) {
	if m.UpdateFunc == nil {
		return domain.Envelope[T]{}, errors.New("update not supported")
	}
	return m.UpdateFunc(ctx, item)
}

func (m MutatorFuncs[T]) Delete(ctx context.Context, item T) (domain.Envelope[T], error) {
	if m.DeleteFunc == nil {
		return domain.Envelope[T]{}, errors.New("delete not supported")
	}
	return m.DeleteFunc(ctx, item)
}

// Op identifies a mutation kind.
type Op int

const (
	OpAdd Op = iota
	OpEdit
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpEdit:
		return "edit"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Callbacks are invoked by Settle.
type Callbacks[T any] struct {
	OnSuccess func(row T)
	OnError   func(message string)
}

// Pending is a mutation already applied locally and waiting for the server.
type Pending[T any] struct {
	Op      Op
	ID      string
	payload T
	before  T
	index   int
	cb      Callbacks[T]
}

// Settlement is the server's answer to a Pending mutation.
type Settlement[T any] struct {
	Pending  Pending[T]
	Envelope domain.Envelope[T]
	Err      error
}

// Run sends the mutation. It touches no collection state and can run off
// the UI loop.
func (p Pending[T]) Run(ctx context.Context, m Mutator[T]) Settlement[T] {
	s := Settlement[T]{Pending: p}
	switch p.Op {
	case OpAdd:
		s.Envelope, s.Err = m.Create(ctx, p.payload)
	case OpEdit:
		s.Envelope, s.Err = m.Update(ctx, p.payload)
	case OpDelete:
		s.Envelope, s.Err = m.Delete(ctx, p.payload)
	default:
		s.Err = fmt.Errorf("unknown mutation %d", p.Op)
	}
	return s
}

// Failed reports whether the mutation must be rolled back.
func (s Settlement[T]) Failed() bool {
	return s.Err != nil || !s.Envelope.Success
}

// Message is the human readable failure reason.
func (s Settlement[T]) Message() string {
	switch {
	case s.Err != nil:
		return s.Err.Error()
	case s.Envelope.Error != "":
		return s.Envelope.Error
	default:
		return domain.UnknownErrorMessage
	}
}

// Reconciled describes what Settle did to the collection.
type Reconciled[T any] struct {
	Op         Op
	Row        T
	RolledBack bool
	Message    string

	// NeedsRefresh is set when a create succeeded without the server
	// returning the canonical record or its id.
	NeedsRefresh bool
}

// Collection is the locally held page of rows a view mutates. It is owned
// by a single view and must only be touched from the UI loop.
type Collection[T Entity[T]] struct {
	rows  []T
	total int
	newID func() string
}

// NewCollection creates a collection holding rows.
func NewCollection[T Entity[T]](rows []T, total int) *Collection[T] {
	c := &Collection[T]{newID: func() string { return TempIDPrefix + uuid.NewString() }}
	c.Reset(rows, total)
	return c
}

// Reset replaces the collection contents, typically after a fetch resolves.
func (c *Collection[T]) Reset(rows []T, total int) {
	c.rows = append(make([]T, 0, len(rows)), rows...)
	c.total = total
}

// Rows returns a copy of the held rows.
func (c *Collection[T]) Rows() []T {
	return append(make([]T, 0, len(c.rows)), c.rows...)
}

// Total returns the locally tracked item count.
func (c *Collection[T]) Total() int {
	return c.total
}

// Len returns the number of held rows.
func (c *Collection[T]) Len() int {
	return len(c.rows)
}

// Find returns the row with id and its index.
func (c *Collection[T]) Find(id string) (T, int, bool) {
	for i, r := range c.rows {
		if r.GetID() == id {
			return r, i, true
		}
	}
	var zero T
	return zero, -1, false
}

func (c *Collection[T]) tempID() string {
	for {
		id := c.newID()
		if _, _, taken := c.Find(id); !taken {
			return id
		}
	}
}

// Add prepends item under a temporary id and bumps the total.
func (c *Collection[T]) Add(item T, cb Callbacks[T]) Pending[T] {
	id := c.tempID()
	c.rows = append([]T{item.WithID(id)}, c.rows...)
	c.total++
	return Pending[T]{Op: OpAdd, ID: id, payload: item.Clone(), index: 0, cb: cb}
}

// Edit shallow-merges item into the row with the same id.
func (c *Collection[T]) Edit(item T, cb Callbacks[T]) (Pending[T], error) {
	id := item.GetID()
	row, i, ok := c.Find(id)
	if !ok {
		return Pending[T]{}, fmt.Errorf("edit %q: %w", id, ErrRowNotFound)
	}
	merged := row.Merge(item)
	c.rows[i] = merged
	return Pending[T]{Op: OpEdit, ID: id, payload: merged.Clone(), before: row.Clone(), index: i, cb: cb}, nil
}

// Delete removes the row with item's id and decrements the total.
func (c *Collection[T]) Delete(item T, cb Callbacks[T]) (Pending[T], error) {
	id := item.GetID()
	row, i, ok := c.Find(id)
	if !ok {
		return Pending[T]{}, fmt.Errorf("delete %q: %w", id, ErrRowNotFound)
	}
	c.rows = append(c.rows[:i:i], c.rows[i+1:]...)
	c.total--
	return Pending[T]{Op: OpDelete, ID: id, payload: row.Clone(), before: row.Clone(), index: i, cb: cb}, nil
}

// Settle reconciles the collection with the server's answer and invokes
// the pending mutation's callbacks.
func (c *Collection[T]) Settle(s Settlement[T]) Reconciled[T] {
	p := s.Pending
	out := Reconciled[T]{Op: p.Op}

	if s.Failed() {
		c.rollback(p)
		out.RolledBack = true
		out.Message = s.Message()
		out.Row = p.before
		if p.cb.OnError != nil {
			p.cb.OnError(out.Message)
		}
		return out
	}

	switch p.Op {
	case OpAdd:
		out.Row, out.NeedsRefresh = c.confirmAdd(p, s.Envelope)
	case OpEdit:
		out.Row = c.confirmEdit(p, s.Envelope)
	case OpDelete:
		out.Row = p.before
	}
	if p.cb.OnSuccess != nil {
		p.cb.OnSuccess(out.Row)
	}
	return out
}

func (c *Collection[T]) confirmAdd(p Pending[T], env domain.Envelope[T]) (T, bool) {
	_, i, ok := c.Find(p.ID)
	var canonical T
	needsRefresh := false
	switch {
	case env.Data != nil:
		canonical = *env.Data
	case env.ID != "":
		canonical = p.payload.WithID(env.ID)
	default:
		canonical = p.payload.WithID(p.ID)
		needsRefresh = true
	}
	if ok {
		c.rows[i] = canonical
	}
	return canonical, needsRefresh
}

func (c *Collection[T]) confirmEdit(p Pending[T], env domain.Envelope[T]) T {
	_, i, ok := c.Find(p.ID)
	if !ok {
		return p.payload
	}
	if env.Data != nil {
		c.rows[i] = *env.Data
	}
	return c.rows[i]
}

func (c *Collection[T]) rollback(p Pending[T]) {
	switch p.Op {
	case OpAdd:
		if _, i, ok := c.Find(p.ID); ok {
			c.rows = append(c.rows[:i:i], c.rows[i+1:]...)
			c.total--
		}
	case OpEdit:
		if _, i, ok := c.Find(p.ID); ok {
			c.rows[i] = p.before
		}
	case OpDelete:
		if _, _, ok := c.Find(p.ID); ok {
			return
		}
		i := min(p.index, len(c.rows))
		c.rows = append(c.rows[:i:i], append([]T{p.before}, c.rows[i:]...)...)
		c.total++
	}
}
