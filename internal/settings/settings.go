// Package settings holds process-wide operator preferences. A Provider is
// loaded once at startup, persisted on every change, and observable.
package settings

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/table"
)

// KeyPageSize is the persisted key of the shared page size.
const KeyPageSize = "page_size"

// Provider exposes the shared page size.
type Provider struct {
	store  domain.SettingsStore
	logger *slog.Logger

	mu       sync.Mutex
	pageSize int
	subs     map[int]func(int)
	nextSub  int
}

// New loads the page size from store, falling back to fallback (or
// domain.DefaultPageSize) when nothing valid is stored.
func New(store domain.SettingsStore, fallback int, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if !valid(fallback) {
		fallback = domain.DefaultPageSize
	}
	p := &Provider{store: store, logger: logger, pageSize: fallback, subs: make(map[int]func(int))}
	if store != nil {
		if v, ok := store.GetInt(KeyPageSize); ok && valid(v) {
			p.pageSize = v
		}
	}
	return p
}

// NewMemory returns a provider that persists nothing.
func NewMemory(pageSize int) *Provider {
	return New(nil, pageSize, nil)
}

func valid(n int) bool {
	return slices.Contains(table.PageSizes, n)
}

// PageSize returns the current page size.
func (p *Provider) PageSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageSize
}

// SetPageSize updates, persists and broadcasts the page size.
func (p *Provider) SetPageSize(n int) error {
	if !valid(n) {
		return fmt.Errorf("page size %d not in %v", n, table.PageSizes)
	}

	p.mu.Lock()
	if p.pageSize == n {
		p.mu.Unlock()
		return nil
	}
	p.pageSize = n
	subs := make([]func(int), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	var err error
	if p.store != nil {
		if err = p.store.SetInt(KeyPageSize, n); err != nil {
			p.logger.Warn("failed to persist page size", "page_size", n, "error", err)
			err = fmt.Errorf("persist page size: %w", err)
		}
	}
	for _, fn := range subs {
		fn(n)
	}
	return err
}

// Subscribe registers fn for page size changes and returns a function
// that removes it.
func (p *Provider) Subscribe(fn func(pageSize int)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}
