package domain

import (
	"context"
	"time"
)

// ResourceRepository provides paginated access to recon API collections
type ResourceRepository interface {
	// List returns one page of a resource
	List(ctx context.Context, res Resource, q QueryParams) (PageResult[Record], error)

	// Create, Update and Delete return the server envelope as-is; a
	// non-nil error means the request itself failed
	Create(ctx context.Context, res Resource, item Record) (Envelope[Record], error)
	Update(ctx context.Context, res Resource, item Record) (Envelope[Record], error)
	Delete(ctx context.Context, res Resource, item Record) (Envelope[Record], error)
}

// ProgramRepository lists program names for the run view picker
type ProgramRepository interface {
	ProgramNames(ctx context.Context) ([]string, error)
}

// RunRecord is the persisted summary of one streamed run.
type RunRecord struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Tail      string    `json:"tail,omitempty"`
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// RunHistory persists finished runs
type RunHistory interface {
	SaveRun(rec RunRecord) error
	RecentRuns(limit int) ([]RunRecord, error)
}

// SettingsStore persists small operator preferences
type SettingsStore interface {
	GetInt(key string) (int, bool)
	SetInt(key string, value int) error
}
