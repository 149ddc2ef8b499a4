package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/recon/internal/catalog"
	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/stream"
)

const (
	// DefaultHistoryLimit is how many runs the run view lists.
	DefaultHistoryLimit = 50

	historyTailLines = 20
	programsTTL      = 5 * time.Minute
)

// RunRequest is what the run view collects before starting a preset.
type RunRequest struct {
	Preset  string
	Program string
	Target  string
	LastRun bool
	Verbose bool
}

// RunService starts streamed runs, builds preset commands and records
// finished runs.
type RunService struct {
	runner   *stream.Runner
	history  domain.RunHistory
	programs domain.ProgramRepository
	catalog  *catalog.Catalog
	binary   string
	logger   *slog.Logger

	mu        sync.Mutex
	recorded  map[string]bool
	names     []string
	fetchedAt time.Time
}

// NewRunService creates a new run service. history and programs may be nil.
func NewRunService(runner *stream.Runner, history domain.RunHistory, programs domain.ProgramRepository, cat *catalog.Catalog, binary string, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		runner:   runner,
		history:  history,
		programs: programs,
		catalog:  cat,
		binary:   binary,
		logger:   logger,
		recorded: make(map[string]bool),
	}
}

// Presets returns the run presets in catalog order
func (s *RunService) Presets() []domain.RunPreset {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.Presets
}

// Command renders the command line for a preset request.
func (s *RunService) Command(req RunRequest) (string, error) {
	if s.catalog == nil {
		return "", errors.New("no catalog loaded")
	}
	preset, ok := s.catalog.Preset(req.Preset)
	if !ok {
		return "", fmt.Errorf("unknown preset %q", req.Preset)
	}
	program := strings.TrimSpace(req.Program)
	target := strings.TrimSpace(req.Target)
	if program == "" {
		return "", errors.New("program is required")
	}
	if preset.NeedsTarget && target == "" {
		label := preset.TargetLabel
		if label == "" {
			label = "target"
		}
		return "", fmt.Errorf("%s is required", label)
	}
	return s.catalog.Command(catalog.Invocation{
		Binary:  s.binary,
		Mode:    preset.Mode,
		Program: program,
		Target:  target,
		LastRun: req.LastRun && preset.LastRun,
		Verbose: req.Verbose,
	})
}

// Start closes the live run, if any, and returns a new connecting session.
func (s *RunService) Start(command string) (*stream.Session, error) {
	return s.runner.Start(strings.TrimSpace(command))
}

// Current returns the most recent session, or nil
func (s *RunService) Current() *stream.Session {
	return s.runner.Current()
}

// IsCurrent reports whether id is the most recent session
func (s *RunService) IsCurrent(id string) bool {
	return s.runner.IsCurrent(id)
}

// Cancel force-closes the live run and records it.
func (s *RunService) Cancel() error {
	sess := s.runner.Current()
	if sess == nil {
		return nil
	}
	live := sess.Status().Live()
	err := sess.Close()
	if live {
		s.Record(sess)
	}
	return err
}

// Close shuts the runner down. Call it when the application exits.
func (s *RunService) Close() error {
	return s.Cancel()
}

// Record persists a finished session once. Live sessions are ignored.
func (s *RunService) Record(sess *stream.Session) {
	if sess == nil || sess.Status().Live() || sess.Status() == stream.StatusIdle {
		return
	}

	s.mu.Lock()
	if s.recorded[sess.ID] {
		s.mu.Unlock()
		return
	}
	s.recorded[sess.ID] = true
	s.mu.Unlock()

	if s.history == nil {
		return
	}

	rec := domain.RunRecord{
		ID:        sess.ID,
		Command:   sess.Command,
		Status:    sess.Outcome().String(),
		Message:   sess.ErrorMessage(),
		StartedAt: sess.StartedAt,
		EndedAt:   sess.EndedAt,
		Tail:      stream.Plain(sess.Buffer().Tail(historyTailLines)),
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now()
	}
	if code, ok := sess.ExitCode(); ok {
		rec.ExitCode = &code
	}

	if err := s.history.SaveRun(rec); err != nil {
		s.logger.Error("failed to save run", "session", sess.ID, "error", err)
		return
	}
	s.logger.Info("run finished", "session", sess.ID, "status", rec.Status, "took", rec.Duration())
}

// History returns recent runs, newest first.
func (s *RunService) History(limit int) ([]domain.RunRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.history.RecentRuns(limit)
}

// Programs returns program names for the picker. Results are cached
// briefly; refresh forces a refetch.
func (s *RunService) Programs(ctx context.Context, refresh bool) ([]string, error) {
	if s.programs == nil {
		return nil, nil
	}

	s.mu.Lock()
	if !refresh && s.names != nil && time.Since(s.fetchedAt) < programsTTL {
		names := append([]string(nil), s.names...)
		s.mu.Unlock()
		return names, nil
	}
	s.mu.Unlock()

	names, err := s.programs.ProgramNames(ctx)
	if err != nil {
		s.logger.Error("failed to load programs", "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.names = append([]string(nil), names...)
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return names, nil
}
