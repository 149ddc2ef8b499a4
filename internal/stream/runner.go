package stream

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/mmcdole/recon/internal/domain"
)

// Runner owns the single live session. Starting a run force-closes the
// previous one.
type Runner struct {
	url     string
	dialer  Dialer
	matcher ProgressMatcher
	logger  *slog.Logger

	mu      sync.Mutex
	current *Session
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithDialer overrides the gorilla dialer.
func WithDialer(d Dialer) RunnerOption {
	return func(r *Runner) { r.dialer = d }
}

// WithMatcher overrides progress detection.
func WithMatcher(m ProgressMatcher) RunnerOption {
	return func(r *Runner) { r.matcher = m }
}

// WithRunnerLogger sets the logger handed to sessions.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner targeting the terminal socket at url.
func NewRunner(url string, opts ...RunnerOption) *Runner {
	r := &Runner{
		url:     url,
		dialer:  NewWebSocketDialer(defaultHandshakeTimeout),
		matcher: NewMarkerMatcher(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start closes any live session and returns a new one in the connecting
// state. The caller opens it with Session.Open.
func (r *Runner) Start(command string) (*Session, error) {
	if strings.TrimSpace(command) == "" {
		return nil, domain.ErrEmptyCommand
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		if r.current.Status().Live() {
			r.logger.Info("closing previous run", "session", r.current.ID)
		}
		r.current.Close()
	}
	s := newSession(r.url, command, r.dialer, r.matcher, r.logger)
	s.begin()
	r.current = s
	r.logger.Info("run started", "session", s.ID, "command", command)
	return s, nil
}

// Current returns the most recent session, or nil.
func (r *Runner) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// IsCurrent reports whether id belongs to the most recent session.
func (r *Runner) IsCurrent(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil && r.current.ID == id
}

// Close closes the current session. Call it when the owning view exits.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	return r.current.Close()
}

// URL returns the socket address sessions dial.
func (r *Runner) URL() string {
	return r.url
}
