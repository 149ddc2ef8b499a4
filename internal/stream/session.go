package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// TransportErrorText is recorded for any socket-level failure.
const TransportErrorText = "WebSocket error"

// CancelledText is recorded when a live session is force-closed.
const CancelledText = "Run cancelled"

// Status is a session lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusStreaming
	StatusCompleted
	StatusErrored
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusStreaming:
		return "streaming"
	case StatusCompleted:
		return "completed"
	case StatusErrored:
		return "errored"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Live reports whether the session still holds or is acquiring a socket.
func (s Status) Live() bool {
	return s == StatusConnecting || s == StatusStreaming
}

// Conn is the subset of *websocket.Conn a session uses.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens the terminal socket.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebSocketDialer dials with gorilla/websocket.
type WebSocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

// NewWebSocketDialer returns a dialer with a handshake timeout.
func NewWebSocketDialer(handshake time.Duration) WebSocketDialer {
	return WebSocketDialer{Dialer: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshake,
	}}
}

func (d WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// EventKind identifies an Event.
type EventKind int

const (
	// EventOpened means the socket is up and the run message was sent.
	EventOpened EventKind = iota
	// EventMessage carries an inbound frame.
	EventMessage
	// EventTransportError means the socket failed.
	EventTransportError
	// EventClosed means the reader has stopped. It is the last event.
	EventClosed
)

// Event is produced off the UI loop and applied with Session.Apply.
type Event struct {
	SessionID string
	Kind      EventKind
	Msg       Message
	Err       error
}

// Session is one run of one command over one socket. Apply, Close and the
// accessors must be called from a single goroutine (the UI loop); Open and
// Next block and belong in background commands.
type Session struct {
	ID        string
	Command   string
	URL       string
	StartedAt time.Time
	EndedAt   time.Time

	dialer Dialer
	logger *slog.Logger

	status   Status
	outcome  Status
	output   *Buffer
	errMsg   string
	err      error
	exitCode *int

	mu      sync.Mutex
	conn    Conn
	reading bool
	closing bool
	done    chan struct{}
	once    sync.Once
	events  chan Event
}

func newSession(url, command string, dialer Dialer, matcher ProgressMatcher, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:      uuid.NewString(),
		Command: command,
		URL:     url,
		dialer:  dialer,
		logger:  logger,
		status:  StatusIdle,
		outcome: StatusIdle,
		output:  NewBuffer(matcher),
		done:    make(chan struct{}),
		events:  make(chan Event, 64),
	}
}

func (s *Session) begin() {
	s.status = StatusConnecting
	s.StartedAt = time.Now()
}

// Open dials the socket, sends the run message and starts the reader. It
// returns EventOpened or EventTransportError.
func (s *Session) Open(ctx context.Context) Event {
	conn, err := s.dialer.Dial(ctx, s.URL)
	if err != nil {
		return s.event(Event{Kind: EventTransportError, Err: fmt.Errorf("dial %s: %w", s.URL, err)})
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		conn.Close()
		return s.event(Event{Kind: EventClosed})
	}
	s.conn = conn
	s.mu.Unlock()

	if err := conn.WriteJSON(RunMessage(s.Command)); err != nil {
		return s.event(Event{Kind: EventTransportError, Err: fmt.Errorf("send run: %w", err)})
	}

	s.mu.Lock()
	s.reading = true
	s.mu.Unlock()
	go s.readLoop(conn)
	return s.event(Event{Kind: EventOpened})
}

func (s *Session) event(ev Event) Event {
	ev.SessionID = s.ID
	return ev
}

func (s *Session) readLoop(conn Conn) {
	defer close(s.events)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if !closing {
				s.send(Event{Kind: EventTransportError, Err: err})
			}
			s.send(Event{Kind: EventClosed})
			return
		}
		msg, err := Decode(data)
		if err != nil {
			s.logger.Warn("ignoring malformed frame", "session", s.ID, "error", err)
			continue
		}
		if !s.send(Event{Kind: EventMessage, Msg: msg}) {
			return
		}
	}
}

func (s *Session) send(ev Event) bool {
	select {
	case s.events <- s.event(ev):
		return true
	case <-s.done:
		return false
	}
}

// Next blocks until the reader produces an event. Once the reader stops it
// keeps returning EventClosed.
func (s *Session) Next() Event {
	ev, ok := <-s.events
	if !ok {
		return s.event(Event{Kind: EventClosed})
	}
	return ev
}

// Apply advances the state machine. It reports whether the event changed
// anything the view shows.
func (s *Session) Apply(ev Event) bool {
	if ev.SessionID != "" && ev.SessionID != s.ID {
		return false
	}
	switch ev.Kind {
	case EventOpened:
		return false

	case EventMessage:
		if !s.status.Live() {
			return false
		}
		s.status = StatusStreaming
		switch ev.Msg.Type {
		case TypeOutput:
			s.output.Write(ev.Msg.Data)
		case TypeEnd:
			s.exitCode = ev.Msg.Code
			s.finish(StatusCompleted, "", nil)
		case TypeError:
			s.finish(StatusErrored, ev.Msg.Error, nil)
		default:
			s.logger.Debug("ignoring frame", "session", s.ID, "type", ev.Msg.Type)
		}
		return true

	case EventTransportError:
		if !s.status.Live() {
			return false
		}
		s.logger.Warn("stream transport failed", "session", s.ID, "error", ev.Err)
		s.finish(StatusErrored, TransportErrorText, ev.Err)
		s.mu.Lock()
		reading := s.reading
		s.mu.Unlock()
		if !reading {
			s.status = StatusClosed
		}
		return true

	case EventClosed:
		if s.status == StatusClosed {
			return false
		}
		if s.status.Live() {
			s.finish(StatusErrored, TransportErrorText, errors.New("connection closed before end"))
		}
		s.status = StatusClosed
		return true
	}
	return false
}

func (s *Session) finish(outcome Status, msg string, err error) {
	s.status = outcome
	s.outcome = outcome
	s.errMsg = msg
	s.err = err
	s.EndedAt = time.Now()
	s.closeConn()
}

// Close force-closes the socket. A live session ends as errored with
// CancelledText.
func (s *Session) Close() error {
	if s.status.Live() {
		s.outcome = StatusErrored
		s.errMsg = CancelledText
		s.EndedAt = time.Now()
	}
	s.status = StatusClosed
	return s.closeConn()
}

func (s *Session) closeConn() error {
	s.once.Do(func() { close(s.done) })
	s.mu.Lock()
	s.closing = true
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status { return s.status }

// Outcome returns how the run ended: StatusCompleted, StatusErrored, or
// the current state while the run is still live.
func (s *Session) Outcome() Status {
	if s.outcome == StatusIdle {
		return s.status
	}
	return s.outcome
}

// ErrorMessage returns the recorded failure text.
func (s *Session) ErrorMessage() string { return s.errMsg }

// Err returns the underlying transport error, if any.
func (s *Session) Err() error { return s.err }

// ExitCode returns the code reported by the end message.
func (s *Session) ExitCode() (int, bool) {
	if s.exitCode == nil {
		return 0, false
	}
	return *s.exitCode, true
}

// Output returns the accumulated output.
func (s *Session) Output() string { return s.output.String() }

// Buffer exposes the output buffer.
func (s *Session) Buffer() *Buffer { return s.output }

// Stream drives the session to completion on the calling goroutine,
// invoking onUpdate after every applied event. It is the headless
// counterpart of the UI loop.
func (s *Session) Stream(ctx context.Context, onUpdate func(Event)) Status {
	ev := s.Open(ctx)
	s.Apply(ev)
	if onUpdate != nil {
		onUpdate(ev)
	}
	if ev.Kind != EventOpened {
		return s.Outcome()
	}

	stop := context.AfterFunc(ctx, func() { s.closeConn() })
	defer stop()

	for s.Status() != StatusClosed {
		ev := s.Next()
		if ctx.Err() != nil && s.Status().Live() {
			s.Close()
		}
		if s.Apply(ev) && onUpdate != nil {
			onUpdate(ev)
		}
	}
	return s.Outcome()
}
