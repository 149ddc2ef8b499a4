package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/creack/pty"
	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 10 * time.Second

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	readChunkSize  = 4096
)

// DefaultRelayPath is where the relay mounts its socket.
const DefaultRelayPath = "/ws/terminal"

// Process is a running command.
type Process interface {
	// Output streams combined stdout and stderr until the process exits.
	Output() io.Reader
	// Wait blocks until exit and returns the exit code.
	Wait() (int, error)
	// Kill terminates the process.
	Kill() error
}

// Executor starts commands for the relay.
type Executor interface {
	Start(ctx context.Context, command string) (Process, error)
}

// PTYExecutor runs commands through a shell attached to a pseudo-terminal,
// so tools keep their colour and progress output.
type PTYExecutor struct {
	Shell string
	Dir   string
	Env   []string
}

func (e PTYExecutor) Start(ctx context.Context, command string) (Process, error) {
	shell := e.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = e.Dir
	if len(e.Env) > 0 {
		cmd.Env = e.Env
	}
	f, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	return &ptyProcess{cmd: cmd, pty: f}, nil
}

type ptyProcess struct {
	cmd *exec.Cmd
	pty *os.File
}

func (p *ptyProcess) Output() io.Reader {
	return eioReader{p.pty}
}

func (p *ptyProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	p.pty.Close()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		return exitErr.ExitCode(), nil
	default:
		return -1, err
	}
}

func (p *ptyProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// eioReader turns the EIO a pty master returns after the child exits into
// io.EOF.
type eioReader struct {
	r io.Reader
}

func (e eioReader) Read(b []byte) (int, error) {
	n, err := e.r.Read(b)
	if errors.Is(err, syscall.EIO) {
		err = io.EOF
	}
	return n, err
}

// Relay serves the terminal socket: it accepts run messages, executes the
// command and streams output, then an end message with the exit code.
type Relay struct {
	exec     Executor
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithCheckOrigin overrides the upgrader origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) RelayOption {
	return func(rl *Relay) { rl.upgrader.CheckOrigin = fn }
}

// WithRelayLogger sets the relay logger.
func WithRelayLogger(l *slog.Logger) RelayOption {
	return func(rl *Relay) {
		if l != nil {
			rl.logger = l
		}
	}
}

// NewRelay creates a relay that runs commands with exec.
func NewRelay(exec Executor, opts ...RelayOption) *Relay {
	rl := &Relay{
		exec: exec,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// ServeHTTP upgrades the request and serves one terminal client.
func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := rl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rl.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &relayClient{
		relay:  rl,
		conn:   conn,
		send:   make(chan Message, 256),
		ctx:    ctx,
		cancel: cancel,
		logger: rl.logger.With("remote", r.RemoteAddr),
	}
	c.logger.Info("terminal client connected")

	go c.writePump()
	c.readPump()
}

type relayClient struct {
	relay  *Relay
	conn   *websocket.Conn
	send   chan Message
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	runs    sync.WaitGroup
}

func (c *relayClient) readPump() {
	defer func() {
		c.cancel()
		c.runs.Wait()
		close(c.send)
		c.logger.Info("terminal client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("terminal read failed", "error", err)
			}
			return
		}
		c.handle(data)
	}
}

func (c *relayClient) handle(data []byte) {
	msg, err := Decode(data)
	if err != nil {
		c.emit(ErrorMessage(ErrTextInvalidJSON))
		return
	}
	if msg.Type != TypeRun || strings.TrimSpace(msg.Command) == "" {
		c.emit(ErrorMessage(ErrTextMissingCommand))
		return
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		c.emit(ErrorMessage(ErrTextBusy))
		return
	}
	c.running = true
	c.mu.Unlock()

	c.runs.Add(1)
	go c.run(msg.Command)
}

func (c *relayClient) run(command string) {
	defer c.runs.Done()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	log := c.logger.With("command", command)
	log.Info("executing")
	start := time.Now()

	proc, err := c.relay.exec.Start(c.ctx, command)
	if err != nil {
		log.Error("start failed", "error", err)
		c.emit(ErrorMessage(err.Error()))
		return
	}

	buf := make([]byte, readChunkSize)
	out := proc.Output()
	var carry []byte
	for {
		n, err := out.Read(buf)
		if n > 0 {
			data := append(carry, buf[:n]...)
			cut := completeRunes(data)
			if cut > 0 {
				c.emit(OutputMessage(string(data[:cut])))
			}
			carry = append([]byte(nil), data[cut:]...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn("output read failed", "error", err)
			}
			break
		}
	}
	if len(carry) > 0 {
		c.emit(OutputMessage(string(carry)))
	}

	code, err := proc.Wait()
	if err != nil {
		log.Error("wait failed", "error", err)
		c.emit(ErrorMessage(err.Error()))
		return
	}
	log.Info("finished", "code", code, "duration", time.Since(start))
	c.emit(EndMessage(code))
}

// completeRunes returns the length of the prefix of b that does not end
// in a partial UTF-8 sequence. Invalid bytes count as complete.
func completeRunes(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if !utf8.FullRune(b[i:]) {
			return i
		}
		break
	}
	return len(b)
}

// emit queues a frame unless the client has gone away.
func (c *relayClient) emit(m Message) {
	select {
	case c.send <- m:
	case <-c.ctx.Done():
	}
}

func (c *relayClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case m, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(m); err != nil {
				c.cancel()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}
