// Package stream runs recon commands over a WebSocket: the client-side
// session that submits a command and accumulates its output, and the relay
// that executes commands and streams the output back.
package stream

import (
	"encoding/json"
	"fmt"
)

// Message types on the terminal socket.
const (
	TypeRun    = "run"
	TypeOutput = "output"
	TypeEnd    = "end"
	TypeError  = "error"
)

// Relay error texts.
const (
	ErrTextInvalidJSON    = "Invalid JSON"
	ErrTextMissingCommand = "Missing or invalid command"
	ErrTextBusy           = "A command is already running"
)

// Message is the envelope for every frame on the terminal socket.
type Message struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Data    string `json:"data,omitempty"`
	Code    *int   `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunMessage asks the relay to execute command.
func RunMessage(command string) Message {
	return Message{Type: TypeRun, Command: command}
}

// OutputMessage carries a fragment of process output.
func OutputMessage(data string) Message {
	return Message{Type: TypeOutput, Data: data}
}

// EndMessage reports process exit.
func EndMessage(code int) Message {
	return Message{Type: TypeEnd, Code: &code}
}

// ErrorMessage reports a failure.
func ErrorMessage(text string) Message {
	return Message{Type: TypeError, Error: text}
}

// Decode parses a frame.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

// Terminal reports whether the message ends a run.
func (m Message) Terminal() bool {
	return m.Type == TypeEnd || m.Type == TypeError
}
