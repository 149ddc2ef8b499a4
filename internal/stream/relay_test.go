package stream

import (
	"context"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialRelay(t *testing.T, rl *Relay) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(rl)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestRelayRejectsInvalidJSON(t *testing.T) {
	conn := dialRelay(t, NewRelay(&fakeExecutor{}))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	m := readMessage(t, conn)
	assert.Equal(t, TypeError, m.Type)
	assert.Equal(t, ErrTextInvalidJSON, m.Error)
}

func TestRelayRejectsMissingCommand(t *testing.T) {
	conn := dialRelay(t, NewRelay(&fakeExecutor{}))

	require.NoError(t, conn.WriteJSON(Message{Type: TypeRun}))
	assert.Equal(t, ErrTextMissingCommand, readMessage(t, conn).Error)

	require.NoError(t, conn.WriteJSON(Message{Type: "exec", Command: "ls"}))
	assert.Equal(t, ErrTextMissingCommand, readMessage(t, conn).Error)
}

func TestRelayStreamsOutputThenEnd(t *testing.T) {
	conn := dialRelay(t, NewRelay(&fakeExecutor{chunks: []string{"a", "b"}, code: 2}))
	require.NoError(t, conn.WriteJSON(RunMessage("scan")))

	assert.Equal(t, OutputMessage("a"), readMessage(t, conn))
	assert.Equal(t, OutputMessage("b"), readMessage(t, conn))

	end := readMessage(t, conn)
	assert.Equal(t, TypeEnd, end.Type)
	require.NotNil(t, end.Code)
	assert.Equal(t, 2, *end.Code)
}

func TestRelayJoinsRunesSplitAcrossReads(t *testing.T) {
	conn := dialRelay(t, NewRelay(&fakeExecutor{chunks: []string{"caf\xc3", "\xa9 done"}}))
	require.NoError(t, conn.WriteJSON(RunMessage("scan")))

	var out strings.Builder
	for {
		msg := readMessage(t, conn)
		if msg.Type == TypeEnd {
			break
		}
		require.Equal(t, TypeOutput, msg.Type)
		out.WriteString(msg.Data)
	}
	assert.Equal(t, "café done", out.String())
}

func TestCompleteRunes(t *testing.T) {
	assert.Equal(t, 3, completeRunes([]byte("caf\xc3")))
	assert.Equal(t, 2, completeRunes([]byte("ok\xe2\x96")))
	assert.Equal(t, 5, completeRunes([]byte("café")))
	assert.Equal(t, 2, completeRunes([]byte("a\xff")))
	assert.Equal(t, 0, completeRunes(nil))
}

func TestPTYExecutor(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell available")
	}
	proc, err := PTYExecutor{}.Start(context.Background(), "printf 'hi'; exit 4")
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}

	var out []byte
	buf := make([]byte, 64)
	for {
		n, err := proc.Output().Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			break
		}
	}
	code, err := proc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 4, code)
	assert.Contains(t, string(out), "hi")
}
