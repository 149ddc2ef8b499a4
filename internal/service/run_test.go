package service

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/recon/internal/catalog"
	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/log"
	"github.com/mmcdole/recon/internal/store"
	"github.com/mmcdole/recon/internal/stream"
)

type scriptProcess struct {
	out  io.Reader
	code int
}

func (p *scriptProcess) Output() io.Reader  { return p.out }
func (p *scriptProcess) Wait() (int, error) { return p.code, nil }
func (p *scriptProcess) Kill() error        { return nil }

type scriptExecutor struct {
	output string
	code   int
}

func (e scriptExecutor) Start(_ context.Context, _ string) (stream.Process, error) {
	return &scriptProcess{out: strings.NewReader(e.output), code: e.code}, nil
}

type fakePrograms struct {
	names []string
	err   error
	calls int
}

func (f *fakePrograms) ProgramNames(context.Context) ([]string, error) {
	f.calls++
	return f.names, f.err
}

func newRunService(t *testing.T, exec stream.Executor, programs domain.ProgramRepository) (*RunService, *store.Store) {
	t.Helper()
	srv := httptest.NewServer(stream.NewRelay(exec, stream.WithRelayLogger(log.NullLogger())))
	t.Cleanup(srv.Close)

	st, err := store.Open("", "")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cat, err := catalog.Default()
	require.NoError(t, err)

	runner := stream.NewRunner("ws"+strings.TrimPrefix(srv.URL, "http"), stream.WithRunnerLogger(log.NullLogger()))
	svc := NewRunService(runner, st, programs, cat, "deep", log.NullLogger())
	t.Cleanup(func() { svc.Close() })
	return svc, st
}

func TestRunServiceCommand(t *testing.T) {
	svc, _ := newRunService(t, scriptExecutor{}, nil)

	cmd, err := svc.Command(RunRequest{Preset: "subdomain", Program: " acme ", Target: "acme.com", LastRun: true, Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, `deep -m subdomain -p "acme" -t "acme.com" -lr -v`, cmd)

	// multi does not accept -lr
	cmd, err = svc.Command(RunRequest{Preset: "multi", Program: "acme", LastRun: true})
	require.NoError(t, err)
	assert.Equal(t, `deep -m multi -p "acme" -t ""`, cmd)

	_, err = svc.Command(RunRequest{Preset: "asn", Program: "acme"})
	assert.EqualError(t, err, "ASN Number is required")

	_, err = svc.Command(RunRequest{Preset: "asn", Target: "1"})
	assert.EqualError(t, err, "program is required")

	_, err = svc.Command(RunRequest{Preset: "bogus", Program: "acme"})
	assert.Error(t, err)
}

func TestRunServiceRecordsFinishedRun(t *testing.T) {
	svc, st := newRunService(t, scriptExecutor{output: "\x1b[32mok\x1b[0m\n", code: 0}, nil)

	sess, err := svc.Start("deep -m web")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome := sess.Stream(ctx, nil)
	require.Equal(t, stream.StatusCompleted, outcome)

	svc.Record(sess)
	svc.Record(sess)

	runs, err := st.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, sess.ID, runs[0].ID)
	assert.Equal(t, "deep -m web", runs[0].Command)
	assert.Equal(t, "completed", runs[0].Status)
	require.NotNil(t, runs[0].ExitCode)
	assert.Equal(t, 0, *runs[0].ExitCode)
	assert.Equal(t, "ok", runs[0].Tail)

	history, err := svc.History(0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRunServiceIgnoresLiveSession(t *testing.T) {
	svc, st := newRunService(t, scriptExecutor{}, nil)

	sess, err := svc.Start("deep -m web")
	require.NoError(t, err)
	require.True(t, svc.IsCurrent(sess.ID))

	svc.Record(sess)
	runs, err := st.RecentRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, svc.Cancel())
	runs, err = st.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "errored", runs[0].Status)
	assert.Equal(t, stream.CancelledText, runs[0].Message)
}

func TestRunServiceRejectsEmptyCommand(t *testing.T) {
	svc, _ := newRunService(t, scriptExecutor{}, nil)

	_, err := svc.Start("   ")
	assert.ErrorIs(t, err, domain.ErrEmptyCommand)
}

func TestRunServiceProgramsCached(t *testing.T) {
	programs := &fakePrograms{names: []string{"acme", "globex"}}
	svc, _ := newRunService(t, scriptExecutor{}, programs)

	names, err := svc.Programs(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "globex"}, names)

	_, err = svc.Programs(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, programs.calls)

	_, err = svc.Programs(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, programs.calls)

	programs.err = errors.New("boom")
	_, err = svc.Programs(context.Background(), true)
	assert.Error(t, err)
}
