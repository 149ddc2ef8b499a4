package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/recon/internal/domain"
)

func run(i int) domain.RunRecord {
	code := i
	start := time.Date(2025, 1, 1, 0, 0, i, 0, time.UTC)
	return domain.RunRecord{
		ID:        fmt.Sprintf("run-%d", i),
		Command:   fmt.Sprintf("recon -m asn -t %d", i),
		Status:    "completed",
		ExitCode:  &code,
		StartedAt: start,
		EndedAt:   start.Add(time.Second),
	}
}

func stores(t *testing.T) map[string]*Store {
	disk, err := Open(t.TempDir(), "http://localhost:5000")
	require.NoError(t, err)
	t.Cleanup(func() { disk.Close() })

	mem, err := Open("", "")
	require.NoError(t, err)
	return map[string]*Store{"disk": disk, "memory": mem}
}

func TestSettingsRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok := s.GetInt("page_size")
			assert.False(t, ok)

			require.NoError(t, s.SetInt("page_size", 50))
			v, ok := s.GetInt("page_size")
			assert.True(t, ok)
			assert.Equal(t, 50, v)
		})
	}
}

func TestSettingsPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "http://localhost:5000")
	require.NoError(t, err)
	require.NoError(t, s.SetInt("page_size", 25))
	require.NoError(t, s.Close())

	s, err = Open(dir, "http://LOCALHOST:5000/")
	require.NoError(t, err)
	defer s.Close()

	v, ok := s.GetInt("page_size")
	require.True(t, ok)
	assert.Equal(t, 25, v)
}

func TestServerScopedDatabases(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir, "http://a:5000")
	require.NoError(t, err)
	require.NoError(t, a.SetInt("page_size", 100))
	require.NoError(t, a.Close())

	b, err := Open(dir, "http://b:5000")
	require.NoError(t, err)
	defer b.Close()
	_, ok := b.GetInt("page_size")
	assert.False(t, ok)
}

func TestRunHistoryNewestFirstAndPruned(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.SetMaxRuns(3)
			for i := 1; i <= 5; i++ {
				require.NoError(t, s.SaveRun(run(i)))
			}

			runs, err := s.RecentRuns(10)
			require.NoError(t, err)
			require.Len(t, runs, 3)
			assert.Equal(t, "run-5", runs[0].ID)
			assert.Equal(t, "run-3", runs[2].ID)
			require.NotNil(t, runs[0].ExitCode)
			assert.Equal(t, 5, *runs[0].ExitCode)
			assert.Equal(t, time.Second, runs[0].Duration())

			limited, err := s.RecentRuns(1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)
		})
	}
}
