package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "ws://localhost:5000/ws/terminal", cfg.Stream.URL)
	assert.Equal(t, []string{"raw_extract:", "lines/sec"}, cfg.Stream.ProgressMarkers)
	assert.Equal(t, 10, cfg.Table.PageSize)
	assert.Equal(t, "/ws/terminal", cfg.Relay.Path)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  url: http://recon.internal:8080
  timeout: 5s
table:
  page_size: 25
stream:
  progress_markers: ["ETA"]
`), 0644))

	cfg, err := load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, "http://recon.internal:8080", cfg.Server.URL)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 25, cfg.Table.PageSize)
	assert.Equal(t, []string{"ETA"}, cfg.Stream.ProgressMarkers)
	assert.Equal(t, "ws://localhost:5000/ws/terminal", cfg.Stream.URL, "unset keys keep defaults")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RECON_SERVER_URL", "http://from-env:5000")
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("table:\n  page_size: 50\n"), 0644))

	cfg, err := load(viper.New(), file)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:5000", cfg.Server.URL)
	assert.Equal(t, 50, cfg.Table.PageSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("table:\n  page_size: 0\n"), 0644))

	_, err := load(viper.New(), file)
	assert.ErrorContains(t, err, "page_size")
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Server.URL = "http://saved:5000"
	cfg.Table.PageSize = 100
	cfg.Stream.AutoClear = true

	require.NoError(t, save(viper.New(), cfg, dir))

	loaded, err := load(viper.New(), filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://saved:5000", loaded.Server.URL)
	assert.Equal(t, 100, loaded.Table.PageSize)
	assert.True(t, loaded.Stream.AutoClear)
	assert.Equal(t, cfg.Server.Timeout, loaded.Server.Timeout)
}
