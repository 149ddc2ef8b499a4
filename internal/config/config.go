package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Table   TableConfig   `mapstructure:"table"`
	Storage StorageConfig `mapstructure:"storage"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds recon API configuration
type ServerConfig struct {
	URL     string        `mapstructure:"url"`     // e.g. http://localhost:5000
	Timeout time.Duration `mapstructure:"timeout"` // per request
}

// StreamConfig holds terminal socket configuration
type StreamConfig struct {
	URL              string        `mapstructure:"url"` // e.g. ws://localhost:5000/ws/terminal
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ProgressMarkers  []string      `mapstructure:"progress_markers"`
	Binary           string        `mapstructure:"binary"`     // recon tool invoked by run presets
	AutoClear        bool          `mapstructure:"auto_clear"` // clear output after a successful run
}

// RelayConfig holds configuration for `recon relay`
type RelayConfig struct {
	Listen string `mapstructure:"listen"`
	Path   string `mapstructure:"path"`
	Shell  string `mapstructure:"shell"`
	Dir    string `mapstructure:"dir"`
}

// TableConfig holds table defaults
type TableConfig struct {
	PageSize int `mapstructure:"page_size"` // used until the operator picks one
}

// StorageConfig holds local persistence configuration
type StorageConfig struct {
	Dir string `mapstructure:"dir"` // empty disables persistence
}

// CatalogConfig points at an optional resource catalog override
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     "http://localhost:5000",
			Timeout: 30 * time.Second,
		},
		Stream: StreamConfig{
			URL:              "ws://localhost:5000/ws/terminal",
			HandshakeTimeout: 10 * time.Second,
			ProgressMarkers:  []string{"raw_extract:", "lines/sec"},
			Binary:           "deep",
		},
		Relay: RelayConfig{
			Listen: "127.0.0.1:5000",
			Path:   "/ws/terminal",
			Shell:  "/bin/sh",
		},
		Table: TableConfig{
			PageSize: 10,
		},
		Storage: StorageConfig{
			Dir: defaultDataPath(),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "recon.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "recon")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "recon")
	}
}

// DefaultConfigPath returns the default config directory for the current OS
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "recon")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "recon")
	}
}

// Load reads configuration from file and environment. An explicit file
// path takes precedence over the search path.
func Load(file string) (*Config, error) {
	return load(viper.New(), file)
}

func load(v *viper.Viper, file string) (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides: RECON_SERVER_URL, RECON_STREAM_URL, ...
	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.url", cfg.Server.URL)
	v.SetDefault("server.timeout", cfg.Server.Timeout)
	v.SetDefault("stream.url", cfg.Stream.URL)
	v.SetDefault("stream.handshake_timeout", cfg.Stream.HandshakeTimeout)
	v.SetDefault("stream.progress_markers", cfg.Stream.ProgressMarkers)
	v.SetDefault("stream.binary", cfg.Stream.Binary)
	v.SetDefault("stream.auto_clear", cfg.Stream.AutoClear)
	v.SetDefault("relay.listen", cfg.Relay.Listen)
	v.SetDefault("relay.path", cfg.Relay.Path)
	v.SetDefault("relay.shell", cfg.Relay.Shell)
	v.SetDefault("relay.dir", cfg.Relay.Dir)
	v.SetDefault("table.page_size", cfg.Table.PageSize)
	v.SetDefault("storage.dir", cfg.Storage.Dir)
	v.SetDefault("catalog.file", cfg.Catalog.File)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// Validate checks values that would otherwise fail later and less clearly
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server.url is required")
	}
	if c.Stream.URL == "" {
		return errors.New("stream.url is required")
	}
	if c.Table.PageSize <= 0 {
		return fmt.Errorf("table.page_size must be positive, got %d", c.Table.PageSize)
	}
	return nil
}

// Save writes cfg to the default config file
func Save(cfg *Config) error {
	return save(viper.New(), cfg, DefaultConfigPath())
}

func save(v *viper.Viper, cfg *Config, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v.Set("server.url", cfg.Server.URL)
	v.Set("server.timeout", cfg.Server.Timeout.String())
	v.Set("stream.url", cfg.Stream.URL)
	v.Set("stream.handshake_timeout", cfg.Stream.HandshakeTimeout.String())
	v.Set("stream.progress_markers", cfg.Stream.ProgressMarkers)
	v.Set("stream.binary", cfg.Stream.Binary)
	v.Set("stream.auto_clear", cfg.Stream.AutoClear)
	v.Set("relay.listen", cfg.Relay.Listen)
	v.Set("relay.path", cfg.Relay.Path)
	v.Set("relay.shell", cfg.Relay.Shell)
	v.Set("relay.dir", cfg.Relay.Dir)
	v.Set("table.page_size", cfg.Table.PageSize)
	v.Set("storage.dir", cfg.Storage.Dir)
	v.Set("catalog.file", cfg.Catalog.File)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
