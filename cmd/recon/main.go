package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mmcdole/recon/internal/api"
	"github.com/mmcdole/recon/internal/catalog"
	"github.com/mmcdole/recon/internal/config"
	"github.com/mmcdole/recon/internal/log"
	"github.com/mmcdole/recon/internal/service"
	"github.com/mmcdole/recon/internal/settings"
	"github.com/mmcdole/recon/internal/store"
	"github.com/mmcdole/recon/internal/stream"
	"github.com/mmcdole/recon/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "recon",
		Short: "Terminal console for the recon API",
		Long: `recon browses and edits recon API resources and streams recon tool
runs from a terminal socket.

Running without a subcommand launches the interactive TUI.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/recon/config.yaml)")

	rootCmd.AddCommand(
		newRunCmd(),
		newRelayCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("recon %s\n", Version)
		},
	}
}

// app holds the wired dependencies shared by the commands
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closers  []io.Closer
	store    *store.Store
	catalog  *catalog.Catalog
	client   *api.Client
	prefs    *settings.Provider
	runner   *stream.Runner
	resource *service.ResourceService
	run      *service.RunService
}

// setup loads configuration and wires storage, API client and services.
// Logs go to the configured file; a failure there falls back to a null
// logger.
func setup() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg}

	logger, closer, err := log.Setup(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		logger = log.NullLogger()
	} else {
		a.closers = append(a.closers, closer)
	}
	slog.SetDefault(logger)
	a.logger = logger

	if cfg.Catalog.File != "" {
		a.catalog, err = catalog.Load(cfg.Catalog.File)
	} else {
		a.catalog, err = catalog.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	a.store, err = store.Open(cfg.Storage.Dir, cfg.Server.URL)
	if err != nil {
		// Another instance may hold the lock; run without persistence
		logger.Warn("store unavailable, using memory", "error", err)
		a.store, _ = store.Open("", "")
	}
	a.closers = append(a.closers, a.store)

	a.prefs = settings.New(a.store, cfg.Table.PageSize, logger)
	a.client = api.NewClient(cfg.Server.URL, cfg.Server.Timeout, logger)
	a.runner = stream.NewRunner(cfg.Stream.URL,
		stream.WithDialer(stream.NewWebSocketDialer(cfg.Stream.HandshakeTimeout)),
		stream.WithMatcher(stream.NewMarkerMatcher(cfg.Stream.ProgressMarkers...)),
		stream.WithRunnerLogger(logger),
	)
	a.resource = service.NewResourceService(a.catalog, a.client, logger)
	a.run = service.NewRunService(a.runner, a.store, a.client, a.catalog, cfg.Stream.Binary, logger)
	return a, nil
}

// Close releases the run service, store and log file
func (a *app) Close() {
	if err := a.run.Close(); err != nil {
		a.logger.Debug("closing runner", "error", err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

func runTUI() error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("starting recon", "version", Version, "server", a.cfg.Server.URL)

	model := tui.NewModel(a.resource, a.run, a.prefs, a.cfg.Stream.AutoClear, a.logger)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	a.logger.Info("shutting down")
	return nil
}
