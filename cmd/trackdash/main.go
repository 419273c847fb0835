// Command trackdash serves and prints project health dashboards built from a
// Jira instance.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata" // jira.timezone must resolve on hosts without a zoneinfo database

	"github.com/spf13/cobra"

	"github.com/steveyegge/trackdash/internal/config"
	"github.com/steveyegge/trackdash/internal/telemetry"
	"github.com/steveyegge/trackdash/internal/ui"
)

// app carries the state shared by every subcommand: global flags, the loaded
// configuration and the process logger.
type app struct {
	configPath string
	verbose    bool
	noColor    bool

	cfg      *config.Config
	logger   *slog.Logger
	shutdown telemetry.ShutdownFunc
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs the command tree with args and flushes telemetry afterwards.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.shutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := a.shutdown(shutdownCtx); serr != nil && a.logger != nil {
			a.logger.Warn("telemetry shutdown failed", "error", serr)
		}
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trackdash",
		Short:         "trackdash - project health dashboards for Jira",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ./trackdash.yaml or ~/.config/trackdash/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		a.serveCmd(),
		a.snapshotCmd(),
		a.issuesCmd(),
		versionCmd(),
	)
	return root
}

// setup loads configuration and builds the logger and telemetry providers.
// The version command needs none of it.
func (a *app) setup(cmd *cobra.Command) error {
	ui.ConfigureColor(a.noColor)
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log, a.verbose)
	if cfg.File != "" {
		a.logger.Debug("loaded config", "file", cfg.File)
	}

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Options{
		Enabled:     cfg.Telemetry.Enabled,
		Stdout:      cfg.Telemetry.Stdout,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: "trackdash",
		Version:     Version,
		Writer:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.shutdown = shutdown
	return nil
}

// newLogger builds the process logger. --verbose forces debug level.
func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
