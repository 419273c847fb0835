package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/trackdash/internal/api"
	"github.com/steveyegge/trackdash/internal/config"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var (
		addr        string
		watchConfig bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard JSON API",
		Long: `Serve the dashboard JSON API.

Missing Jira credentials do not prevent startup; requests fail with
"service not configured" until they are set. With --watch-config the
config file is re-read on change and new requests use the new settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return a.serve(cmd.Context(), watchConfig)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&watchConfig, "watch-config", false, "Reload the config file when it changes")
	return cmd
}

func (a *app) serve(ctx context.Context, watchConfig bool) error {
	logger := a.logger
	if err := a.cfg.CheckCredentials(); err != nil {
		logger.Warn("jira credentials missing, requests will fail until configured", "error", err)
	}

	views, err := buildViews(a.cfg, logger)
	if err != nil {
		return err
	}
	handler := api.NewHandler(views, logger)

	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           api.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if watchConfig {
		if a.cfg.File == "" {
			logger.Warn("--watch-config ignored: no config file in use")
		} else {
			g.Go(func() error {
				return config.Watch(gctx, a.cfg.File, logger, func(cfg *config.Config) {
					next, err := buildViews(cfg, logger)
					if err != nil {
						logger.Warn("config reload failed", "error", err)
						return
					}
					handler.Swap(next)
					logger.Info("config reloaded", "file", cfg.File)
				})
			})
		}
	}

	return g.Wait()
}
