package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/reelscore/api"
	"github.com/use-agent/reelscore/api/handler"
)

// serveCacheRetention bounds how long the API keeps lookups around for
// max_age requests.
const serveCacheRetention = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve lookups and reports over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("host", "", "listen host (default 127.0.0.1)")
	f.Int("port", 0, "listen port (default 8080)")
	f.String("store", "", "SQLite file recording finished reports")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"server.host": "host",
		"server.port": "port",
		"store.path":  "store",
	})
	if err != nil {
		return err
	}

	slog.Info("starting reelscore",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"imdb_mode", cfg.Sources.IMDbFetchMode,
		"rt_mode", cfg.Sources.RTFetchMode,
	)
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		slog.Warn("auth enabled but no API keys configured, every request will be rejected")
	}

	// ── 1. Wire components ──────────────────────────────────────────
	a, err := newApp(cfg, serveCacheRetention)
	if err != nil {
		return err
	}
	defer a.Close()

	// Cancelled on SIGINT/SIGTERM; running report jobs stop with it.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := api.Deps{
		Service: a.runner,
		Stats:   a.browser,
		Version: version,
		Context: ctx,
	}
	if a.store != nil {
		deps.Recorder = a.store
	}
	router := api.NewRouter(deps, cfg, time.Now())

	// ── 2. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// ── 3. Graceful shutdown ────────────────────────────────────────
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give in-flight requests 5 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// The browser closes after the jobs that may still be using it.
	if err := handler.WaitReports(shutdownCtx); err != nil {
		slog.Warn("report jobs still running at shutdown", "error", err)
	} else {
		slog.Info("report jobs stopped")
	}
	slog.Info("reelscore stopped")
	return nil
}
