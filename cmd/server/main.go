package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/smallwat3r/safes/internal/app"
	"github.com/smallwat3r/safes/internal/config"
	"github.com/smallwat3r/safes/internal/domain"
	"github.com/smallwat3r/safes/internal/vault"
	"pkt.systems/pslog"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := newLogger(pslog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config.invalid", "error", err)
		return 1
	}
	logger = newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v := vault.New()
	metrics := app.NewMetrics(v.Len)
	handler := app.NewHandler(
		domain.NewMemoryRepository(v),
		app.WithLogger(logger),
		app.WithMetrics(metrics),
		app.WithWebDir(cfg.WebDir),
	)
	router := app.NewRouter(handler, app.RouterConfig{
		MaxBodySize:    cfg.MaxBodySize,
		RequireHTTPS:   cfg.RequireHTTPS,
		RequestTimeout: cfg.RequestTimeout,
	})

	go runSweeper(ctx, logger, v, cfg.SweepInterval, metrics.Swept)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening",
			"addr", srv.Addr,
			"max_body", humanize.IBytes(uint64(cfg.MaxBodySize)),
			"https_required", cfg.RequireHTTPS,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.listen_failed", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	logger.Info("server.shutdown.start", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.shutdown.failed", "error", err)
		return 1
	}
	logger.Info("server.shutdown.complete")
	return 0
}

func newLogger(level pslog.Level) pslog.Logger {
	return pslog.NewWithOptions(context.Background(), os.Stderr, pslog.Options{
		Mode:     pslog.ModeStructured,
		MinLevel: level,
	}).With("app", "safes")
}
