// Package main boots the UTBot web service: the chat UI, the JSON and
// WebSocket API, and the metrics endpoint.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/easeaico/utbot/internal/app"
	"github.com/easeaico/utbot/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
	slog.Info("configuration loaded",
		"provider", cfg.LLMProvider,
		"model", cfg.LLMModel,
		"history_policy", cfg.HistoryPolicy.String(),
		"request_shape", cfg.RequestShape.String(),
		"archive", cfg.DatabaseURL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize service: %v", err)
	}
	defer func() {
		if err := svc.Cleanup(); err != nil {
			slog.Error("failed to release resources", "error", err.Error())
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           svc.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		slog.Error("listen error", "error", err.Error())
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// 关闭前等待进行中的请求
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err.Error())
		_ = httpServer.Close()
	}

	slog.Info("shutdown complete", "active_bots", svc.Bots.Count())
}
