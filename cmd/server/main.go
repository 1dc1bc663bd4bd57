package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/retailetl/internal/config"
	"github.com/JonMunkholm/retailetl/internal/core"
	"github.com/JonMunkholm/retailetl/internal/export"
	"github.com/JonMunkholm/retailetl/internal/logging"
	"github.com/JonMunkholm/retailetl/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	sinks, err := export.OpenConfigured(ctx, cfg)
	if err != nil {
		slog.Error("failed to open export sinks", "error", err)
		os.Exit(1)
	}

	session := core.NewSession(core.SessionOptions{
		ParseWorkers:   cfg.Ingest.ParseWorkers,
		WindowSize:     cfg.Ingest.WindowSize,
		LenientErasure: cfg.Ingest.LenientErasure,
		Logger:         logger,
	})
	slog.Info("session started", "session_id", session.ID())

	server := web.NewServer(session, cfg, sinks...)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if err := export.CloseAll(shutdownCtx, sinks...); err != nil {
			slog.Error("closing sinks", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done

	st := session.Stats()
	slog.Info("session closed",
		"customers", st.Customers,
		"products", st.Products,
		"transactions", st.Transactions,
		"rejected", st.Rejected,
	)
}
