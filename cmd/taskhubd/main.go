// Command taskhubd is the taskhub server daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoCodeAlone/taskhub/config"
	"github.com/GoCodeAlone/taskhub/internal/version"
	"github.com/GoCodeAlone/taskhub/server"
	"github.com/GoCodeAlone/taskhub/storage"
	"github.com/GoCodeAlone/taskhub/task"
	"github.com/GoCodeAlone/taskhub/user"
)

var configPath = flag.String("config", "", "path to YAML config file")

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	logger.Info("starting taskhubd",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	db, err := storage.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database %s: %v", cfg.Database, err)
	}
	defer db.Close() //nolint:errcheck

	srv := server.New(*cfg, version.Version, logger)
	srv.SetTaskStore(task.NewSQLiteStore(db))
	srv.SetUserStore(user.NewSQLiteStore(db))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			logger.Error("server stop", slog.Any("err", err))
		}
	}
	logger.Info("shutdown complete")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
