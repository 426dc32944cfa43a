package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/beaconchat/beacon/internal/hub"
	"github.com/beaconchat/beacon/internal/server"
	"github.com/beaconchat/beacon/internal/telemetry"
)

func newLogger(env string) *slog.Logger {
	var handler slog.Handler
	if env == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := server.NewConfigFromEnv()
	server.SetConfig(cfg)

	logger := newLogger(os.Getenv("APP_ENV"))
	slog.SetDefault(logger)

	registry := hub.NewRegistry()
	rooms := hub.NewRoomDirectory()
	dispatch := hub.NewDispatcher(logger)
	source := telemetry.NewSystemSampler()

	coord := hub.NewCoordinator(logger, registry, rooms, dispatch, source, hub.Options{
		FileChunkSize:      cfg.FileChunkSize,
		MonitoringInterval: cfg.MonitoringInterval,
	})

	gateway := server.NewGateway(coord, dispatch, logger)
	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(gateway))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := server.StartServer(httpServer); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("server.shutdown.start")

	_ = server.ShutdownServer(httpServer, 10*time.Second)
	_ = gateway.Shutdown(10 * time.Second)
}
