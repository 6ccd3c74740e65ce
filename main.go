package main

import (
	"context"
	"log/slog"
	"os"

	"catalog/internal/app"
	"catalog/internal/config"
	"catalog/internal/logging"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/viper"
)

func main() {
	// --- Configuration ---
	cfg := config.Load(viper.GetViper())

	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Store, cache, events, service and HTTP routes ---
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Start HTTP Server ---
	go func() {
		logger.Info("Starting server", slog.String("addr", cfg.AppPort))
		if err := application.Fiber.Listen(cfg.AppPort); err != nil {
			logger.Error("Server failed to start", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown handling
	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"catalog": func(ctx context.Context) error {
			logger.Info("Shutting down server...")
			return application.Shutdown(ctx)
		},
	})

	exitCode := <-wait
	logger.Info("Server stopped", slog.Int("exit_code", exitCode))
	os.Exit(exitCode)
}
