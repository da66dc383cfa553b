// Package bootstrap handles application initialization and lifecycle
// management for the alert ingestion service.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jonesrussell/alerthub/internal/logger"
	"github.com/jonesrussell/alerthub/internal/scheduler"
	"github.com/jonesrussell/alerthub/internal/telemetry"
)

// shutdownTimeout bounds graceful HTTP server shutdown.
const shutdownTimeout = 15 * time.Second

// Start initializes and runs the service until SIGINT or SIGTERM.
func Start() error {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, configErr := LoadConfig()
	if configErr != nil {
		return fmt.Errorf("config: %w", configErr)
	}

	log, logErr := CreateLogger(cfg)
	if logErr != nil {
		return fmt.Errorf("logger: %w", logErr)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting AlertHub",
		logger.String("name", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
	)

	db, dbErr := SetupDatabase(cfg)
	if dbErr != nil {
		return fmt.Errorf("database: %w", dbErr)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}()
	log.Info("Database connection established")

	metrics := telemetry.NewMetrics()

	app := BuildApp(cfg, db, metrics, log)

	var poller *scheduler.Poller
	if cfg.Poller.Enabled {
		poller = app.Poller
		if startErr := poller.Start(); startErr != nil {
			return fmt.Errorf("poller: %w", startErr)
		}
	}

	return runServer(app.Server, poller, log)
}

// runServer serves HTTP until a termination signal, then shuts the poller
// and server down gracefully.
func runServer(server *http.Server, poller *scheduler.Poller, log logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if serveErr := server.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case serveErr := <-errCh:
		return fmt.Errorf("server: %w", serveErr)
	case sig := <-stop:
		log.Info("Shutting down", logger.String("signal", sig.String()))
	}

	if poller != nil {
		poller.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(ctx); shutdownErr != nil {
		return fmt.Errorf("shutdown: %w", shutdownErr)
	}

	log.Info("AlertHub stopped")
	return nil
}
