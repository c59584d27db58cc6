// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"escpr-service/internal/config"
	"escpr-service/internal/repository"
	"escpr-service/internal/routes"
	"escpr-service/internal/service"
	"escpr-service/internal/utils"
)

// maxDecodeCommands bounds the command list returned by one decode request
const maxDecodeCommands = 100000

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	jobRepo       repository.JobRepository
	printService  *service.PrintService
	decodeService *service.DecodeService
}

// @title ESC/P-R Print Service API
// @version 1.0.0
// @description Prints test pages and images on Epson printers over ESC/P and ESC/P-R, and decodes captured print streams
// @BasePath /api/v1
func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "escpr-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	app.initializeServices()
	app.initializeServer()
	return app, nil
}

// initializeServices creates the repository and service instances
func (app *Application) initializeServices() {
	app.jobRepo = repository.NewJobRepository(app.logger)
	app.printService = service.NewPrintService(app.jobRepo, app.config, app.logger)
	app.decodeService = service.NewDecodeService(maxDecodeCommands, app.logger)

	app.logger.Info("Services initialized successfully",
		zap.String("connection", string(app.printService.ConnectionType())),
	)
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.printService,
		app.decodeService,
	)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      routerManager.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized", zap.String("address", app.config.GetServerAddr()))
}

// startCleanupService drops old job records until ctx is done
func (app *Application) startCleanupService(ctx context.Context) {
	retention := app.config.Job.Retention
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	app.logger.Info("Cleanup service started", zap.Duration("retention", retention))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		deleted, err := app.jobRepo.DeleteOldJobs(ctx, time.Now().Add(-retention))
		if err != nil {
			app.logger.Error("Failed to cleanup old jobs", zap.Error(err))
		} else if deleted > 0 {
			app.logger.Info("Cleaned up old jobs", zap.Int64("deleted", deleted))
		}
	}
}

// Start serves HTTP until SIGINT or SIGTERM, then shuts down gracefully
func (app *Application) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("Starting HTTP server", zap.String("address", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	go app.startCleanupService(ctx)

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		app.logger.Info("Received shutdown signal")
	}

	app.shutdown()
	return nil
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "escpr-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	// In-flight print jobs hold the printer; give them time to finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	app.logger.Info("Application shutdown completed")
	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}
