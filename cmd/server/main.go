package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/trialsite/trial-importer/internal/api"
	"github.com/trialsite/trial-importer/internal/config"
	"github.com/trialsite/trial-importer/internal/errors"
	"github.com/trialsite/trial-importer/internal/geocode"
	"github.com/trialsite/trial-importer/internal/importer"
	"github.com/trialsite/trial-importer/internal/registry"
	"github.com/trialsite/trial-importer/internal/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	// Load configuration with defaults
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.DBConnectionString == "" {
		logger.Fatal("Missing required configuration (DB_CONNECTION_STRING must be set)")
	}

	// Initialize content store
	contentStore, err := store.NewPostgresStore(cfg.DBConnectionString)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer contentStore.Close()

	// Run migrations with retry logic
	if err := retry(3, 5*time.Second, func() error {
		return contentStore.Migrate()
	}); err != nil {
		logger.Fatalf("Failed to run migrations after retries: %v", err)
	}

	// Initialize services
	registryClient := registry.NewClient(&cfg.Registry, logger)
	driver := registry.NewPaginationDriver(registryClient, cfg.Registry.PageSize, logger)
	filter := registry.NewFilterEngine(&cfg.Registry, logger)
	resolver := geocode.NewResolver(contentStore, geocode.NewClient(&cfg.Geocode, logger), logger)
	reporter := importer.NewReporter(cfg.Mail, logger)

	service := importer.NewService(cfg, contentStore, driver, registryClient, filter, resolver, reporter, logger)
	apiHandler := api.NewHandler(service, contentStore, logger)

	// Setup router with middleware
	router := api.SetupRouter(apiHandler)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(router)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduled import runs
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.CronSpec, func() {
		if _, err := service.RunImport(ctx, importer.RunOptions{Manual: false}); err != nil {
			if errors.IsImportInProgress(err) {
				logger.Warn("Skipping scheduled import, previous run still active")
				return
			}
			logger.Errorf("Scheduled import failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Failed to register import schedule %q: %v", cfg.CronSpec, err)
	}
	scheduler.Start()
	logger.Infof("Import scheduled with spec %q", cfg.CronSpec)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	scheduler.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server exited properly")
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
