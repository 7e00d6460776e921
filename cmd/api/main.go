package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/budget-tracker/internal/api"
	"github.com/dvloznov/budget-tracker/internal/config"
	"github.com/dvloznov/budget-tracker/internal/gcsuploader"
	"github.com/dvloznov/budget-tracker/internal/infra"
	"github.com/dvloznov/budget-tracker/internal/jobs"
	"github.com/dvloznov/budget-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/pipeline"
	"github.com/dvloznov/budget-tracker/internal/views"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx := logger.WithContext(context.Background(), log)

	store, err := infra.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open storage backend")
	}
	defer store.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 5, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	var archiver pipeline.StatementArchiver
	if cfg.GCSBucket == "" {
		log.Warn().Msg("No GCS bucket configured - statement archiving is disabled")
	} else {
		gcs, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer gcs.Close()

		handler := jobs.NewArchiveHandler(gcs, store, cfg.GCSBucket, time.Now)
		if err := jobQueue.Start(workerCtx, handler); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job worker")
		}
		archiver = jobs.NewArchiver(jobQueue)
		log.Info().Str("bucket", cfg.GCSBucket).Msg("Statement archiving enabled")
	}

	cache := views.NewCache(store)
	sessions := pipeline.NewSessionStore(cfg.SessionTTL, time.Now)
	go sessions.RunSweeper(workerCtx, time.Minute)

	svc := pipeline.NewService(pipeline.ServiceConfig{
		Writer:      store,
		Categories:  store,
		Views:       cache,
		Archiver:    archiver,
		Sessions:    sessions,
		StrictDates: cfg.StrictDates,
	})

	router := api.NewRouter(api.Deps{
		Log:            log,
		Imports:        svc,
		Views:          cache,
		Statements:     store,
		Jobs:           jobStore,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	// Start server in a goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Str("backend", cfg.StoreBackend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
