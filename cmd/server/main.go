package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ilias-t/griblet/internal/acquisition"
	"github.com/ilias-t/griblet/internal/api"
	"github.com/ilias-t/griblet/internal/config"
	"github.com/ilias-t/griblet/internal/grib"
	"github.com/ilias-t/griblet/internal/observability"
	"github.com/ilias-t/griblet/internal/storage/sqlite"
	"github.com/ilias-t/griblet/internal/websocket"
	"github.com/ilias-t/griblet/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting griblet server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Ensure storage directories exist
	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		log.Error("Failed to create data directory", logger.Error(err), logger.String("path", cfg.Storage.DataDir))
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0755); err != nil {
		log.Error("Failed to create database directory", logger.Error(err))
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()

	recordStorage, err := sqlite.NewRecordStorage(cfg.Storage.SQLitePath, clock, log)
	if err != nil {
		log.Error("Failed to open record catalog", logger.Error(err))
		os.Exit(1)
	}
	defer recordStorage.Close()
	log.Info("Using SQLite catalog", logger.String("path", cfg.Storage.SQLitePath))

	// Create WebSocket server for parse lifecycle events
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	// Create the parse pipeline
	metrics := observability.NewMetrics()
	decoder := grib.NewECCodesDecoder(
		cfg.GRIB.ListTool,
		cfg.GRIB.DumpTool,
		time.Duration(cfg.GRIB.TimeoutSeconds)*time.Second,
		log,
	)
	if err := decoder.Available(); err != nil {
		// Not fatal at startup: the server can still list and delete
		// records, and every parse will fail fast with a clear message.
		log.Warn("GRIB decoder tools unavailable", logger.Error(err))
	}

	limiter := grib.NewLimiter(cfg.GRIB.MaxConcurrentParses)
	parser := grib.NewParser(decoder, limiter, metrics, log)
	cache := grib.NewCache(parser, metrics, log)

	acqClient := acquisition.NewClient(acquisition.Config{
		BaseURL:        cfg.Acquisition.BaseURL,
		TimeoutSeconds: cfg.Acquisition.TimeoutSeconds,
		MaxRetries:     cfg.Acquisition.MaxRetries,
	}, log)

	// Start the retention sweep if enabled
	var sweeper *sqlite.RetentionSweeper
	if cfg.Retention.Enabled {
		sweeper = sqlite.NewRetentionSweeper(
			recordStorage,
			clock,
			cfg.Retention.Schedule,
			time.Duration(cfg.Retention.MaxAgeDays)*24*time.Hour,
			log,
		)
		if err := sweeper.Start(); err != nil {
			log.Error("Failed to start retention sweep", logger.Error(err))
			os.Exit(1)
		}
	}

	handler := api.NewHandler(parser, cache, limiter, recordStorage, acqClient, wsServer, cfg, log)
	router := api.NewRouter(handler, wsServer, cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", addr), logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	log.Info("Server fully stopped")
}
