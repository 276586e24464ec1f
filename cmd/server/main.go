// Command server runs the pipeline once and then serves the resulting
// dataset, extrapolation records and report files over HTTP.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chinaecon/internal/config"
	"chinaecon/internal/infrastructure"
	"chinaecon/internal/pipeline"
	"chinaecon/internal/sources"
	transport "chinaecon/internal/transport/http"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file (optional)")
	inputFile := flag.String("input", "", "offline mode: load dataset from a previously exported CSV instead of downloading")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("Failed to create directories", "error", err)
		os.Exit(1)
	}

	opts := pipeline.Options{
		OutputDir: cfg.Paths.ReportsDir,
		Logger:    logger,
	}
	if *inputFile != "" {
		opts.InputFile = *inputFile
	} else {
		client := sources.NewClient(cfg.Sources, logger)
		opts.Loaders = []sources.Loader{
			sources.NewWDILoader(client, cfg.Sources.WDIBaseURL, logger),
			sources.NewPWTLoader(cfg.Sources.PWTFile, logger),
			sources.NewIMFLoader(cfg.Sources.IMFFile, logger),
		}
	}

	registry, err := pipeline.Assemble(opts)
	if err != nil {
		logger.Error("Failed to assemble pipeline", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := transport.NewRunStore()
	state, err := pipeline.NewManager(registry, logger).Run(ctx, cfg)
	if err != nil {
		logger.Error("Pipeline run failed", "error", err, "run_id", state.ID)
		os.Exit(1)
	}
	store.Set(state)

	router := transport.NewRouter(store, cfg.Paths.ReportsDir, logger)
	server := transport.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}
}
