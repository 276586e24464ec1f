// Command pipeline runs the full data pipeline once: download (or load) the
// sources, normalize, estimate capital, extrapolate, derive indicators and
// export the dataset, report and charts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chinaecon/internal/config"
	"chinaecon/internal/infrastructure"
	"chinaecon/internal/pipeline"
	"chinaecon/internal/sources"
	"chinaecon/pkg/contracts"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file (optional)")
	inputFile := flag.String("input", "", "offline mode: load dataset from a previously exported CSV instead of downloading")
	outputDir := flag.String("out", "", "output directory for reports (defaults to configured reports dir)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetVersionString())
		return
	}

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

	if *outputDir == "" {
		*outputDir = cfg.Paths.ReportsDir
	}

	opts := pipeline.Options{
		OutputDir: *outputDir,
		Logger:    logger,
	}
	if *inputFile != "" {
		opts.InputFile = *inputFile
	} else {
		opts.Loaders = buildLoaders(cfg, logger)
	}

	registry, err := pipeline.Assemble(opts)
	if err != nil {
		logger.Error("Failed to assemble pipeline", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := pipeline.NewManager(registry, logger).Run(ctx, cfg)
	if err != nil {
		logger.Error("Pipeline run failed", "error", err, "run_id", state.ID)
		os.Exit(1)
	}

	for name, path := range state.Artifacts() {
		logger.Info("artifact written", "artifact", name, "path", path)
	}
}

// buildLoaders wires the three sources: the World Bank WDI API, the Penn
// World Table workbook and the IMF Fiscal Monitor export.
func buildLoaders(cfg *config.Config, logger *slog.Logger) []sources.Loader {
	client := sources.NewClient(cfg.Sources, logger)
	return []sources.Loader{
		sources.NewWDILoader(client, cfg.Sources.WDIBaseURL, logger),
		sources.NewPWTLoader(cfg.Sources.PWTFile, logger),
		sources.NewIMFLoader(cfg.Sources.IMFFile, logger),
	}
}
