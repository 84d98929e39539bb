package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"breachstudy/internal/config"
	"breachstudy/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to YAML run configuration (env vars used when empty)")
	outputDir := flag.String("out", "", "output directory for derived tables (overrides configuration)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides configuration)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.Paths.OutputDir = *outputDir
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	runner := pipeline.New(cfg, logger)
	if err := runner.Run(context.Background()); err != nil {
		logger.Error("Pipeline failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Derived tables written", "output_dir", cfg.Paths.OutputDir)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
