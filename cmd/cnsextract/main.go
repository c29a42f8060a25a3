package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lucidhealth/cnsextract/internal/batch"
	"github.com/lucidhealth/cnsextract/internal/config"
	"github.com/lucidhealth/cnsextract/internal/extract"
	"github.com/lucidhealth/cnsextract/internal/store"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func setupLogging(cfg *config.Config) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func printVersion() {
	fmt.Printf("cnsextract %s\n", version)
	fmt.Printf("  build time: %s\n", buildTime)
	fmt.Printf("  git commit: %s\n", gitCommit)
}

func versionRequested(args []string) bool {
	for _, arg := range args {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			return true
		}
	}
	return false
}

func run() int {
	if versionRequested(os.Args[1:]) {
		printVersion()
		return 0
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	logger := setupLogging(cfg)
	logger.Info("starting cnsextract",
		"version", version,
		"build_time", buildTime,
		"git_commit", gitCommit,
		"config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("opening database", "path", cfg.DatabasePath, "error", err)
		return 1
	}
	defer st.Close()

	paths, err := batch.Discover(cfg.InputDir, cfg.Recursive)
	if err != nil {
		logger.Error("discovering PDFs", "dir", cfg.InputDir, "error", err)
		return 1
	}
	if len(paths) == 0 {
		logger.Warn("no PDF files found", "dir", cfg.InputDir)
		return 0
	}
	logger.Info("discovered documents", "count", len(paths), "dir", cfg.InputDir)

	svc := extract.NewService(extract.Options{
		MaxFileSize: cfg.MaxFileSize,
		Logger:      logger,
	})
	runner := batch.NewRunner(svc, st, cfg.Workers, logger)
	results := runner.Run(ctx, paths)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL  %s: %v\n", res.Path, res.Err)
			continue
		}
		fmt.Printf("OK    %s  patient=%s metrics=%d degradations=%d\n",
			res.Path, res.PatientID, res.Metrics, res.Degradations)
	}

	logger.Info("batch complete",
		"documents", len(results),
		"failed", failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
