// Package main provides the climate-trends batch analysis CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jonboulle/clockwork"

	"go.ngs.io/climate-trends/internal/adapter/render"
	"go.ngs.io/climate-trends/internal/adapter/store/netcdf"
	"go.ngs.io/climate-trends/internal/config"
	"go.ngs.io/climate-trends/internal/usecase"
)

const version = "0.1.0"

func main() {
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	runFile := flag.String("run", "", "Path to an HCL run file (variables, scenarios, region, colormap)")
	dataDir := flag.String("data-dir", "", "Directory with {scenario}.nc input files (overrides DATA_DIR)")
	saveDir := flag.String("out-dir", "", "Directory for rendered figures (overrides SAVE_DIR)")
	format := flag.String("format", "", "Figure format: png, jpg or tiff (overrides FIG_FORMAT)")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		fmt.Printf("climate-trends version %s\n", version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *runFile != "" {
		cfg, err = cfg.WithRunFile(*runFile)
		if err != nil {
			slog.Error("failed to load run file", "error", err)
			os.Exit(1)
		}
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *saveDir != "" {
		cfg.SaveDir = *saveDir
	}
	if *format != "" {
		cfg.Format = *format
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting climate trends analysis",
		"data_dir", cfg.DataDir,
		"save_dir", cfg.SaveDir,
		"format", cfg.Format,
		"scenarios", strings.Join(cfg.Scenarios, ","),
	)

	store := netcdf.NewStore(cfg.DataDir)
	writer, err := render.NewWriter(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize figure writer", "error", err)
		os.Exit(1)
	}

	runner := usecase.NewRunner(cfg, store, writer, logger, clockwork.NewRealClock())
	if err := runner.Run(context.Background()); err != nil {
		logger.Error("analysis run failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printUsage() {
	fmt.Println(`climate-trends - regional trend analysis for gridded climate datasets

Usage:
  climate-trends [flags]

Flags:
  -run <file>       HCL run file with variables, scenarios, region and colormap
  -data-dir <dir>   Input directory with {scenario}.nc files
  -out-dir <dir>    Output directory for figures
  -format <fmt>     Figure format: png, jpg, tiff
  -version          Print version
  -help             Print this help

Environment:
  DATA_DIR, SAVE_DIR, FIG_FORMAT, COASTLINE_GEOJSON, LOG_LEVEL

For every (variable, scenario) pair the tool loads {scenario}.nc, averages
ensemble members when present, computes the regional mean series and a
per-grid-cell linear trend, and writes {variable}_{scenario}_trend.{format}.`)
}
