// Package main converts legacy JSON seed data into the YAML catalog layout,
// or publishes it straight into PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/config"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/importer"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/importer/legacy"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/observability"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/storage/postgres"
)

func main() {
	format := flag.String("format", "legacy", "source format: legacy")
	sourceDir := flag.String("source", "", "path to source data directory")
	outputDir := flag.String("output", "", "path to output catalog directory")
	publish := flag.Bool("publish", false, "save to the configured database instead of writing YAML")
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file (used with -publish)")
	flag.Parse()

	if *sourceDir == "" || (*outputDir == "" && !*publish) {
		fmt.Fprintln(os.Stderr, "usage: import-catalog -source <dir> (-output <dir> | -publish [-config <file>]) [-format legacy]")
		os.Exit(1)
	}

	var src importer.Source
	switch *format {
	case "legacy":
		src = legacy.NewSource()
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q (supported: legacy)\n", *format)
		os.Exit(1)
	}

	logCfg := config.LoggingConfig{Level: "info", Format: "console"}
	var cfg config.Config
	if *publish {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		logCfg = cfg.Logging
	}
	logger, err := observability.NewLogger(logCfg, "import-catalog")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	start := time.Now()
	imp := importer.New(src, logger)
	if *publish {
		ctx := context.Background()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		if _, err := imp.Publish(ctx, *sourceDir, pool.Catalog()); err != nil {
			logger.Fatal("import failed", zap.Error(err))
		}
	} else if _, err := imp.Run(*sourceDir, *outputDir); err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}
	logger.Info("import complete", zap.Duration("elapsed", time.Since(start)))
}
