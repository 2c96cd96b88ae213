package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abra-CatAbra/foodsync-ai/internal/config"
	"github.com/Abra-CatAbra/foodsync-ai/internal/logger"
	"github.com/Abra-CatAbra/foodsync-ai/internal/repository"
	"github.com/Abra-CatAbra/foodsync-ai/internal/service"
	"github.com/Abra-CatAbra/foodsync-ai/internal/sink"
	"github.com/Abra-CatAbra/foodsync-ai/internal/sink/csvfile"
	"github.com/Abra-CatAbra/foodsync-ai/internal/sink/sheets"
	"github.com/Abra-CatAbra/foodsync-ai/internal/source"
	"github.com/Abra-CatAbra/foodsync-ai/internal/source/local"
	"github.com/Abra-CatAbra/foodsync-ai/internal/source/s3"
	"github.com/Abra-CatAbra/foodsync-ai/internal/transform"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Parse command line flags
	monitor := flag.Bool("monitor", false, "Run continuously instead of a single cycle")
	interval := flag.Int("interval", 0, "Minutes between cycles in monitor mode")
	hours := flag.Int("hours", 0, "Lookback window in hours")
	limit := flag.Int("limit", 0, "Maximum photos per cycle")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Flags override file/env configuration
	if *monitor {
		cfg.Sync.Monitor = true
	}
	if *interval > 0 {
		cfg.Sync.IntervalMinutes = *interval
	}
	if *hours > 0 {
		cfg.Sync.LookbackHours = *hours
	}
	if *limit > 0 {
		cfg.Sync.Limit = *limit
	}

	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid configuration")
	}

	appLogger.WithFields(logger.Fields{
		"source":   cfg.Source.Type,
		"sink":     cfg.Sink.Type,
		"monitor":  cfg.Sync.Monitor,
		"interval": cfg.Sync.IntervalMinutes,
		"lookback": cfg.Sync.LookbackHours,
		"limit":    cfg.Sync.Limit,
	}).Info("Starting food sync")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	store := repository.NewProcessedRepository(db)

	// Initialize photo source
	var src source.Source
	switch cfg.Source.Type {
	case "s3":
		src, err = s3.NewAdapter(&s3.Config{
			Endpoint:  cfg.Source.S3.Endpoint,
			AccessKey: cfg.Source.S3.AccessKey,
			SecretKey: cfg.Source.S3.SecretKey,
			UseSSL:    cfg.Source.S3.UseSSL,
			Bucket:    cfg.Source.S3.Bucket,
			Prefix:    cfg.Source.S3.Prefix,
			Region:    cfg.Source.S3.Region,
			PublicURL: cfg.Source.S3.PublicURL,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize S3 source")
		}
	case "local":
		src = local.NewAdapter(cfg.Source.Local.Dir)
	default:
		appLogger.WithField("type", cfg.Source.Type).Fatal("Unknown source type")
	}

	// Initialize log sink
	var logSink sink.Sink
	switch cfg.Sink.Type {
	case "sheets":
		logSink = sheets.New(&sheets.Config{
			SpreadsheetID: cfg.Sink.Sheets.SpreadsheetID,
			Token:         cfg.Sink.Sheets.Token,
			BaseURL:       cfg.Sink.Sheets.BaseURL,
			SheetName:     cfg.Sink.Sheets.SheetName,
		})
	case "csv":
		logSink = csvfile.New(cfg.Sink.CSV.Path)
	default:
		appLogger.WithField("type", cfg.Sink.Type).Fatal("Unknown sink type")
	}

	transformer := transform.NewTransformer(&transform.Config{
		MaxWidth:    cfg.Image.MaxWidth,
		MaxHeight:   cfg.Image.MaxHeight,
		JPEGQuality: cfg.Image.JPEGQuality,
	})

	analyzer := service.NewVisionService(&service.VisionConfig{
		Provider: cfg.Vision.Provider,
		Model:    cfg.Vision.Model,
		APIKey:   cfg.Vision.APIKey,
		BaseURL:  cfg.Vision.BaseURL,
	})

	syncService := service.NewSyncService(
		src,
		store,
		logSink,
		transformer,
		analyzer,
		appLogger,
		&service.SyncConfig{
			LookbackHours: cfg.Sync.LookbackHours,
			Limit:         cfg.Sync.Limit,
		},
	)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	// The header is written once at startup so a fresh sheet or file is
	// usable before the first row arrives
	if err := logSink.EnsureHeader(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure log header")
	}

	if cfg.Sync.Monitor {
		m := service.NewMonitor(syncService,
			time.Duration(cfg.Sync.IntervalMinutes)*time.Minute, appLogger)
		if err := m.Run(ctx); err != nil {
			appLogger.WithError(err).Fatal("Monitor stopped with error")
		}
		return
	}

	// Single cycle: per-photo failures are reported in the stats, not the
	// exit code
	stats, err := syncService.RunCycle(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Sync cycle failed")
	}
	appLogger.WithFields(logger.Fields{
		"listed":  stats.Listed,
		"skipped": stats.Skipped,
		"logged":  stats.Logged,
		"no_food": stats.NoFood,
		"failed":  stats.Failed,
	}).Info("Sync completed")
}
