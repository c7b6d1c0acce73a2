package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/api"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/audit"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/config"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/database"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/repository"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/service"
	"github.com/Neon01602/PharmaGenie-RIFT/pkg/external"
)

func main() {
	// Optional .env for local development; the environment wins otherwise.
	_ = godotenv.Load()

	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	// Database, migrations, repository and audit store. The server runs
	// without persistence when the database is unreachable; analysis itself
	// has no storage dependency.
	var (
		db      *database.DB
		results domain.ResultRepository
		reviews audit.Store
	)

	migrator, err := database.NewMigrationRunner(cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Warn("Migrations unavailable; continuing without persistence")
	} else {
		if err := migrator.Up(); err != nil {
			logger.WithError(err).Warn("Migration failed; continuing without persistence")
		}
		migrator.Close()
	}

	db, err = database.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Warn("Database unavailable; results and reviews will not be persisted")
		db = nil
	} else {
		defer db.Close()
		results = repository.NewResultRepository(db, logger)

		store, err := audit.NewPostgresStoreFromURL(database.URL(cfg.Database))
		if err != nil {
			logger.WithError(err).Warn("Audit store unavailable; reviews will not be persisted")
		} else {
			reviews = store
			defer store.Close()
		}
	}

	analyzer := service.NewAnalyzer(logger, newGenerator(cfg, logger), service.AnalyzerConfig{
		MaxConcurrency:   cfg.Analysis.MaxConcurrency,
		GeneratorTimeout: cfg.Analysis.GeneratorTimeout,
	})

	server := api.NewServer(cfg, logger, analyzer, results, reviews, db)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting analysis server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newGenerator builds the cached, breaker-guarded explanation generator.
// With no endpoint configured the analyzer falls back to its deterministic
// template.
func newGenerator(cfg *domain.Config, logger *logrus.Logger) domain.ExplanationGenerator {
	if cfg.Generator.BaseURL == "" {
		logger.Info("No explanation generator configured; using deterministic fallback")
		return nil
	}

	client := external.NewGeneratorClient(cfg.Generator, logger)

	cache, err := external.NewCacheClient(cfg.Cache)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable; explanation cache limited to memory tier")
		cache = nil
	}

	generator, err := external.NewResilientGenerator(client, cache, cfg.Cache.MemoryItems, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to build resilient generator; using deterministic fallback")
		return nil
	}
	return generator
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
