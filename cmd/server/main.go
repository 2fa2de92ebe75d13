package main

import (
	"net/http"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fileforge/internal/api"
	"fileforge/internal/auth"
	"fileforge/internal/config"
	"fileforge/internal/jobs"
	"fileforge/internal/logger"
	"fileforge/internal/models"
	"fileforge/internal/processor"
	"fileforge/internal/progress"
	"fileforge/internal/storage"
	"fileforge/internal/store"
)

func main() {
	// .env is optional; plain environment variables work too
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", "console")
		logger.Get().Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Init(cfg.LogLevel, os.Getenv("LOG_FORMAT"))
	log := logger.Get()

	log.Info().Msg("Starting fileforge server")

	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := models.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	storageService, err := storage.NewStorage(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	recordStore := store.NewGormStore(db)
	hub := progress.NewHub()

	procs := processor.Set{
		Converter:  processor.NewImageConverter(storageService.ProcessedDir()),
		Compressor: processor.NewLocalCompressor(storageService.ProcessedDir()),
		Extractor:  processor.NewTextExtractor(storageService.ProcessedDir()),
		Archive:    processor.NewZipExtractor(storageService.ProcessedDir()),
	}

	runner := jobs.NewRunner(recordStore, procs, hub, logger.Component("runner"), cfg.MaxConcurrentBatch, cfg.JobTimeout)
	dispatcher := jobs.NewDispatcher(recordStore, runner, logger.Component("dispatcher"))
	statusService := jobs.NewStatusService(recordStore)
	historyService := jobs.NewHistoryService(recordStore, storageService, logger.Component("history"))
	cleanupService := jobs.NewCleanupService(recordStore, storageService, logger.Component("cleanup"))

	authService := auth.NewService(cfg.JWTSecret, 24*time.Hour)

	handler := api.NewHandler(
		dispatcher,
		statusService,
		historyService,
		cleanupService,
		recordStore,
		storageService,
		authService,
		cfg.MaxUploadBytes(),
		cfg.MaxUploadFiles,
		cfg.RetentionDays,
		logger.Component("api"),
	)
	server := api.NewServer(handler, authService, storageService)

	log.Info().Str("port", cfg.HTTPPort).Msg("HTTP server listening")
	if err := http.ListenAndServe("0.0.0.0:"+cfg.HTTPPort, server.GetRouter()); err != nil {
		log.Fatal().Err(err).Msg("HTTP server failed")
	}
}

// openDatabase connects to postgres when DATABASE_URL is set and falls
// back to an embedded sqlite file for zero-config runs.
func openDatabase(dsn string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
	if dsn != "" {
		return gorm.Open(postgres.Open(dsn), gormConfig)
	}
	return gorm.Open(sqlite.Open("fileforge.db"), gormConfig)
}
