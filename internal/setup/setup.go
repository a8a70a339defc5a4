package setup

import (
	"context"
	"log"

	"github.com/resetwatch/resetwatch/internal/database"
	"github.com/resetwatch/resetwatch/internal/database/service"
	"github.com/resetwatch/resetwatch/internal/pnw"
	"github.com/resetwatch/resetwatch/internal/redis"
	"github.com/resetwatch/resetwatch/internal/setup/client"
	"github.com/resetwatch/resetwatch/internal/setup/config"
	"go.uber.org/zap"
)

// App bundles the shared dependencies every binary needs.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	DBLogger     *zap.Logger
	DB           database.Client
	ScanService  *service.ScanService
	PNWClient    *pnw.Client
	RedisManager *redis.Manager
}

// InitializeApp loads configuration and wires up the shared components.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, dbLogger, err := GetLoggers(logDir, cfg.Common.Debug.LogLevel, cfg.Common.Debug.MaxLogsToKeep)
	if err != nil {
		return nil, err
	}

	db, err := database.NewConnection(ctx, &cfg.Common.PostgreSQL, dbLogger, true)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	pnwClient := client.GetPNWClient(cfg, logger)
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger,
		DB:           db,
		ScanService:  service.NewScanService(db.Model(), logger),
		PNWClient:    pnwClient,
		RedisManager: redisManager,
	}, nil
}

// Cleanup releases the app's resources in reverse order of creation.
func (a *App) Cleanup() {
	a.RedisManager.Close()

	if err := a.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := a.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}
}
