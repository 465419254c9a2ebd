package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
		Development: cfg.Environment == config.Development,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg, log)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir, log); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = database.NewRedisClient(cfg, log)
		if err != nil {
			// Token revocation falls back to the database and rate limiting is off
			log.Warn("redis unavailable", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	images, err := newImageStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, db, redisClient, images, log)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}

func newImageStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.ImageStore, error) {
	if cfg.StorageBackend == "s3" {
		s3Config, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return service.NewS3ImageStore(s3Config, log), nil
	}
	return service.NewLocalImageStore(cfg.MediaDir, cfg.MediaURL, log), nil
}
