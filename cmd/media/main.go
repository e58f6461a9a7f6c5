// The media service stores uploaded blobs and purges them when their owning
// post is deleted.
package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/config"
	"github.com/d60-Lab/social-platform/internal/api/handler"
	"github.com/d60-Lab/social-platform/internal/app"
	"github.com/d60-Lab/social-platform/internal/bus"
	"github.com/d60-Lab/social-platform/internal/event"
	"github.com/d60-Lab/social-platform/internal/middleware"
	"github.com/d60-Lab/social-platform/internal/model"
	"github.com/d60-Lab/social-platform/internal/ratelimit"
	"github.com/d60-Lab/social-platform/internal/repository"
	"github.com/d60-Lab/social-platform/internal/service"
	"github.com/d60-Lab/social-platform/internal/storage"
	"github.com/d60-Lab/social-platform/pkg/database"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

func main() {
	cfg, err := config.Load(3003)
	if err != nil {
		panic(err)
	}

	cleanup, err := app.Setup(context.Background(), "media-service", cfg)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	if err := db.AutoMigrate(&model.Media{}); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	store, err := storage.NewLocal(cfg.MediaDir, fmt.Sprintf("http://localhost:%d/files", cfg.Port))
	if err != nil {
		logger.Fatal("blob storage unavailable", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	svc := service.NewMediaService(repository.NewMediaRepository(db), store)

	busClient := bus.NewClient(cfg.RabbitURL)
	defer busClient.Close()
	if err := busClient.Subscribe(event.PostDeleted, svc.HandlePostDeleted); err != nil {
		logger.Fatal("subscribe post.deleted failed", zap.Error(err))
	}

	general := ratelimit.NewGeneral(redisClient, cfg.GeneralLimit, cfg.GeneralWindow)

	engine := app.NewEngine("media-service")
	engine.Use(middleware.RateLimit(general))
	engine.Static("/files", cfg.MediaDir)
	handler.NewMediaHandler(svc).Register(engine)

	if err := app.Run(engine, cfg.Port); err != nil {
		logger.Fatal("media service stopped", zap.Error(err))
	}
}
