// The search service maintains and queries the searchable projection of
// posts, fed entirely by lifecycle events.
package main

import (
	"context"

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
	"github.com/d60-Lab/social-platform/pkg/database"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

func main() {
	cfg, err := config.Load(3004)
	if err != nil {
		panic(err)
	}

	cleanup, err := app.Setup(context.Background(), "search-service", cfg)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	if err := db.AutoMigrate(&model.SearchPost{}); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	svc := service.NewSearchService(repository.NewSearchRepository(db))

	busClient := bus.NewClient(cfg.RabbitURL)
	defer busClient.Close()
	if err := busClient.Subscribe(event.PostCreated, svc.HandlePostCreated); err != nil {
		logger.Fatal("subscribe post.created failed", zap.Error(err))
	}
	if err := busClient.Subscribe(event.PostDeleted, svc.HandlePostDeleted); err != nil {
		logger.Fatal("subscribe post.deleted failed", zap.Error(err))
	}

	general := ratelimit.NewGeneral(redisClient, cfg.GeneralLimit, cfg.GeneralWindow)

	engine := app.NewEngine("search-service")
	engine.Use(middleware.RateLimit(general))
	handler.NewSearchHandler(svc).Register(engine)

	if err := app.Run(engine, cfg.Port); err != nil {
		logger.Fatal("search service stopped", zap.Error(err))
	}
}
