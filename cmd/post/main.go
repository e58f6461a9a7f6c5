// The post service owns posts: CRUD, the read-through cache and lifecycle
// event publication.
package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/config"
	"github.com/d60-Lab/social-platform/internal/api/handler"
	"github.com/d60-Lab/social-platform/internal/app"
	"github.com/d60-Lab/social-platform/internal/bus"
	"github.com/d60-Lab/social-platform/internal/cache"
	"github.com/d60-Lab/social-platform/internal/middleware"
	"github.com/d60-Lab/social-platform/internal/model"
	"github.com/d60-Lab/social-platform/internal/ratelimit"
	"github.com/d60-Lab/social-platform/internal/repository"
	"github.com/d60-Lab/social-platform/internal/service"
	"github.com/d60-Lab/social-platform/pkg/database"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

func main() {
	cfg, err := config.Load(3002)
	if err != nil {
		panic(err)
	}

	cleanup, err := app.Setup(context.Background(), "post-service", cfg)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	if err := db.AutoMigrate(&model.Post{}); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	busClient := bus.NewClient(cfg.RabbitURL)
	defer busClient.Close()
	if err := busClient.Connect(context.Background()); err != nil {
		// Publishes reconnect lazily; events published before the broker
		// returns are lost, an accepted consistency gap.
		logger.Warn("rabbitmq unreachable at startup", zap.Error(err))
	}

	postCache := cache.New(redisClient, cfg.PostCacheTTL, cfg.ListingCacheTTL)
	svc := service.NewPostService(repository.NewPostRepository(db), postCache, busClient)

	general := ratelimit.NewGeneral(redisClient, cfg.GeneralLimit, cfg.GeneralWindow)

	engine := app.NewEngine("post-service")
	engine.Use(middleware.RateLimit(general))
	handler.NewPostHandler(svc).Register(engine)

	if err := app.Run(engine, cfg.Port); err != nil {
		logger.Fatal("post service stopped", zap.Error(err))
	}
}
