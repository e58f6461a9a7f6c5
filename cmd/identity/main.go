// The identity service issues and rotates credentials. Its routes are the
// only ones the gateway forwards without a verified token.
package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/config"
	"github.com/d60-Lab/social-platform/internal/api/handler"
	"github.com/d60-Lab/social-platform/internal/app"
	"github.com/d60-Lab/social-platform/internal/auth"
	"github.com/d60-Lab/social-platform/internal/middleware"
	"github.com/d60-Lab/social-platform/internal/model"
	"github.com/d60-Lab/social-platform/internal/ratelimit"
	"github.com/d60-Lab/social-platform/internal/repository"
	"github.com/d60-Lab/social-platform/internal/service"
	"github.com/d60-Lab/social-platform/pkg/database"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

func main() {
	cfg, err := config.Load(3001)
	if err != nil {
		panic(err)
	}

	cleanup, err := app.Setup(context.Background(), "identity-service", cfg)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	if err := db.AutoMigrate(&model.User{}, &model.RefreshToken{}); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	manager := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	svc := service.NewIdentityService(
		repository.NewUserRepository(db),
		repository.NewRefreshTokenRepository(db),
		manager,
		cfg.RefreshTokenTTL,
	)

	general := ratelimit.NewGeneral(redisClient, cfg.GeneralLimit, cfg.GeneralWindow)
	register := ratelimit.NewWindow(redisClient, "register", cfg.RegisterLimit, cfg.SensitiveWindow)

	engine := app.NewEngine("identity-service")
	engine.Use(middleware.RateLimit(general))
	handler.NewIdentityHandler(svc).Register(engine, middleware.SensitiveRateLimit(register))

	if err := app.Run(engine, cfg.Port); err != nil {
		logger.Fatal("identity service stopped", zap.Error(err))
	}
}
