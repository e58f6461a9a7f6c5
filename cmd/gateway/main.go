// The gateway is the single client-facing entry point: admission control,
// token verification and dispatch to the backend services.
package main

import (
	"context"
	"net/url"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/config"
	"github.com/d60-Lab/social-platform/internal/app"
	"github.com/d60-Lab/social-platform/internal/auth"
	"github.com/d60-Lab/social-platform/internal/gateway"
	"github.com/d60-Lab/social-platform/internal/middleware"
	"github.com/d60-Lab/social-platform/internal/ratelimit"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

func main() {
	cfg, err := config.Load(3000)
	if err != nil {
		panic(err)
	}

	cleanup, err := app.Setup(context.Background(), "api-gateway", cfg)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingOrWarn(redisClient)

	verifier := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	backends := []gateway.Backend{
		{Name: "identity", Prefix: "/v1/auth", Target: mustParse(cfg.IdentityServiceURL)},
		{Name: "post", Prefix: "/v1/posts", Target: mustParse(cfg.PostServiceURL), RequireAuth: true},
		{Name: "media", Prefix: "/v1/media", Target: mustParse(cfg.MediaServiceURL), RequireAuth: true},
		{Name: "search", Prefix: "/v1/search", Target: mustParse(cfg.SearchServiceURL), RequireAuth: true},
	}
	dispatcher := gateway.New(verifier, cfg.ProxyTimeout, backends)

	general := ratelimit.NewGeneral(redisClient, cfg.GeneralLimit, cfg.GeneralWindow)
	sensitive := ratelimit.NewWindow(redisClient, "gateway", cfg.SensitiveLimit, cfg.SensitiveWindow)

	engine := app.NewEngine("api-gateway")
	engine.Use(
		gzip.Gzip(gzip.DefaultCompression),
		middleware.RateLimit(general),
		middleware.SensitiveRateLimit(sensitive),
	)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	dispatcher.Register(engine)

	logger.Info("gateway routes configured",
		zap.String("identity", cfg.IdentityServiceURL),
		zap.String("post", cfg.PostServiceURL),
		zap.String("media", cfg.MediaServiceURL),
		zap.String("search", cfg.SearchServiceURL),
	)

	if err := app.Run(engine, cfg.Port); err != nil {
		logger.Fatal("gateway stopped", zap.Error(err))
	}
}

func mustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		logger.Fatal("invalid backend url", zap.String("url", raw), zap.Error(err))
	}
	return u
}

// The gateway starts even when Redis is down; limiters degrade per their
// fail-open/fail-closed policies.
func pingOrWarn(client *redis.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup, limiters will degrade", zap.Error(err))
	}
}
