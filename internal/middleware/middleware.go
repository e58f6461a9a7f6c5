// Package middleware holds the gin middleware shared by the gateway and the
// backend services.
package middleware

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/internal/ratelimit"
	"github.com/d60-Lab/social-platform/pkg/logger"
	"github.com/d60-Lab/social-platform/pkg/response"
)

// HeaderUserID carries the verified principal from the gateway to backends.
// Backends trust it and never re-verify the token.
const HeaderUserID = "x-user-id"

// ContextUserID is the gin context key the identity is stored under.
const ContextUserID = "userID"

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// Recovery turns panics into 500 responses and reports them to Sentry when a
// DSN was configured at startup.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if hub := sentry.CurrentHub(); hub.Client() != nil {
					hub.Recover(r)
				}
				logger.Error("panic recovered", zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path))
				c.Abort()
				response.InternalError(c)
			}
		}()
		c.Next()
	}
}

// RequireUserHeader rejects backend requests arriving without the verified
// principal header and stores the identity for handlers.
func RequireUserHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			logger.Warn("request without authenticated user header",
				zap.String("path", c.Request.URL.Path))
			c.Abort()
			response.Unauthorized(c, "Authentication required! Please login to continue.")
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// UserID returns the identity stored by RequireUserHeader.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// ClientIdentity picks the rate-limit key: the authenticated principal when
// present, the client IP otherwise.
func ClientIdentity(c *gin.Context) string {
	if id := c.GetHeader(HeaderUserID); id != "" {
		return id
	}
	return c.ClientIP()
}

// RateLimit is the general tier applied to all traffic at the earliest
// middleware stage. The limiter itself fails open on store trouble.
func RateLimit(limiter *ratelimit.GeneralLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := ClientIdentity(c)
		if !limiter.Allow(c.Request.Context(), identity) {
			logger.Warn("rate limit exceeded", zap.String("identity", identity))
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}

// SensitiveRateLimit is the strict tier for registration/login-class routes.
// Store unavailability rejects the request (fail-closed): an unprotected auth
// endpoint is worse than a briefly unavailable one.
func SensitiveRateLimit(limiter *ratelimit.WindowLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := ClientIdentity(c)
		allowed, err := limiter.Allow(c.Request.Context(), identity)
		if err != nil {
			logger.Error("rate-limit store unavailable, sensitive limiter failing closed",
				zap.String("identity", identity), zap.Error(err))
			response.TooManyRequests(c)
			return
		}
		if !allowed {
			logger.Warn("sensitive endpoint rate limit exceeded",
				zap.String("identity", identity), zap.String("path", c.Request.URL.Path))
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
