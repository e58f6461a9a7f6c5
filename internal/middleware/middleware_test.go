package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/social-platform/internal/ratelimit"
	"github.com/d60-Lab/social-platform/pkg/response"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func okHandler(c *gin.Context) {
	response.Success(c, gin.H{"ok": true})
}

func do(engine *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRequireUserHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/whoami", RequireUserHeader(), func(c *gin.Context) {
		response.Success(c, gin.H{"userId": UserID(c)})
	})

	rec := do(engine, http.MethodGet, "/whoami", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(engine, http.MethodGet, "/whoami", map[string]string{HeaderUserID: "user-42"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			UserID string `json:"userId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "user-42", body.Data.UserID)
}

func TestRateLimitRejectsWithExpectedShape(t *testing.T) {
	client, _ := newTestRedis(t)
	limiter := ratelimit.NewGeneral(client, 2, time.Second)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/ping", RateLimit(limiter), okHandler)

	headers := map[string]string{HeaderUserID: "user-42"}
	for i := 0; i < 2; i++ {
		rec := do(engine, http.MethodGet, "/ping", headers)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(engine, http.MethodGet, "/ping", headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Too many requests!"}`, rec.Body.String())
}

func TestRateLimitKeysOnAuthenticatedUser(t *testing.T) {
	client, _ := newTestRedis(t)
	limiter := ratelimit.NewGeneral(client, 1, time.Second)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/ping", RateLimit(limiter), okHandler)

	rec := do(engine, http.MethodGet, "/ping", map[string]string{HeaderUserID: "user-a"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(engine, http.MethodGet, "/ping", map[string]string{HeaderUserID: "user-a"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Same client IP, different principal: separate quota.
	rec = do(engine, http.MethodGet, "/ping", map[string]string{HeaderUserID: "user-b"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSensitiveRateLimitOnlyGuardsItsRoute(t *testing.T) {
	client, _ := newTestRedis(t)
	register := ratelimit.NewWindow(client, "register", 1, 15*time.Minute)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/register", SensitiveRateLimit(register), okHandler)
	engine.POST("/login", okHandler)

	headers := map[string]string{HeaderUserID: "user-42"}
	rec := do(engine, http.MethodPost, "/register", headers)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(engine, http.MethodPost, "/register", headers)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(engine, http.MethodPost, "/login", headers)
	assert.Equal(t, http.StatusOK, rec.Code, "exhausted register quota leaves login untouched")
}

func TestSensitiveRateLimitFailsClosed(t *testing.T) {
	client, mr := newTestRedis(t)
	register := ratelimit.NewWindow(client, "register", 100, 15*time.Minute)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/register", SensitiveRateLimit(register), okHandler)

	mr.Close()

	rec := do(engine, http.MethodPost, "/register", map[string]string{HeaderUserID: "user-42"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Too many requests!"}`, rec.Body.String())
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Recovery())
	engine.GET("/boom", func(*gin.Context) { panic("kaboom") })

	rec := do(engine, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}
