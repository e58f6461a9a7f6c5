package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/social-platform/internal/auth"
	"github.com/d60-Lab/social-platform/internal/middleware"
)

func TestRewritePath(t *testing.T) {
	assert.Equal(t, "/api/posts", rewritePath("/v1/posts"))
	assert.Equal(t, "/api/posts/abc", rewritePath("/v1/posts/abc"))
	assert.Equal(t, "/health", rewritePath("/health"))
}

type captured struct {
	method      string
	path        string
	query       string
	userID      string
	authHeader  string
	contentType string
	body        []byte
}

func newCapturingBackend(t *testing.T, status int, reply string) (*httptest.Server, *atomic.Pointer[captured]) {
	t.Helper()
	var last atomic.Pointer[captured]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		last.Store(&captured{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			userID:      r.Header.Get(middleware.HeaderUserID),
			authHeader:  r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func newTestEngine(t *testing.T, verifier *auth.TokenManager, backends []Backend) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	New(verifier, 5*time.Second, backends).Register(engine)
	return engine
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestForwardRewritesAndInjectsIdentity(t *testing.T) {
	backend, last := newCapturingBackend(t, http.StatusOK, `{"success":true}`)
	verifier := auth.NewTokenManager("test-secret", time.Hour)
	engine := newTestEngine(t, verifier, []Backend{{
		Name:        "posts",
		Prefix:      "/v1/posts",
		Target:      mustURL(t, backend.URL),
		RequireAuth: true,
	}})

	token, err := verifier.Issue("user-42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/posts/abc?page=2&limit=5", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	got := last.Load()
	require.NotNil(t, got)
	assert.Equal(t, "/api/posts/abc", got.path)
	assert.Equal(t, "page=2&limit=5", got.query)
	assert.Equal(t, "user-42", got.userID, "verified identity travels as a header")
	assert.Empty(t, got.authHeader, "the bearer token stays at the edge")
	assert.Equal(t, "application/json", got.contentType)
}

func TestAuthFailuresNeverReachBackend(t *testing.T) {
	backend, last := newCapturingBackend(t, http.StatusOK, `{}`)
	verifier := auth.NewTokenManager("test-secret", time.Hour)
	engine := newTestEngine(t, verifier, []Backend{{
		Name:        "posts",
		Prefix:      "/v1/posts",
		Target:      mustURL(t, backend.URL),
		RequireAuth: true,
	}})

	expired, err := auth.NewTokenManager("test-secret", -time.Minute).Issue("user-42")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-token"},
		{"expired token", "Bearer " + expired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/posts", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Nil(t, last.Load(), "rejected request must not be forwarded")
		})
	}
}

func TestUnauthenticatedPrefixSkipsVerification(t *testing.T) {
	backend, last := newCapturingBackend(t, http.StatusCreated, `{"success":true}`)
	engine := newTestEngine(t, auth.NewTokenManager("test-secret", time.Hour), []Backend{{
		Name:   "auth",
		Prefix: "/v1/auth",
		Target: mustURL(t, backend.URL),
	}})

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register",
		strings.NewReader(`{"username":"alice"}`))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	got := last.Load()
	require.NotNil(t, got)
	assert.Equal(t, "/api/auth/register", got.path)
	assert.JSONEq(t, `{"username":"alice"}`, string(got.body))
}

func TestMultipartBodyStreamsThrough(t *testing.T) {
	backend, last := newCapturingBackend(t, http.StatusOK, `{}`)
	verifier := auth.NewTokenManager("test-secret", time.Hour)
	engine := newTestEngine(t, verifier, []Backend{{
		Name:        "media",
		Prefix:      "/v1/media",
		Target:      mustURL(t, backend.URL),
		RequireAuth: true,
	}})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "pic.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte{0xff, 0xd8, 0x00, 0x01})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	token, err := verifier.Issue("user-42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/media/upload", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	got := last.Load()
	require.NotNil(t, got)
	assert.Equal(t, mw.FormDataContentType(), got.contentType,
		"the multipart boundary survives the hop")

	reader := multipart.NewReader(bytes.NewReader(got.body), mw.Boundary())
	part, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "pic.jpg", part.FileName())
	data, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0x00, 0x01}, data)
}

func TestBackendStatusAndBodyPassThrough(t *testing.T) {
	backend, _ := newCapturingBackend(t, http.StatusNotFound,
		`{"success":false,"message":"Post not found!"}`)
	engine := newTestEngine(t, auth.NewTokenManager("test-secret", time.Hour), []Backend{{
		Name:   "posts",
		Prefix: "/v1/posts",
		Target: mustURL(t, backend.URL),
	}})

	req := httptest.NewRequest(http.MethodGet, "/v1/posts/missing", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Post not found!"}`, rec.Body.String())
}

func TestUnreachableBackendReturnsGenericError(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	target := mustURL(t, dead.URL)
	dead.Close()

	engine := newTestEngine(t, auth.NewTokenManager("test-secret", time.Hour), []Backend{{
		Name:   "posts",
		Prefix: "/v1/posts",
		Target: target,
	}})

	req := httptest.NewRequest(http.MethodGet, "/v1/posts", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal server error","error":"upstream unavailable"}`,
		rec.Body.String())
}
