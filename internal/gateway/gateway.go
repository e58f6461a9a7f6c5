// Package gateway is the edge dispatcher: it admits, authenticates and
// forwards requests to backend services.
//
// Per-request lifecycle: received -> rate-limited -> (authenticated) ->
// routed -> forwarded -> responded; a request can be rejected at any gate or
// fail on backend unreachability, in which case the client sees one generic
// upstream error and the cause goes to the log.
package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/internal/auth"
	"github.com/d60-Lab/social-platform/internal/middleware"
	"github.com/d60-Lab/social-platform/pkg/errs"
	"github.com/d60-Lab/social-platform/pkg/logger"
	"github.com/d60-Lab/social-platform/pkg/response"
)

// inboundPrefix is rewritten to the backend prefix on every forward:
// /v1/<x> -> /api/<x>.
const (
	inboundPrefix = "/v1"
	backendPrefix = "/api"
)

// Backend is one routed service.
type Backend struct {
	// Name appears in logs only.
	Name string
	// Prefix is the inbound path prefix, e.g. "/v1/posts".
	Prefix string
	// Target is the service base URL.
	Target *url.URL
	// RequireAuth gates the route behind token verification. Only the
	// identity issuance routes run unauthenticated.
	RequireAuth bool
}

// Dispatcher verifies tokens once at the edge and forwards requests with the
// derived identity attached, so backends never re-verify.
type Dispatcher struct {
	verifier *auth.TokenManager
	client   *http.Client
	timeout  time.Duration
	backends []Backend
}

func New(verifier *auth.TokenManager, timeout time.Duration, backends []Backend) *Dispatcher {
	return &Dispatcher{
		verifier: verifier,
		// Redirects from backends are passed through, not followed.
		client: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}},
		timeout:  timeout,
		backends: backends,
	}
}

// Register mounts one catch-all route per backend.
func (d *Dispatcher) Register(r gin.IRouter) {
	for _, b := range d.backends {
		backend := b
		r.Any(backend.Prefix+"/*path", d.handle(backend))
		r.Any(backend.Prefix, d.handle(backend))
	}
}

func (d *Dispatcher) handle(b Backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		if b.RequireAuth {
			identity, ok := d.authenticate(c)
			if !ok {
				return
			}
			c.Request.Header.Set(middleware.HeaderUserID, identity.UserID)
		}
		d.forward(c, b)
	}
}

// authenticate extracts and verifies the bearer token. On failure the
// request is rejected here; the backend is never reached.
func (d *Dispatcher) authenticate(c *gin.Context) (*auth.Identity, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		logger.Warn("request without auth header", zap.String("path", c.Request.URL.Path))
		response.Unauthorized(c, "Authentication required! Please login to continue.")
		c.Abort()
		return nil, false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		response.Unauthorized(c, "Authentication required! Please login to continue.")
		c.Abort()
		return nil, false
	}

	identity, err := d.verifier.Verify(parts[1])
	if err != nil {
		logger.Warn("token verification failed",
			zap.String("path", c.Request.URL.Path), zap.Error(err))
		response.Unauthorized(c, "Invalid token!")
		c.Abort()
		return nil, false
	}
	return identity, true
}

func (d *Dispatcher) forward(c *gin.Context, b Backend) {
	outURL := *b.Target
	outURL.Path = rewritePath(c.Request.URL.Path)
	outURL.RawQuery = c.Request.URL.RawQuery

	ctx, cancel := context.WithTimeout(c.Request.Context(), d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, c.Request.Method, outURL.String(), c.Request.Body)
	if err != nil {
		d.upstreamError(c, b, err)
		return
	}

	req.Header = c.Request.Header.Clone()
	req.Header.Del("Authorization")
	// Multipart bodies stream through untouched so the boundary and binary
	// payload survive; everything else is normalized to JSON.
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.upstreamError(c, b, err)
		return
	}
	defer resp.Body.Close()

	logger.Info("response received from backend",
		zap.String("backend", b.Name), zap.Int("status", resp.StatusCode))

	copyHeaders(c.Writer.Header(), resp.Header)
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		logger.Warn("response copy interrupted",
			zap.String("backend", b.Name), zap.Error(err))
	}
}

// upstreamError hides transport detail from the client; the cause is logged
// classified as an upstream failure.
func (d *Dispatcher) upstreamError(c *gin.Context, b Backend, err error) {
	logger.Error("backend unreachable",
		zap.String("backend", b.Name),
		zap.Error(errs.Wrap(errs.KindUpstream, "gateway.forward", err)))
	c.JSON(http.StatusInternalServerError, gin.H{
		"message": "Internal server error",
		"error":   "upstream unavailable",
	})
}

func rewritePath(path string) string {
	if strings.HasPrefix(path, inboundPrefix) {
		return backendPrefix + strings.TrimPrefix(path, inboundPrefix)
	}
	return path
}

func copyHeaders(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}
