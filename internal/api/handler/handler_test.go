package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/social-platform/pkg/errs"
)

func TestFailMapsKindsToEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", errs.New(errs.KindValidation, "op", "Invalid credentials!"), http.StatusBadRequest, "Invalid credentials!"},
		{"conflict", errs.New(errs.KindConflict, "op", "User already existed!"), http.StatusBadRequest, "User already existed!"},
		{"not found", errs.New(errs.KindNotFound, "op", "Post not found!"), http.StatusNotFound, "Post not found!"},
		{"auth", errs.New(errs.KindAuth, "op", "Invalid token!"), http.StatusUnauthorized, "Invalid token!"},
		{"rate limit", errs.New(errs.KindRateLimit, "op", "Too many requests!"), http.StatusTooManyRequests, "Too many requests!"},
		{"store failure stays generic", errs.Wrap(errs.KindStoreUnavailable, "op", errors.New("dial tcp")), http.StatusInternalServerError, "Internal server error!"},
		{"unclassified stays generic", errors.New("boom"), http.StatusInternalServerError, "Internal server error!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			fail(c, tc.err)

			require.Equal(t, tc.status, rec.Code)
			success, message, _ := decodeEnvelope(t, rec)
			assert.False(t, success)
			assert.Equal(t, tc.message, message)
		})
	}
}
