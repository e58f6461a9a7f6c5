// Package response defines the JSON envelope shared by every service and the
// gateway. Clients see exactly one shape: {success, message, data?}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the wire envelope for all client-visible responses.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// Error emits a failure envelope with the given status. The convenience
// wrappers below cover the common statuses.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Message: message})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// TooManyRequests is the fixed rate-limit rejection shape, identical for both
// limiter tiers.
func TooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{
		Success: false,
		Message: "Too many requests!",
	})
}

// InternalError deliberately hides the underlying cause; callers log it.
func InternalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Message: "Internal server error!",
	})
}
