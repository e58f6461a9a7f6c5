// Package handler exposes each service's HTTP surface over gin.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/pkg/errs"
	"github.com/d60-Lab/social-platform/pkg/logger"
	"github.com/d60-Lab/social-platform/pkg/response"
)

// fail maps a classified error to the response envelope. Unclassified and
// infrastructure errors collapse to a generic 500 with the cause logged.
func fail(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := errs.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("kind", kind.String()),
			zap.Error(err))
		response.InternalError(c)
		return
	}
	response.Error(c, status, errs.Message(err))
}
