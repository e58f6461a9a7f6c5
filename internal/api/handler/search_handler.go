package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-platform/internal/middleware"
	"github.com/d60-Lab/social-platform/internal/service"
	"github.com/d60-Lab/social-platform/pkg/response"
)

// SearchHandler queries the post projection maintained by choreography.
type SearchHandler struct {
	svc *service.SearchService
}

func NewSearchHandler(svc *service.SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

func (h *SearchHandler) Register(r gin.IRouter) {
	search := r.Group("/api/search", middleware.RequireUserHeader())
	search.GET("/posts", h.Search)
	search.GET("/posts/get", h.ListAll)
}

// Search returns posts matching the query, newest first.
// @Summary Search posts
// @Tags search
// @Param query query string true "search terms"
// @Success 200 {object} response.Response
// @Router /api/search/posts [get]
func (h *SearchHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		response.BadRequest(c, "Query is required!")
		return
	}

	results, err := h.svc.Search(c.Request.Context(), query)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, results)
}

// ListAll returns the full projection, mostly for debugging.
// @Summary List indexed posts
// @Tags search
// @Success 200 {object} response.Response
// @Router /api/search/posts/get [get]
func (h *SearchHandler) ListAll(c *gin.Context) {
	results, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, results)
}
