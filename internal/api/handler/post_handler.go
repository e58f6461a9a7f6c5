package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-platform/internal/middleware"
	"github.com/d60-Lab/social-platform/internal/service"
	"github.com/d60-Lab/social-platform/pkg/response"
)

type createPostRequest struct {
	Content  string   `json:"content" binding:"required,min=1,max=5000"`
	MediaIDs []string `json:"mediaIds"`
}

// PostHandler is the owning service's CRUD surface.
type PostHandler struct {
	svc *service.PostService
}

func NewPostHandler(svc *service.PostService) *PostHandler { return &PostHandler{svc: svc} }

// Register mounts the post routes. Every route requires the verified
// principal header injected by the gateway.
func (h *PostHandler) Register(r gin.IRouter) {
	posts := r.Group("/api/posts", middleware.RequireUserHeader())
	posts.POST("", h.Create)
	posts.GET("", h.List)
	posts.GET("/:postId", h.Get)
	posts.DELETE("/:postId", h.Delete)
}

// Create persists a post, publishes post.created and invalidates cached
// listings before responding.
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body createPostRequest true "post body"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	post, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), req.Content, req.MediaIDs)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, "New post created successfully!", post)
}

// List returns one page of posts, served from cache when warm.
// @Summary List posts
// @Tags posts
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(10)
// @Success 200 {object} response.Response
// @Router /api/posts [get]
func (h *PostHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	listing, err := h.svc.List(c.Request.Context(), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, listing)
}

// Get returns a single post by id.
// @Summary Get a post
// @Tags posts
// @Param postId path string true "post id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/posts/{postId} [get]
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.svc.Get(c.Request.Context(), c.Param("postId"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, post)
}

// Delete removes an owned post and publishes post.deleted.
// @Summary Delete a post
// @Tags posts
// @Param postId path string true "post id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/posts/{postId} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("postId"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "Delete post successfully!"})
}
