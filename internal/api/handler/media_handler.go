package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-platform/internal/middleware"
	"github.com/d60-Lab/social-platform/internal/service"
	"github.com/d60-Lab/social-platform/pkg/response"
)

// maxUploadSize caps a single media file at 5 MiB.
const maxUploadSize = 5 << 20

// MediaHandler is the media service's HTTP surface.
type MediaHandler struct {
	svc *service.MediaService
}

func NewMediaHandler(svc *service.MediaService) *MediaHandler { return &MediaHandler{svc: svc} }

func (h *MediaHandler) Register(r gin.IRouter) {
	media := r.Group("/api/media", middleware.RequireUserHeader())
	media.POST("/upload", h.Upload)
	media.GET("/get", h.List)
}

// Upload stores one multipart file in the blob store and records it.
// @Summary Upload media
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "media file"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/media/upload [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "No file found. Please try adding a file and try!")
		return
	}
	if header.Size > maxUploadSize {
		response.BadRequest(c, "File too large!")
		return
	}

	file, err := header.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer file.Close()

	media, err := h.svc.Upload(
		c.Request.Context(),
		middleware.UserID(c),
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, "New media uploaded successfully!", media)
}

// List returns the caller's uploads.
// @Summary List own media
// @Tags media
// @Success 200 {object} response.Response
// @Router /api/media/get [get]
func (h *MediaHandler) List(c *gin.Context) {
	media, err := h.svc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, media)
}
