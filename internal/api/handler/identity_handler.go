package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-platform/internal/service"
	"github.com/d60-Lab/social-platform/pkg/response"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,username,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// IdentityHandler is the auth surface: the only routes reachable through the
// gateway without a token.
type IdentityHandler struct {
	svc *service.IdentityService
}

func NewIdentityHandler(svc *service.IdentityService) *IdentityHandler {
	return &IdentityHandler{svc: svc}
}

// Register mounts the auth routes. registerLimiter is the stricter
// sensitive-route gate applied to /register only.
func (h *IdentityHandler) Register(r gin.IRouter, registerLimiter gin.HandlerFunc) {
	auth := r.Group("/api/auth")
	auth.POST("/register", registerLimiter, h.RegisterUser)
	auth.POST("/login", h.Login)
	auth.POST("/refresh-token", h.Refresh)
	auth.POST("/logout", h.Logout)
}

// RegisterUser creates an account and returns an initial token pair.
// @Summary Register
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "registration"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/auth/register [post]
func (h *IdentityHandler) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, pair, err := h.svc.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, "New user created successfully!", gin.H{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Login exchanges credentials for a token pair.
// @Summary Login
// @Tags auth
// @Param request body loginRequest true "credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/auth/login [post]
func (h *IdentityHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID, pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{
		"userId":       userID,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Refresh rotates a refresh token.
// @Summary Refresh tokens
// @Tags auth
// @Param request body refreshRequest true "refresh token"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/auth/refresh-token [post]
func (h *IdentityHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Refresh token missing")
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Logout revokes a refresh token.
// @Summary Logout
// @Tags auth
// @Param request body refreshRequest true "refresh token"
// @Success 200 {object} response.Response
// @Router /api/auth/logout [post]
func (h *IdentityHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Refresh token missing")
		return
	}

	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "Logged out successfully!"})
}
