package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tourbooking/internal/pkg/response"
	"tourbooking/internal/repository"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.POST("/auth/login", h.Login)
}

func (h *Handler) RegisterProtectedRoutes(admin *gin.RouterGroup) {
	admin.GET("/me", h.GetMe)
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		return
	}

	response.Success(c, http.StatusOK, res)
}

// GetMe handles GET /api/admin/me.
func (h *Handler) GetMe(c *gin.Context) {
	admin, err := h.service.Me(c.Request.Context(), c.GetInt64("admin_id"))
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, admin)
	case errors.Is(err, ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	case errors.Is(err, repository.ErrAdminNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Admin not found")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load admin")
	}
}
