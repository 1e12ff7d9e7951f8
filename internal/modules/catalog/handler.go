package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tourbooking/internal/pkg/response"
	"tourbooking/internal/repository"
)

// Handler exposes one catalog table over HTTP.
type Handler[T repository.CatalogEntity] struct {
	path    string
	service *Service[T]
}

func NewHandler[T repository.CatalogEntity](path string, service *Service[T]) *Handler[T] {
	return &Handler[T]{path: path, service: service}
}

// RegisterPublicRoutes exposes the active rows to the storefront.
func (h *Handler[T]) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.GET("/"+h.path, h.listActive)
}

func (h *Handler[T]) RegisterAdminRoutes(admin *gin.RouterGroup) {
	g := admin.Group("/" + h.path)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler[T]) listActive(c *gin.Context) {
	rows, err := h.service.List(c.Request.Context(), true)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

func (h *Handler[T]) list(c *gin.Context) {
	rows, err := h.service.List(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

func (h *Handler[T]) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	row, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, row)
}

func (h *Handler[T]) create(c *gin.Context) {
	var row T
	if err := c.ShouldBindJSON(&row); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	created, err := h.service.Create(c.Request.Context(), &row)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, created)
}

func (h *Handler[T]) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var row T
	if err := c.ShouldBindJSON(&row); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	updated, err := h.service.Update(c.Request.Context(), id, &row)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, updated)
}

func (h *Handler[T]) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler[T]) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", h.service.name+" not found")
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process "+h.service.name)
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid id")
		return 0, false
	}
	return id, true
}
