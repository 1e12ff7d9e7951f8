package booking

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings/create-pending", h.CreatePending)
	rg.GET("/bookings/:reference", h.GetByReference)
}

// CreatePending handles POST /api/bookings/create-pending.
func (h *Handler) CreatePending(c *gin.Context) {
	var req CreatePendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Result{Success: false, Message: "Invalid request body"})
		return
	}

	created, err := h.service.CreatePending(c.Request.Context(), req)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, Result{Success: false, Message: ve.Message})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, Result{Success: false, Message: "Failed to create booking, please try again"})
		return
	}

	c.JSON(http.StatusOK, Result{
		Success:          true,
		BookingID:        created.BookingID,
		BookingReference: created.BookingReference,
	})
}

// GetByReference handles GET /api/bookings/:reference.
func (h *Handler) GetByReference(c *gin.Context) {
	summary, err := h.service.Lookup(c.Request.Context(), c.Param("reference"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "booking": summary})
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, Result{Success: false, Message: err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, Result{Success: false, Message: "Booking not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, Result{Success: false, Message: "Failed to load booking"})
	}
}
