package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"tourbooking/internal/domain"
	"tourbooking/internal/pkg/logger"
)

const webhookTimeout = 30 * time.Second

type Handler struct {
	reconciler *Reconciler
	log        logrus.FieldLogger
}

func NewHandler(reconciler *Reconciler, log logrus.FieldLogger) *Handler {
	return &Handler{reconciler: reconciler, log: logger.OrDiscard(log).WithField("component", "payment")}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/create-dibsy", h.CreateCheckout)
	rg.GET("/payments/verify-dibsy", h.Verify)
	rg.POST("/payments/webhook", h.Webhook)
}

// RegisterProtectedRoutes mounts the manual status update; rg must carry
// admin authentication since it can settle a booking without provider proof.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings/update-payment-status", h.UpdatePaymentStatus)
}

// Verify handles GET /api/payments/verify-dibsy?paymentId=&bookingReference=.
func (h *Handler) Verify(c *gin.Context) {
	paymentID := c.Query("paymentId")
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, VerificationResult{Message: "paymentId is required"})
		return
	}
	res := h.reconciler.Verify(c.Request.Context(), paymentID, c.Query("bookingReference"))
	c.JSON(http.StatusOK, res)
}

// Webhook handles POST /api/payments/webhook. The provider always gets 200 so
// it does not redeliver a payment that was already captured.
func (h *Handler) Webhook(c *gin.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.WithField("panic", rec).Error("webhook processing panicked")
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}()

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		h.log.WithError(err).Error("reading webhook body failed")
		return
	}
	var ev WebhookEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.log.WithError(err).WithField("body", string(raw)).Error("malformed webhook payload")
		return
	}

	// the provider may hang up early; finish reconciling regardless
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), webhookTimeout)
	defer cancel()
	h.reconciler.HandleEvent(ctx, ev)
}

// CreateCheckout handles POST /api/payments/create-dibsy.
func (h *Handler) CreateCheckout(c *gin.Context) {
	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, CheckoutResult{Message: "bookingReference is required"})
		return
	}

	res, err := h.reconciler.Checkout(c.Request.Context(), req.BookingReference)
	var gwErr *GatewayError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, CheckoutResult{Message: err.Error()})
	case errors.Is(err, ErrBookingNotFound):
		c.JSON(http.StatusNotFound, CheckoutResult{Message: "Booking not found"})
	case errors.Is(err, ErrAlreadyPaid):
		c.JSON(http.StatusConflict, CheckoutResult{Message: "Booking is already paid"})
	case errors.As(err, &gwErr), errors.Is(err, ErrGatewayNotConfigured):
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, CheckoutResult{Message: "Payment provider is unavailable, please try again"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, CheckoutResult{Message: "Failed to start payment"})
	}
}

// UpdatePaymentStatus handles POST /api/bookings/update-payment-status.
func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, VerificationResult{Message: "bookingReference and status are required"})
		return
	}

	var details datatypes.JSON
	if len(req.PaymentDetails) > 0 && string(req.PaymentDetails) != "null" {
		details = datatypes.JSON(req.PaymentDetails)
	}
	res, err := h.reconciler.MarkPaid(c.Request.Context(), ManualUpdate{
		BookingReference: req.BookingReference,
		Status:           domain.BookingStatus(req.Status),
		PaymentID:        req.PaymentID,
		Details:          details,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, VerificationResult{Message: err.Error()})
	case errors.Is(err, ErrBookingNotFound):
		c.JSON(http.StatusNotFound, VerificationResult{Message: "Booking not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, VerificationResult{Message: "Failed to update booking"})
	}
}
