package payment

import (
	"encoding/json"

	"tourbooking/internal/domain"
)

// ReconcileInput is the single entry point shared by the return-page verifier,
// the webhook, manual admin updates and the CLI.
type ReconcileInput struct {
	PaymentID        string
	BookingReference string
	Metadata         map[string]interface{}
	Source           domain.PaymentEventSource
}

// VerificationResult never carries an error; callers branch on Success.
type VerificationResult struct {
	Success         bool                 `json:"success"`
	PaymentVerified bool                 `json:"paymentVerified"`
	BookingLinked   bool                 `json:"bookingLinked"`
	AlreadyPaid     bool                 `json:"alreadyPaid"`
	Created         bool                 `json:"created,omitempty"`
	Status          domain.PaymentStatus `json:"status,omitempty"`
	Booking         *domain.Booking      `json:"booking,omitempty"`
	PaymentData     *PaymentIntent       `json:"paymentData,omitempty"`
	Message         string               `json:"message"`
}

// WebhookEvent is the provider's push payload.
type WebhookEvent struct {
	ID       string                 `json:"id"`
	Status   domain.PaymentStatus   `json:"status"`
	Metadata map[string]interface{} `json:"metadata"`
	Amount   Amount                 `json:"amount"`
}

type CreateCheckoutRequest struct {
	BookingReference string `json:"bookingReference" binding:"required"`
}

type CheckoutResult struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"paymentUrl,omitempty"`
	PaymentID  string `json:"paymentId,omitempty"`
	Message    string `json:"message,omitempty"`
}

type UpdatePaymentStatusRequest struct {
	BookingReference string          `json:"bookingReference" binding:"required"`
	Status           string          `json:"status" binding:"required"`
	PaymentID        string          `json:"paymentId"`
	PaymentDetails   json.RawMessage `json:"paymentDetails"`
}
