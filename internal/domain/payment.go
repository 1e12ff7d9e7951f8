package domain

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentStatus is the gateway's view of a payment.
type PaymentStatus string

const (
	PaymentOpen      PaymentStatus = "open"
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentExpired   PaymentStatus = "expired"
)

// Succeeded reports whether the gateway considers the money captured.
// Webhook events say "paid" where the payments API says "succeeded".
func (s PaymentStatus) Succeeded() bool {
	return s == PaymentSucceeded || s == PaymentPaid
}

func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentFailed, PaymentCancelled, PaymentExpired:
		return true
	}
	return s.Succeeded()
}

type PaymentEventSource string

const (
	SourceWebhook PaymentEventSource = "webhook"
	SourceVerify  PaymentEventSource = "verify"
	SourceManual  PaymentEventSource = "manual"
	SourceCLI     PaymentEventSource = "cli"
)

// PaymentEvent is the audit row written for every reconciliation attempt.
type PaymentEvent struct {
	ID               int64              `gorm:"primaryKey" json:"id"`
	EventID          string             `gorm:"type:varchar(36);uniqueIndex;not null" json:"event_id"`
	PaymentID        string             `gorm:"type:varchar(64);index" json:"payment_id"`
	BookingReference string             `gorm:"type:varchar(32);index" json:"booking_reference,omitempty"`
	Status           string             `gorm:"type:varchar(20)" json:"status"`
	Source           PaymentEventSource `gorm:"type:varchar(20)" json:"source"`
	Amount           string             `gorm:"type:varchar(32)" json:"amount,omitempty"`
	Outcome          string             `gorm:"type:varchar(64)" json:"outcome"`
	Payload          datatypes.JSON     `json:"payload,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

func (PaymentEvent) TableName() string { return "payment_events" }
