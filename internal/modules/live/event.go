package live

import "time"

const (
	TypeBookingCreated = "booking.created"
	TypeBookingPaid    = "booking.paid"
	TypeBookingStatus  = "booking.status"
	TypeBookingDeleted = "booking.deleted"
	TypePong           = "pong"
)

// Event is pushed to every connected dashboard.
type Event struct {
	Type             string    `json:"type"`
	BookingID        int64     `json:"booking_id,omitempty"`
	BookingReference string    `json:"booking_reference,omitempty"`
	Status           string    `json:"status,omitempty"`
	PaymentID        string    `json:"payment_id,omitempty"`
	Amount           float64   `json:"amount,omitempty"`
	Source           string    `json:"source,omitempty"`
	At               time.Time `json:"at"`
}
