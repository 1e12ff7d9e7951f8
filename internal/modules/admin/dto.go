package admin

import (
	"encoding/json"

	"tourbooking/internal/domain"
)

// LineItem is a booking line item with catalog names resolved.
type LineItem struct {
	domain.BookingTour
	TourName  string `json:"tour_name,omitempty"`
	ShipName  string `json:"ship_name,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
}

// BookingView is what the dashboard renders for one booking.
type BookingView struct {
	domain.Booking
	TourName string     `json:"tour_name,omitempty"`
	Tours    []LineItem `json:"tours"`
}

type ListQuery struct {
	Status string `form:"status"`
	From   string `form:"from"`
	To     string `form:"to"`
	Query  string `form:"q"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type UpdateStatusRequest struct {
	Status         string          `json:"status" binding:"required"`
	PaymentID      string          `json:"paymentId"`
	PaymentDetails json.RawMessage `json:"paymentDetails"`
}

type AssignRequest struct {
	ShipID  *int64 `json:"ship_id"`
	AgentID *int64 `json:"agent_id"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type Stats struct {
	ByStatus    []StatusCount `json:"by_status"`
	Total       int64         `json:"total"`
	PaidRevenue float64       `json:"paid_revenue"`
	Outstanding float64       `json:"outstanding"`
}
