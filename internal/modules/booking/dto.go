package booking

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// FlexID accepts both 5 and "5"; storefront forms post ids as strings.
type FlexID int64

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = FlexID(n)
	return nil
}

type CustomerInfo struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
}

type BookingData struct {
	TourID     FlexID  `json:"tourId" validate:"gt=0"`
	Date       string  `json:"date" validate:"required,isodate"`
	Adults     int     `json:"adults" validate:"gte=1"`
	Children   int     `json:"children" validate:"gte=0"`
	TotalPax   int     `json:"totalPax" validate:"gte=0"`
	TotalPrice float64 `json:"totalPrice" validate:"gt=0"`
	Notes      string  `json:"notes"`
	Source     string  `json:"source"`
}

type CreatePendingRequest struct {
	CustomerInfo CustomerInfo `json:"customerInfo"`
	BookingData  BookingData  `json:"bookingData"`
}

// Created identifies a freshly inserted booking.
type Created struct {
	BookingID        int64
	BookingReference string
}

// Result is the public response of the booking endpoints.
type Result struct {
	Success          bool   `json:"success"`
	BookingID        int64  `json:"bookingId,omitempty"`
	BookingReference string `json:"booking_reference,omitempty"`
	Message          string `json:"message,omitempty"`
}

// Summary is the receipt view of a booking.
type Summary struct {
	BookingReference string  `json:"booking_reference"`
	Status           string  `json:"status"`
	TourID           int64   `json:"tour_id"`
	TourName         string  `json:"tour_name,omitempty"`
	TourDate         string  `json:"tour_date"`
	Adults           int     `json:"adults"`
	Children         int     `json:"children"`
	TotalPax         int     `json:"total_pax"`
	TotalPayment     float64 `json:"total_payment"`
	Deposit          float64 `json:"deposit"`
	RemainingBalance float64 `json:"remaining_balance"`
	CustomerName     string  `json:"customer_name,omitempty"`
	Paid             bool    `json:"paid"`
}
