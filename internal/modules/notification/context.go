package notification

import (
	"fmt"

	"tourbooking/internal/domain"
)

// BookingContext is everything the templates need to describe one booking.
type BookingContext struct {
	Reference        string
	Status           string
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	TourName         string
	TourDate         string
	Adults           int
	Children         int
	TotalPax         int
	TotalPayment     float64
	Deposit          float64
	RemainingBalance float64
	Currency         string
	PaymentID        string
	Notes            string
}

// ContextFromBooking builds the template context. tour may be nil when the
// catalog entry is gone; the tour id is shown instead.
func ContextFromBooking(b *domain.Booking, tour *domain.Tour, currency string) BookingContext {
	bc := BookingContext{
		Reference:        b.BookingReference,
		Status:           string(b.Status),
		TourDate:         b.TourDate,
		Adults:           b.Adults,
		Children:         b.Children,
		TotalPax:         b.TotalPax,
		TotalPayment:     b.TotalPayment,
		Deposit:          b.Deposit,
		RemainingBalance: b.RemainingBalance,
		Currency:         currency,
		Notes:            b.Notes,
	}
	if b.Customer != nil {
		bc.CustomerName = b.Customer.Name
		bc.CustomerEmail = b.Customer.Email
		bc.CustomerPhone = b.Customer.Phone
	}
	if b.PaymentID != nil {
		bc.PaymentID = *b.PaymentID
	}
	if tour != nil {
		bc.TourName = tour.Name
	} else {
		bc.TourName = fmt.Sprintf("Tour #%d", b.TourID)
	}
	return bc
}

func (bc BookingContext) Money(v float64) string {
	return fmt.Sprintf("%.2f %s", v, bc.Currency)
}
