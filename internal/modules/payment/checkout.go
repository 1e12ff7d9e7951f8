package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tourbooking/internal/repository"
)

// Checkout opens a provider payment for the booking's remaining balance and
// links it to the booking while the booking is still pending.
func (r *Reconciler) Checkout(ctx context.Context, ref string) (*CheckoutResult, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return nil, fmt.Errorf("%w: bookingReference is required", ErrValidation)
	}
	b, err := r.bookings.GetByReference(ctx, ref)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if b.Status.IsPaid() {
		return nil, ErrAlreadyPaid
	}
	if b.RemainingBalance <= 0 {
		return nil, fmt.Errorf("%w: booking has no balance to pay", ErrValidation)
	}

	tourName := fmt.Sprintf("Tour #%d", b.TourID)
	if r.tours != nil {
		if t, err := r.tours.GetByID(ctx, b.TourID); err == nil {
			tourName = t.Name
		}
	}

	meta := map[string]interface{}{
		metaBookingReference: b.BookingReference,
		metaTourID:           b.TourID,
		metaTourDate:         b.TourDate,
		metaAdults:           b.Adults,
		metaChildren:         b.Children,
		metaTotalPax:         b.TotalPax,
		metaTotalPrice:       b.TotalPayment,
	}
	var customer Customer
	if b.Customer != nil {
		customer = Customer{Name: b.Customer.Name, Email: b.Customer.Email, Phone: b.Customer.Phone}
		meta[metaCustomerName] = b.Customer.Name
		meta[metaCustomerEmail] = b.Customer.Email
		meta[metaCustomerPhone] = b.Customer.Phone
	}

	created, err := r.gateway.CreatePayment(ctx, CreatePaymentRequest{
		Amount:      b.RemainingBalance,
		Currency:    r.opts.Currency,
		Description: fmt.Sprintf("Booking %s - %s", b.BookingReference, tourName),
		Customer:    customer,
		Metadata:    meta,
	})
	if err != nil {
		r.log.WithError(err).WithField("booking_reference", ref).Error("creating provider payment failed")
		return nil, err
	}

	attached, err := r.bookings.AttachPayment(ctx, b.ID, created.PaymentID)
	if err != nil {
		return nil, err
	}
	if !attached {
		return nil, ErrAlreadyPaid
	}

	r.log.WithField("booking_reference", ref).WithField("payment_id", created.PaymentID).Info("checkout created")
	return &CheckoutResult{Success: true, PaymentURL: created.PaymentURL, PaymentID: created.PaymentID}, nil
}
