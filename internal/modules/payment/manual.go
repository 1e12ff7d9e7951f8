package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"tourbooking/internal/domain"
	"tourbooking/internal/modules/live"
	"tourbooking/internal/repository"
)

// ManualUpdate is an operator-driven status change for one booking.
type ManualUpdate struct {
	BookingReference string
	Status           domain.BookingStatus
	PaymentID        string
	Details          datatypes.JSON
}

// MarkPaid applies a manual status change. Paid and confirmed go through the
// same conditional transition as Reconcile, so side effects fire at most once.
// Moving between paid and confirmed is a plain status write without side
// effects. Other statuses are written as given; pending reopens the balance.
func (r *Reconciler) MarkPaid(ctx context.Context, u ManualUpdate) (VerificationResult, error) {
	ref := strings.ToUpper(strings.TrimSpace(u.BookingReference))
	if ref == "" {
		return VerificationResult{}, fmt.Errorf("%w: bookingReference is required", ErrValidation)
	}
	if !u.Status.Valid() {
		return VerificationResult{}, fmt.Errorf("%w: unsupported status %q", ErrValidation, u.Status)
	}
	log := r.log.WithField("booking_reference", ref).WithField("status", u.Status).WithField("source", domain.SourceManual)

	b, err := r.bookings.GetByReference(ctx, ref)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return VerificationResult{}, ErrBookingNotFound
	}
	if err != nil {
		return VerificationResult{}, err
	}

	in := ReconcileInput{PaymentID: strings.TrimSpace(u.PaymentID), BookingReference: ref, Source: domain.SourceManual}
	if in.PaymentID == "" && b.PaymentID != nil {
		in.PaymentID = *b.PaymentID
	}
	res := VerificationResult{BookingLinked: true, Booking: b}

	if !u.Status.IsPaid() {
		if err := r.writeStatus(ctx, b, u); err != nil {
			return VerificationResult{}, err
		}
		return r.statusChanged(ctx, in, b, u.Status, res, log), nil
	}

	if b.Status.IsPaid() {
		if b.Status != u.Status {
			changed, err := r.bookings.PromotePaid(ctx, b.ID, u.Status)
			if err != nil {
				return VerificationResult{}, err
			}
			if changed {
				return r.statusChanged(ctx, in, b, u.Status, res, log), nil
			}
		}
		r.record(ctx, in, ref, nil, OutcomeAlreadyPaid)
		res.Success = true
		res.AlreadyPaid = true
		res.Message = "Booking is already paid"
		return res, nil
	}

	changed, err := r.bookings.MarkPaid(ctx, b.ID, repository.PaidTransition{
		Status:    u.Status,
		PaymentID: in.PaymentID,
		Details:   u.Details,
		At:        r.now(),
	})
	if err != nil {
		return VerificationResult{}, err
	}
	if fresh, err := r.bookings.GetByID(ctx, b.ID); err == nil {
		res.Booking = fresh
	}
	res.Success = true
	if !changed {
		r.record(ctx, in, ref, nil, OutcomeAlreadyPaid)
		res.AlreadyPaid = true
		res.Message = "Booking is already paid"
		return res, nil
	}

	log.Info("booking marked paid manually")
	r.record(ctx, in, ref, nil, OutcomePaid)
	r.afterPaid(ctx, res.Booking, nil, domain.SourceManual)
	res.Message = "Booking marked as " + string(u.Status)
	return res, nil
}

// writeStatus stores a non-settled status. Leaving the settled set to pending
// reopens the balance.
func (r *Reconciler) writeStatus(ctx context.Context, b *domain.Booking, u ManualUpdate) error {
	if b.Status.IsPaid() && u.Status == domain.BookingPending {
		reopened, err := r.bookings.Reopen(ctx, b.ID, u.Details)
		if err != nil || reopened {
			return err
		}
	}
	return r.bookings.SetStatus(ctx, b.ID, u.Status, u.Details)
}

func (r *Reconciler) statusChanged(ctx context.Context, in ReconcileInput, b *domain.Booking, status domain.BookingStatus, res VerificationResult, log logrus.FieldLogger) VerificationResult {
	r.record(ctx, in, b.BookingReference, nil, OutcomeManualStatus)
	if fresh, err := r.bookings.GetByID(ctx, b.ID); err == nil {
		res.Booking = fresh
	}
	if r.live != nil {
		r.live.Publish(live.Event{Type: live.TypeBookingStatus, BookingID: b.ID, BookingReference: b.BookingReference, Status: string(status), Source: string(domain.SourceManual)})
	}
	log.Info("booking status updated")
	res.Success = true
	res.Message = "Booking status updated"
	return res
}
