package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"tourbooking/internal/database"
	"tourbooking/internal/domain"
	"tourbooking/internal/modules/booking"
	"tourbooking/internal/modules/live"
	"tourbooking/internal/modules/notification"
	"tourbooking/internal/pkg/logger"
	"tourbooking/internal/repository"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrBookingNotFound = errors.New("booking not found")
	ErrAlreadyPaid     = errors.New("booking is already paid")
)

// Event outcomes stored on payment_events.
const (
	OutcomePaid          = "paid"
	OutcomeCreatedPaid   = "created_paid"
	OutcomeAlreadyPaid   = "already_paid"
	OutcomeNotSucceeded  = "not_succeeded"
	OutcomeOrphan        = "orphan"
	OutcomeGatewayError  = "gateway_error"
	OutcomeLookupFailed  = "lookup_failed"
	OutcomeUpdateFailed  = "update_failed"
	OutcomeCreateFailed  = "create_failed"
	OutcomeAmountTooLow  = "amount_mismatch"
	OutcomeIgnored       = "ignored"
	OutcomeUnknownStatus = "unknown_status"
	OutcomeManualStatus  = "manual_status"
)

type Options struct {
	AdminEmail string
	Currency   string
}

type Deps struct {
	Gateway  gateway
	Bookings bookingStore
	Creator  bookingCreator
	Events   eventRecorder
	Tours    tourReader
	Mailer   mailer
	Live     eventPublisher
}

// Reconciler aligns local bookings with the provider's payment state.
type Reconciler struct {
	gateway  gateway
	bookings bookingStore
	creator  bookingCreator
	events   eventRecorder
	tours    tourReader
	mailer   mailer
	live     eventPublisher
	opts     Options
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewReconciler(d Deps, opts Options, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		gateway:  d.Gateway,
		bookings: d.Bookings,
		creator:  d.Creator,
		events:   d.Events,
		tours:    d.Tours,
		mailer:   d.Mailer,
		live:     d.Live,
		opts:     opts,
		log:      logger.OrDiscard(log).WithField("component", "payment"),
		now:      time.Now,
	}
}

// Verify is the pull path used by the payment return page.
func (r *Reconciler) Verify(ctx context.Context, paymentID, bookingReference string) VerificationResult {
	return r.Reconcile(ctx, ReconcileInput{PaymentID: paymentID, BookingReference: bookingReference, Source: domain.SourceVerify})
}

// Reconcile fetches the payment from the provider and, when it succeeded,
// settles the matching booking. Bookings are matched on payment id first and
// booking reference second. A succeeded payment without a booking creates one
// from the payment metadata when it carries a complete booking.
func (r *Reconciler) Reconcile(ctx context.Context, in ReconcileInput) VerificationResult {
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	log := r.log.WithFields(logrus.Fields{"payment_id": in.PaymentID, "source": in.Source})
	if in.PaymentID == "" {
		return VerificationResult{Message: "paymentId is required"}
	}

	intent, err := r.gateway.GetPayment(ctx, in.PaymentID)
	if err != nil {
		log.WithError(err).Error("payment lookup at provider failed")
		r.record(ctx, in, strings.ToUpper(in.BookingReference), nil, OutcomeGatewayError)
		return VerificationResult{Message: "Could not verify the payment with the provider"}
	}

	meta := merge(in.Metadata, intent.Metadata)
	ref := strings.ToUpper(strings.TrimSpace(in.BookingReference))
	if ref == "" {
		ref = meta.reference()
	}
	log = log.WithFields(logrus.Fields{"booking_reference": ref, "status": intent.Status})

	res := VerificationResult{Status: intent.Status, PaymentData: intent}
	if !intent.Status.Succeeded() {
		log.Info("payment not succeeded, booking left untouched")
		r.record(ctx, in, ref, intent, OutcomeNotSucceeded)
		res.Message = fmt.Sprintf("Payment is %s", intent.Status)
		return res
	}
	res.PaymentVerified = true

	b, err := r.locate(ctx, in.PaymentID, ref, log)
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		return r.createFromPayment(ctx, in, intent, meta, res, log)
	case err != nil:
		log.WithError(err).Error("booking lookup failed")
		r.record(ctx, in, ref, intent, OutcomeLookupFailed)
		res.Message = "Payment verified, but the booking could not be loaded"
		return res
	}
	return r.settle(ctx, in, intent, b, domain.BookingPaid, res, log)
}

func (r *Reconciler) locate(ctx context.Context, paymentID, ref string, log logrus.FieldLogger) (*domain.Booking, error) {
	b, err := r.bookings.GetByPaymentID(ctx, paymentID)
	if err == nil {
		if ref != "" && b.BookingReference != ref {
			log.WithField("linked_reference", b.BookingReference).Warn("payment is linked to a different booking than the reference given")
		}
		return b, nil
	}
	if !errors.Is(err, repository.ErrBookingNotFound) || ref == "" {
		return nil, err
	}
	return r.bookings.GetByReference(ctx, ref)
}

func (r *Reconciler) settle(ctx context.Context, in ReconcileInput, intent *PaymentIntent, b *domain.Booking, status domain.BookingStatus, res VerificationResult, log logrus.FieldLogger) VerificationResult {
	res.BookingLinked = true
	res.Booking = b
	log = log.WithField("booking_reference", b.BookingReference)

	if b.Status.IsPaid() {
		if b.PaymentID != nil && *b.PaymentID != in.PaymentID {
			log.WithField("linked_payment_id", *b.PaymentID).Warn("booking already settled by another payment")
		}
		r.record(ctx, in, b.BookingReference, intent, OutcomeAlreadyPaid)
		res.Success = true
		res.AlreadyPaid = true
		res.Message = "Booking is already paid"
		return res
	}

	if paid, ok := intent.Amount.Float(); ok && paid+0.005 < b.RemainingBalance {
		log.WithFields(logrus.Fields{"paid": paid, "balance": b.RemainingBalance}).Error("payment does not cover booking balance")
		r.record(ctx, in, b.BookingReference, intent, OutcomeAmountTooLow)
		res.Message = "Payment amount does not cover the booking balance"
		return res
	}

	changed, err := r.bookings.MarkPaid(ctx, b.ID, repository.PaidTransition{
		Status:    status,
		PaymentID: in.PaymentID,
		Details:   intentDetails(intent),
		At:        r.now(),
	})
	if err != nil {
		log.WithError(err).Error("marking booking paid failed")
		r.record(ctx, in, b.BookingReference, intent, OutcomeUpdateFailed)
		res.Message = "Payment verified, but the booking could not be updated"
		return res
	}

	if fresh, err := r.bookings.GetByID(ctx, b.ID); err == nil {
		res.Booking = fresh
	} else {
		log.WithError(err).Warn("reloading settled booking failed")
	}
	res.Success = true

	if !changed {
		log.Info("booking settled concurrently, skipping side effects")
		r.record(ctx, in, b.BookingReference, intent, OutcomeAlreadyPaid)
		res.AlreadyPaid = true
		res.Message = "Booking is already paid"
		return res
	}

	log.Info("booking marked paid")
	r.record(ctx, in, b.BookingReference, intent, OutcomePaid)
	r.afterPaid(ctx, res.Booking, nil, in.Source)
	res.Message = "Payment verified and booking confirmed"
	return res
}

func (r *Reconciler) createFromPayment(ctx context.Context, in ReconcileInput, intent *PaymentIntent, meta metadata, res VerificationResult, log logrus.FieldLogger) VerificationResult {
	paid, _ := intent.Amount.Float()
	req, ok := meta.bookingRequest(paid)
	if !ok || r.creator == nil {
		log.Warn("payment verified but no booking is linked to it")
		r.record(ctx, in, meta.reference(), intent, OutcomeOrphan)
		res.Message = "Payment verified, but no booking is linked to it"
		return res
	}

	b, tour, err := r.creator.CreatePaid(ctx, req, booking.PaidDraft{
		PaymentID: in.PaymentID,
		Status:    domain.BookingPaid,
		Details:   intentDetails(intent),
	})
	if err != nil {
		if database.IsDuplicateKeyOn(err, "payment_id") {
			if existing, lerr := r.bookings.GetByPaymentID(ctx, in.PaymentID); lerr == nil {
				return r.settle(ctx, in, intent, existing, domain.BookingPaid, res, log)
			}
		}
		log.WithError(err).WithField("customer_email", req.CustomerInfo.Email).Error("creating booking from payment failed, needs manual follow-up")
		r.record(ctx, in, meta.reference(), intent, OutcomeCreateFailed)
		res.Message = "Payment verified, but the booking could not be created"
		return res
	}

	log.WithField("booking_reference", b.BookingReference).Info("booking created from payment")
	r.record(ctx, in, b.BookingReference, intent, OutcomeCreatedPaid)
	r.afterPaid(ctx, b, tour, in.Source)

	res.Success = true
	res.BookingLinked = true
	res.Created = true
	res.Booking = b
	res.Message = "Payment verified and booking created"
	return res
}

// afterPaid runs the side effects of a first transition. Failures are logged.
func (r *Reconciler) afterPaid(ctx context.Context, b *domain.Booking, tour *domain.Tour, source domain.PaymentEventSource) {
	log := r.log.WithField("booking_reference", b.BookingReference)

	if tour == nil && r.tours != nil {
		if t, err := r.tours.GetByID(ctx, b.TourID); err == nil {
			tour = t
		}
	}
	bc := notification.ContextFromBooking(b, tour, r.opts.Currency)

	if r.mailer != nil {
		if bc.CustomerEmail != "" {
			if res := r.mailer.SendConfirmation(ctx, bc.CustomerEmail, bc); !res.Success {
				log.WithField("error", res.Error).Warn("customer confirmation e-mail failed")
			}
		}
		if r.opts.AdminEmail != "" {
			if res := r.mailer.SendAdminNotification(ctx, r.opts.AdminEmail, bc); !res.Success {
				log.WithField("error", res.Error).Warn("admin payment e-mail failed")
			}
		}
	}

	if r.live != nil {
		ev := live.Event{
			Type:             live.TypeBookingPaid,
			BookingID:        b.ID,
			BookingReference: b.BookingReference,
			Status:           string(b.Status),
			Amount:           b.TotalPayment,
			Source:           string(source),
		}
		if b.PaymentID != nil {
			ev.PaymentID = *b.PaymentID
		}
		r.live.Publish(ev)
	}
}

func (r *Reconciler) record(ctx context.Context, in ReconcileInput, ref string, intent *PaymentIntent, outcome string) {
	if r.events == nil {
		return
	}
	ev := &domain.PaymentEvent{
		PaymentID:        in.PaymentID,
		BookingReference: ref,
		Source:           in.Source,
		Outcome:          outcome,
	}
	var payload interface{}
	if in.Metadata != nil {
		payload = in.Metadata
	}
	if intent != nil {
		ev.Status = string(intent.Status)
		ev.Amount = intent.Amount.Value
		payload = intent
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			ev.Payload = datatypes.JSON(raw)
		}
	}
	if err := r.events.Record(ctx, ev); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{"payment_id": in.PaymentID, "outcome": outcome}).Warn("recording payment event failed")
	}
}

func intentDetails(intent *PaymentIntent) datatypes.JSON {
	raw, err := json.Marshal(map[string]interface{}{
		"id":       intent.ID,
		"status":   intent.Status,
		"amount":   intent.Amount,
		"metadata": intent.Metadata,
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
