package booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tourbooking/internal/domain"
	"tourbooking/internal/modules/live"
	"tourbooking/internal/modules/notification"
	"tourbooking/internal/pkg/logger"
	"tourbooking/internal/pkg/validator"
	"tourbooking/internal/repository"
)

type Options struct {
	RefPrefix   string
	RefAttempts int
	AdminEmail  string
	Currency    string
}

type Service struct {
	tx        transactor
	bookings  bookingStore
	customers customerStore
	tours     tourReader
	notifier  newBookingNotifier
	events    eventPublisher
	opts      Options
	log       logrus.FieldLogger

	now    func() time.Time
	suffix func() int
}

func NewService(
	tx transactor,
	bookings bookingStore,
	customers customerStore,
	tours tourReader,
	notifier newBookingNotifier,
	events eventPublisher,
	opts Options,
	log logrus.FieldLogger,
) *Service {
	if opts.RefPrefix == "" {
		opts.RefPrefix = "VDQ"
	}
	if opts.RefAttempts <= 0 {
		opts.RefAttempts = 5
	}
	return &Service{
		tx:        tx,
		bookings:  bookings,
		customers: customers,
		tours:     tours,
		notifier:  notifier,
		events:    events,
		opts:      opts,
		log:       logger.OrDiscard(log).WithField("component", "booking"),
		now:       time.Now,
		suffix:    func() int { return rand.Intn(10000) },
	}
}

// PaidDraft marks a booking that is created already settled, when the gateway
// reports a payment nobody booked beforehand.
type PaidDraft struct {
	PaymentID string
	Status    domain.BookingStatus
	Details   datatypes.JSON
}

// CreatePending validates the request, upserts the customer and inserts the
// booking in the pending state. The line item and the admin e-mail are best effort.
func (s *Service) CreatePending(ctx context.Context, req CreatePendingRequest) (*Created, error) {
	b, tour, err := s.create(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	if s.opts.AdminEmail != "" && s.notifier != nil {
		res := s.notifier.SendNewBookingNotification(ctx, s.opts.AdminEmail, notification.ContextFromBooking(b, tour, s.opts.Currency))
		if !res.Success {
			s.log.WithField("booking_reference", b.BookingReference).WithField("error", res.Error).Warn("new booking notification failed")
		}
	}
	s.publish(live.Event{Type: live.TypeBookingCreated, BookingID: b.ID, BookingReference: b.BookingReference, Status: string(b.Status), Amount: b.TotalPayment, Source: b.Source})

	return &Created{BookingID: b.ID, BookingReference: b.BookingReference}, nil
}

// CreatePaid inserts a booking that is settled from the start. The returned
// error satisfies database.IsDuplicateKeyOn(err, "payment_id") when another
// caller already created the booking for this payment.
func (s *Service) CreatePaid(ctx context.Context, req CreatePendingRequest, paid PaidDraft) (*domain.Booking, *domain.Tour, error) {
	if paid.PaymentID == "" {
		return nil, nil, errors.New("payment id is required")
	}
	if !paid.Status.IsPaid() {
		paid.Status = domain.BookingPaid
	}
	return s.create(ctx, req, &paid)
}

func (s *Service) create(ctx context.Context, req CreatePendingRequest, paid *PaidDraft) (*domain.Booking, *domain.Tour, error) {
	req = normalize(req)
	if fields := validator.Validate(req); fields != nil {
		return nil, nil, newValidationError(fields)
	}
	d := req.BookingData
	if d.TotalPax == 0 {
		d.TotalPax = d.Adults + d.Children
	} else if d.TotalPax != d.Adults+d.Children {
		return nil, nil, &ValidationError{Message: "total passengers must equal adults plus children"}
	}

	log := s.log.WithFields(logrus.Fields{"tour_id": int64(d.TourID), "email": req.CustomerInfo.Email})

	// read before the transaction: the memory source has a single connection
	tour, err := s.tours.GetByID(ctx, int64(d.TourID))
	if err != nil {
		log.WithError(err).Warn("tour lookup failed, booking continues without catalog data")
		tour = nil
	}

	b := &domain.Booking{
		TourID:           int64(d.TourID),
		TourDate:         d.Date,
		Adults:           d.Adults,
		Children:         d.Children,
		TotalPax:         d.TotalPax,
		TotalPayment:     d.TotalPrice,
		RemainingBalance: d.TotalPrice,
		Status:           domain.BookingPending,
		Notes:            d.Notes,
		Source:           d.Source,
	}
	if paid != nil {
		pid := paid.PaymentID
		b.Status = paid.Status
		b.PaymentID = &pid
		b.Deposit = d.TotalPrice
		b.RemainingBalance = 0
		b.PaymentDetails = paid.Details
	}

	var customer *domain.Customer
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		c, err := s.customers.Upsert(tx, req.CustomerInfo.Name, req.CustomerInfo.Email, req.CustomerInfo.Phone)
		if err != nil {
			return fmt.Errorf("upsert customer: %w", err)
		}
		customer = c
		b.CustomerID = c.ID
		return s.bookings.CreateWithReference(tx, b, s.opts.RefAttempts, s.nextReference)
	})
	if err != nil {
		log.WithError(err).Error("create booking failed")
		return nil, nil, fmt.Errorf("create booking: %w", err)
	}
	b.Customer = customer

	item := &domain.BookingTour{
		BookingID: b.ID,
		TourID:    b.TourID,
		TourDate:  b.TourDate,
		Adults:    b.Adults,
		Children:  b.Children,
		TotalPax:  b.TotalPax,
		Price:     b.TotalPayment,
		Notes:     b.Notes,
	}
	if err := s.bookings.CreateLineItem(ctx, item); err != nil {
		log.WithError(err).WithField("booking_reference", b.BookingReference).Error("line item insert failed, booking kept without it")
	} else {
		b.Tours = []domain.BookingTour{*item}
	}

	log.WithFields(logrus.Fields{"booking_reference": b.BookingReference, "booking_id": b.ID, "status": b.Status}).Info("booking created")
	return b, tour, nil
}

// Lookup returns the receipt view for a booking reference.
func (s *Service) Lookup(ctx context.Context, ref string) (*Summary, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if !ValidReference(ref) {
		return nil, &ValidationError{Message: "booking reference is malformed"}
	}
	b, err := s.bookings.GetByReference(ctx, ref)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	out := &Summary{
		BookingReference: b.BookingReference,
		Status:           string(b.Status),
		TourID:           b.TourID,
		TourDate:         b.TourDate,
		Adults:           b.Adults,
		Children:         b.Children,
		TotalPax:         b.TotalPax,
		TotalPayment:     b.TotalPayment,
		Deposit:          b.Deposit,
		RemainingBalance: b.RemainingBalance,
		Paid:             b.Status.IsPaid(),
	}
	if b.Customer != nil {
		out.CustomerName = b.Customer.Name
	}
	if tour, err := s.tours.GetByID(ctx, b.TourID); err == nil {
		out.TourName = tour.Name
	}
	return out, nil
}

func (s *Service) nextReference() string {
	return GenerateReference(s.opts.RefPrefix, s.now(), s.suffix())
}

func (s *Service) publish(ev live.Event) {
	if s.events != nil {
		s.events.Publish(ev)
	}
}

func normalize(req CreatePendingRequest) CreatePendingRequest {
	req.CustomerInfo.Name = strings.TrimSpace(req.CustomerInfo.Name)
	req.CustomerInfo.Email = strings.ToLower(strings.TrimSpace(req.CustomerInfo.Email))
	req.CustomerInfo.Phone = strings.TrimSpace(req.CustomerInfo.Phone)
	req.BookingData.Date = strings.TrimSpace(req.BookingData.Date)
	req.BookingData.Notes = strings.TrimSpace(req.BookingData.Notes)
	req.BookingData.Source = strings.TrimSpace(req.BookingData.Source)
	return req
}
