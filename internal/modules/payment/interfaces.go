package payment

import (
	"context"

	"gorm.io/datatypes"

	"tourbooking/internal/domain"
	"tourbooking/internal/modules/booking"
	"tourbooking/internal/modules/live"
	"tourbooking/internal/modules/notification"
	"tourbooking/internal/repository"
)

type gateway interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatedPayment, error)
	GetPayment(ctx context.Context, paymentID string) (*PaymentIntent, error)
}

type bookingStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByReference(ctx context.Context, ref string) (*domain.Booking, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Booking, error)
	MarkPaid(ctx context.Context, id int64, t repository.PaidTransition) (bool, error)
	SetStatus(ctx context.Context, id int64, status domain.BookingStatus, details datatypes.JSON) error
	PromotePaid(ctx context.Context, id int64, status domain.BookingStatus) (bool, error)
	Reopen(ctx context.Context, id int64, details datatypes.JSON) (bool, error)
	AttachPayment(ctx context.Context, id int64, paymentID string) (bool, error)
}

type bookingCreator interface {
	CreatePaid(ctx context.Context, req booking.CreatePendingRequest, paid booking.PaidDraft) (*domain.Booking, *domain.Tour, error)
}

type eventRecorder interface {
	Record(ctx context.Context, ev *domain.PaymentEvent) error
}

type tourReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Tour, error)
}

type mailer interface {
	SendConfirmation(ctx context.Context, to string, bc notification.BookingContext) notification.Result
	SendAdminNotification(ctx context.Context, to string, bc notification.BookingContext) notification.Result
}

type eventPublisher interface {
	Publish(ev live.Event)
}
