package admin

import (
	"context"

	"tourbooking/internal/domain"
	"tourbooking/internal/modules/live"
	"tourbooking/internal/modules/payment"
	"tourbooking/internal/repository"
)

type bookingStore interface {
	List(ctx context.Context, f repository.BookingFilter) ([]domain.Booking, int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	Delete(ctx context.Context, id int64) error
	AssignLineItem(ctx context.Context, bookingID, itemID int64, shipID, agentID *int64) error
	Stats(ctx context.Context) (*repository.BookingStats, error)
}

type catalogReader[T repository.CatalogEntity] interface {
	GetByID(ctx context.Context, id int64) (*T, error)
}

type statusWriter interface {
	MarkPaid(ctx context.Context, u payment.ManualUpdate) (payment.VerificationResult, error)
}

type paymentHistory interface {
	ListByReference(ctx context.Context, ref string) ([]domain.PaymentEvent, error)
}

type eventPublisher interface {
	Publish(ev live.Event)
}
