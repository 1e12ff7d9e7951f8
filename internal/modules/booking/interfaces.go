package booking

import (
	"context"

	"gorm.io/gorm"

	"tourbooking/internal/domain"
	"tourbooking/internal/modules/live"
	"tourbooking/internal/modules/notification"
)

type transactor interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type bookingStore interface {
	CreateWithReference(tx *gorm.DB, b *domain.Booking, attempts int, next func() string) error
	CreateLineItem(ctx context.Context, item *domain.BookingTour) error
	GetByReference(ctx context.Context, ref string) (*domain.Booking, error)
}

type customerStore interface {
	Upsert(tx *gorm.DB, name, email, phone string) (*domain.Customer, error)
}

type tourReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Tour, error)
}

type newBookingNotifier interface {
	SendNewBookingNotification(ctx context.Context, to string, bc notification.BookingContext) notification.Result
}

type eventPublisher interface {
	Publish(ev live.Event)
}
