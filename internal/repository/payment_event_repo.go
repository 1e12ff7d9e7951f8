package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tourbooking/internal/database"
	"tourbooking/internal/domain"
)

type PaymentEventRepository struct {
	gw *database.Gateway
}

func NewPaymentEventRepository(gw *database.Gateway) *PaymentEventRepository {
	return &PaymentEventRepository{gw: gw}
}

// Record appends an audit row. EventID is filled in when empty.
func (r *PaymentEventRepository) Record(ctx context.Context, ev *domain.PaymentEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	return r.gw.Write(ctx, func(tx *gorm.DB) error {
		return tx.Create(ev).Error
	})
}

func (r *PaymentEventRepository) ListByPaymentID(ctx context.Context, paymentID string) ([]domain.PaymentEvent, error) {
	var rows []domain.PaymentEvent
	err := r.gw.Read(ctx, func(tx *gorm.DB) error {
		return tx.Where("payment_id = ?", paymentID).Order("id").Find(&rows).Error
	})
	return rows, err
}

func (r *PaymentEventRepository) ListByReference(ctx context.Context, ref string) ([]domain.PaymentEvent, error) {
	var rows []domain.PaymentEvent
	err := r.gw.Read(ctx, func(tx *gorm.DB) error {
		return tx.Where("booking_reference = ?", ref).Order("id").Find(&rows).Error
	})
	return rows, err
}
