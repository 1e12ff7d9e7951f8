package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tourbooking/internal/database"
	"tourbooking/internal/domain"
)

var ErrBookingNotFound = errors.New("booking not found")

type BookingRepository struct {
	gw *database.Gateway
}

func NewBookingRepository(gw *database.Gateway) *BookingRepository {
	return &BookingRepository{gw: gw}
}

// BookingFilter narrows admin listings. Zero values mean "no filter".
type BookingFilter struct {
	Status string
	From   string
	To     string
	Query  string
	Limit  int
	Offset int
}

// PaidTransition is the single write that settles a booking. An empty
// PaymentID keeps the one already stored.
type PaidTransition struct {
	Status    domain.BookingStatus
	PaymentID string
	Details   datatypes.JSON
	At        time.Time
}

// CreateWithReference inserts the booking inside tx, asking next for a fresh
// reference whenever the unique index rejects the previous one. Each attempt
// runs in its own savepoint so a conflict does not poison the transaction.
func (r *BookingRepository) CreateWithReference(tx *gorm.DB, b *domain.Booking, attempts int, next func() string) error {
	var err error
	for i := 0; i < attempts; i++ {
		b.BookingReference = next()
		err = tx.Transaction(func(sp *gorm.DB) error {
			return sp.Omit("Customer", "Tours").Create(b).Error
		})
		if err == nil {
			return nil
		}
		if !database.IsDuplicateKeyOn(err, "booking_reference") {
			return err
		}
		b.ID = 0
	}
	return err
}

func (r *BookingRepository) CreateLineItem(ctx context.Context, item *domain.BookingTour) error {
	return r.gw.Write(ctx, func(tx *gorm.DB) error {
		return tx.Create(item).Error
	})
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.first(ctx, "bookings.id = ?", id)
}

func (r *BookingRepository) GetByReference(ctx context.Context, ref string) (*domain.Booking, error) {
	return r.first(ctx, "bookings.booking_reference = ?", strings.TrimSpace(ref))
}

func (r *BookingRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Booking, error) {
	return r.first(ctx, "bookings.payment_id = ?", paymentID)
}

func (r *BookingRepository) first(ctx context.Context, query string, args ...interface{}) (*domain.Booking, error) {
	var b domain.Booking
	err := r.gw.Read(ctx, func(tx *gorm.DB) error {
		return tx.Preload("Customer").Preload("Tours").Where(query, args...).First(&b).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// AttachPayment records the gateway payment id on a booking that is still pending.
func (r *BookingRepository) AttachPayment(ctx context.Context, id int64, paymentID string) (bool, error) {
	var affected int64
	err := r.gw.Write(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Booking{}).
			Where("id = ? AND status = ?", id, domain.BookingPending).
			Updates(map[string]interface{}{"payment_id": paymentID, "updated_at": time.Now().UTC()})
		affected = res.RowsAffected
		return res.Error
	})
	return affected == 1, err
}

// MarkPaid settles the booking in one conditional UPDATE. It reports true only
// for the call that actually moved the row out of the unpaid states, which
// makes concurrent reconcilers safe without a row lock.
func (r *BookingRepository) MarkPaid(ctx context.Context, id int64, t PaidTransition) (bool, error) {
	updates := map[string]interface{}{
		"status":            t.Status,
		"deposit":           gorm.Expr("total_payment"),
		"remaining_balance": 0,
		"updated_at":        t.At,
	}
	if t.PaymentID != "" {
		updates["payment_id"] = t.PaymentID
	}
	if len(t.Details) > 0 {
		updates["payment_details"] = t.Details
	}

	var affected int64
	err := r.gw.Write(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Booking{}).
			Where("id = ? AND status NOT IN ?", id, domain.PaidStatuses).
			Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	return affected == 1, err
}

// SetStatus writes a non-paid status directly.
func (r *BookingRepository) SetStatus(ctx context.Context, id int64, status domain.BookingStatus, details datatypes.JSON) error {
	updates := map[string]interface{}{"status": status, "updated_at": time.Now().UTC()}
	if len(details) > 0 {
		updates["payment_details"] = details
	}
	return r.gw.Write(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Booking{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBookingNotFound
		}
		return nil
	})
}

// PromotePaid moves a settled booking between settled statuses, for example
// paid to confirmed. It never touches amounts or the payment id.
func (r *BookingRepository) PromotePaid(ctx context.Context, id int64, status domain.BookingStatus) (bool, error) {
	var affected int64
	err := r.gw.Write(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Booking{}).
			Where("id = ? AND status IN ? AND status <> ?", id, domain.PaidStatuses, status).
			Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
		affected = res.RowsAffected
		return res.Error
	})
	return affected == 1, err
}

// Reopen puts a settled booking back to pending with its full total owed again,
// so a new checkout can collect it. Rows that are no longer settled are left alone.
func (r *BookingRepository) Reopen(ctx context.Context, id int64, details datatypes.JSON) (bool, error) {
	updates := map[string]interface{}{
		"status":            domain.BookingPending,
		"deposit":           0,
		"remaining_balance": gorm.Expr("total_payment"),
		"updated_at":        time.Now().UTC(),
	}
	if len(details) > 0 {
		updates["payment_details"] = details
	}
	var affected int64
	err := r.gw.Write(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Booking{}).
			Where("id = ? AND status IN ?", id, domain.PaidStatuses).
			Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	return affected == 1, err
}

// ExpirePending cancels unpaid pending bookings created before cutoff.
func (r *BookingRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	var affected int64
	err := r.gw.Write(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Booking{}).
			Where("status = ? AND created_at < ?", domain.BookingPending, cutoff).
			Updates(map[string]interface{}{"status": domain.BookingCancelled, "updated_at": time.Now().UTC()})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

func (r *BookingRepository) List(ctx context.Context, f BookingFilter) ([]domain.Booking, int64, error) {
	var (
		rows  []domain.Booking
		total int64
	)
	err := r.gw.Read(ctx, func(tx *gorm.DB) error {
		q := tx.Model(&domain.Booking{})
		if f.Status != "" {
			q = q.Where("bookings.status = ?", f.Status)
		}
		if f.From != "" {
			q = q.Where("bookings.tour_date >= ?", f.From)
		}
		if f.To != "" {
			q = q.Where("bookings.tour_date <= ?", f.To)
		}
		if f.Query != "" {
			like := "%" + strings.ToLower(f.Query) + "%"
			q = q.Joins("JOIN customers ON customers.id = bookings.customer_id").
				Where("LOWER(bookings.booking_reference) LIKE ? OR LOWER(customers.name) LIKE ? OR LOWER(customers.email) LIKE ?", like, like, like)
		}
		if err := q.Count(&total).Error; err != nil {
			return err
		}
		if f.Limit > 0 {
			q = q.Limit(f.Limit).Offset(f.Offset)
		}
		return q.Preload("Customer").Preload("Tours").
			Order("bookings.created_at DESC, bookings.id DESC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Delete removes the booking and its line items.
func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	return r.gw.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("booking_id = ?", id).Delete(&domain.BookingTour{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Booking{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBookingNotFound
		}
		return nil
	})
}

// AssignLineItem sets the ship and agent of one line item of a booking.
func (r *BookingRepository) AssignLineItem(ctx context.Context, bookingID, itemID int64, shipID, agentID *int64) error {
	return r.gw.Write(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.BookingTour{}).
			Where("id = ? AND booking_id = ?", itemID, bookingID).
			Updates(map[string]interface{}{"ship_id": shipID, "agent_id": agentID, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBookingNotFound
		}
		return nil
	})
}

type StatusCount struct {
	Status string
	Count  int64
}

type BookingStats struct {
	ByStatus    []StatusCount
	PaidRevenue float64
	Outstanding float64
}

func (r *BookingRepository) Stats(ctx context.Context) (*BookingStats, error) {
	var out BookingStats
	err := r.gw.Read(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Booking{}).
			Select("status, COUNT(*) AS count").
			Group("status").Order("status").
			Scan(&out.ByStatus).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Booking{}).
			Where("status IN ?", domain.PaidStatuses).
			Select("COALESCE(SUM(total_payment), 0)").
			Scan(&out.PaidRevenue).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Booking{}).
			Where("status = ?", domain.BookingPending).
			Select("COALESCE(SUM(remaining_balance), 0)").
			Scan(&out.Outstanding).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
