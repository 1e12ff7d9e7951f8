package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tourbooking/internal/database"
	"tourbooking/internal/domain"
)

func newTestGateway(t *testing.T) *database.Gateway {
	t.Helper()
	db, err := database.OpenMemory(database.DefaultFixtures())
	require.NoError(t, err)
	return database.NewGateway(db, database.RetryPolicy{}, 0, nil)
}

func createBooking(t *testing.T, gw *database.Gateway, ref string, total float64) *domain.Booking {
	t.Helper()
	customers := NewCustomerRepository()
	bookings := NewBookingRepository(gw)

	var b domain.Booking
	err := gw.Transaction(context.Background(), func(tx *gorm.DB) error {
		c, err := customers.Upsert(tx, "Mario Rossi", "mario@test.com", "")
		if err != nil {
			return err
		}
		b = domain.Booking{
			CustomerID:       c.ID,
			TourID:           5,
			TourDate:         "2025-06-01",
			Adults:           2,
			Children:         1,
			TotalPax:         3,
			TotalPayment:     total,
			RemainingBalance: total,
			Status:           domain.BookingPending,
		}
		return bookings.CreateWithReference(tx, &b, 1, func() string { return ref })
	})
	require.NoError(t, err)
	return &b
}

func TestMarkPaid_TransitionsOnce(t *testing.T) {
	gw := newTestGateway(t)
	repo := NewBookingRepository(gw)
	ctx := context.Background()
	b := createBooking(t, gw, "VDQ-250601-0001", 150)

	tr := PaidTransition{Status: domain.BookingPaid, PaymentID: "pay_123", Details: datatypes.JSON(`{"status":"succeeded"}`), At: time.Now()}
	changed, err := repo.MarkPaid(ctx, b.ID, tr)
	require.NoError(t, err)
	assert.True(t, changed)

	first, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)

	changed, err = repo.MarkPaid(ctx, b.ID, PaidTransition{Status: domain.BookingConfirmed, PaymentID: "pay_123", At: time.Now()})
	require.NoError(t, err)
	assert.False(t, changed)

	second, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.BookingPaid, second.Status)
	assert.Equal(t, 150.0, second.Deposit)
	assert.Equal(t, 0.0, second.RemainingBalance)
	require.NotNil(t, second.PaymentID)
	assert.Equal(t, "pay_123", *second.PaymentID)
	assert.Equal(t, first.Deposit, second.Deposit)
	assert.Equal(t, first.RemainingBalance, second.RemainingBalance)
	assert.Equal(t, first.TotalPayment, second.TotalPayment)
}

func TestMarkPaid_UsesConditionalUpdate(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	repo := NewBookingRepository(database.NewGateway(db, database.RetryPolicy{}, 0, nil))

	stmt := regexp.QuoteMeta(`UPDATE "bookings" SET`) + `.*"deposit"=total_payment.*` +
		regexp.QuoteMeta(`WHERE id = $`) + `\d+` + regexp.QuoteMeta(` AND status NOT IN ($`) + `\d+,\$\d+\)`
	mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.MarkPaid(context.Background(), 7, PaidTransition{Status: domain.BookingPaid, PaymentID: "pay_1", At: time.Now()})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkPaid(context.Background(), 7, PaidTransition{Status: domain.BookingPaid, PaymentID: "pay_1", At: time.Now()})
	require.NoError(t, err)
	assert.False(t, changed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithReference_RetriesOnDuplicate(t *testing.T) {
	gw := newTestGateway(t)
	repo := NewBookingRepository(gw)
	existing := createBooking(t, gw, "VDQ-250601-1111", 80)

	refs := []string{"VDQ-250601-1111", "VDQ-250601-2222"}
	calls := 0
	next := func() string {
		r := refs[calls]
		calls++
		return r
	}

	b := domain.Booking{CustomerID: existing.CustomerID, TourID: 1, TourDate: "2025-06-02", Adults: 1, TotalPax: 1, TotalPayment: 40, RemainingBalance: 40, Status: domain.BookingPending}
	err := gw.Transaction(context.Background(), func(tx *gorm.DB) error {
		return repo.CreateWithReference(tx, &b, 3, next)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "VDQ-250601-2222", b.BookingReference)
	assert.NotZero(t, b.ID)

	got, err := repo.GetByReference(context.Background(), "VDQ-250601-2222")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestCreateWithReference_GivesUpAfterAttempts(t *testing.T) {
	gw := newTestGateway(t)
	repo := NewBookingRepository(gw)
	existing := createBooking(t, gw, "VDQ-250601-3333", 80)

	b := domain.Booking{CustomerID: existing.CustomerID, TotalPayment: 10, RemainingBalance: 10, Status: domain.BookingPending}
	err := gw.Transaction(context.Background(), func(tx *gorm.DB) error {
		return repo.CreateWithReference(tx, &b, 2, func() string { return "VDQ-250601-3333" })
	})
	require.Error(t, err)
	assert.True(t, database.IsDuplicateKey(err))
}

func TestAttachPayment_OnlyWhilePending(t *testing.T) {
	gw := newTestGateway(t)
	repo := NewBookingRepository(gw)
	ctx := context.Background()
	b := createBooking(t, gw, "VDQ-250601-0002", 150)

	ok, err := repo.AttachPayment(ctx, b.ID, "pay_a")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByPaymentID(ctx, "pay_a")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	require.NotNil(t, got.Customer)
	assert.Equal(t, "mario@test.com", got.Customer.Email)

	_, err = repo.MarkPaid(ctx, b.ID, PaidTransition{Status: domain.BookingPaid, PaymentID: "pay_a", At: time.Now()})
	require.NoError(t, err)

	ok, err = repo.AttachPayment(ctx, b.ID, "pay_b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_RemovesLineItems(t *testing.T) {
	gw := newTestGateway(t)
	repo := NewBookingRepository(gw)
	ctx := context.Background()
	b := createBooking(t, gw, "VDQ-250601-0003", 150)
	require.NoError(t, repo.CreateLineItem(ctx, &domain.BookingTour{BookingID: b.ID, TourID: 5, TourDate: "2025-06-01", Adults: 2, Children: 1, TotalPax: 3, Price: 150}))

	require.NoError(t, repo.Delete(ctx, b.ID))

	_, err := repo.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	var items int64
	require.NoError(t, gw.DB().Model(&domain.BookingTour{}).Where("booking_id = ?", b.ID).Count(&items).Error)
	assert.Zero(t, items)

	assert.ErrorIs(t, repo.Delete(ctx, b.ID), ErrBookingNotFound)
}

func TestAssignLineItem(t *testing.T) {
	gw := newTestGateway(t)
	repo := NewBookingRepository(gw)
	ctx := context.Background()
	b := createBooking(t, gw, "VDQ-250601-0004", 150)
	item := &domain.BookingTour{BookingID: b.ID, TourID: 5, TourDate: "2025-06-01", Adults: 2, TotalPax: 2, Price: 150}
	require.NoError(t, repo.CreateLineItem(ctx, item))

	ship, agent := int64(2), int64(1)
	require.NoError(t, repo.AssignLineItem(ctx, b.ID, item.ID, &ship, &agent))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.Tours, 1)
	assert.Equal(t, &ship, got.Tours[0].ShipID)
	assert.Equal(t, &agent, got.Tours[0].AgentID)

	assert.ErrorIs(t, repo.AssignLineItem(ctx, b.ID+100, item.ID, &ship, nil), ErrBookingNotFound)
}

func TestListStatsAndExpire(t *testing.T) {
	gw := newTestGateway(t)
	repo := NewBookingRepository(gw)
	ctx := context.Background()

	paid := createBooking(t, gw, "VDQ-250601-0005", 150)
	createBooking(t, gw, "VDQ-250601-0006", 60)
	_, err := repo.MarkPaid(ctx, paid.ID, PaidTransition{Status: domain.BookingPaid, PaymentID: "pay_s", At: time.Now()})
	require.NoError(t, err)

	rows, total, err := repo.List(ctx, BookingFilter{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "VDQ-250601-0006", rows[0].BookingReference)

	rows, total, err = repo.List(ctx, BookingFilter{Query: "ROSSI", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rows, 1)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 150.0, stats.PaidRevenue)
	assert.Equal(t, 60.0, stats.Outstanding)
	assert.ElementsMatch(t, []StatusCount{{Status: "paid", Count: 1}, {Status: "pending", Count: 1}}, stats.ByStatus)

	n, err := repo.ExpirePending(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByReference(ctx, "VDQ-250601-0006")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, got.Status)
}
