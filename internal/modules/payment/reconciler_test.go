package payment

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tourbooking/internal/database"
	"tourbooking/internal/domain"
	"tourbooking/internal/modules/booking"
	"tourbooking/internal/modules/live"
	"tourbooking/internal/modules/notification"
	"tourbooking/internal/repository"
)

type fakeGateway struct {
	mu      sync.Mutex
	intents map[string]*PaymentIntent
	err     error
	created []CreatePaymentRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*PaymentIntent{}}
}

func (g *fakeGateway) set(id string, status domain.PaymentStatus, amount float64, meta map[string]interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id] = &PaymentIntent{ID: id, Status: status, Amount: NewAmount(amount, "EUR"), Metadata: meta}
}

func (g *fakeGateway) GetPayment(ctx context.Context, id string) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	p, ok := g.intents[id]
	if !ok {
		return nil, &GatewayError{StatusCode: 404, Body: `{"message":"payment not found"}`}
	}
	cp := *p
	return &cp, nil
}

func (g *fakeGateway) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatedPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, req)
	id := fmt.Sprintf("pt_%d", len(g.created))
	g.intents[id] = &PaymentIntent{ID: id, Status: domain.PaymentOpen, Amount: NewAmount(req.Amount, req.Currency), Metadata: req.Metadata}
	return &CreatedPayment{PaymentID: id, PaymentURL: "https://pay.example/" + id}, nil
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendConfirmation(ctx context.Context, to string, bc notification.BookingContext) notification.Result {
	args := m.Called(ctx, to, bc)
	return args.Get(0).(notification.Result)
}

func (m *MockMailer) SendAdminNotification(ctx context.Context, to string, bc notification.BookingContext) notification.Result {
	args := m.Called(ctx, to, bc)
	return args.Get(0).(notification.Result)
}

type testEnv struct {
	rec      *Reconciler
	gateway  *fakeGateway
	mailer   *MockMailer
	db       *gorm.DB
	bookings *repository.BookingRepository
	creator  *booking.Service
	events   *repository.PaymentEventRepository
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	db, err := database.OpenMemory(database.DefaultFixtures())
	require.NoError(t, err)
	gw := database.NewGateway(db, database.RetryPolicy{}, 0, nil)

	bookings := repository.NewBookingRepository(gw)
	tours := repository.NewCatalogRepository[domain.Tour](gw)
	creator := booking.NewService(gw, bookings, repository.NewCustomerRepository(), tours, nil, nil, booking.Options{}, nil)
	events := repository.NewPaymentEventRepository(gw)
	fg := newFakeGateway()
	mailer := &MockMailer{}

	rec := NewReconciler(Deps{
		Gateway:  fg,
		Bookings: bookings,
		Creator:  creator,
		Events:   events,
		Tours:    tours,
		Mailer:   mailer,
		Live:     live.NewHub(nil),
	}, opts, nil)

	return &testEnv{rec: rec, gateway: fg, mailer: mailer, db: db, bookings: bookings, creator: creator, events: events}
}

func (e *testEnv) pendingBooking(t *testing.T, paymentID string) *domain.Booking {
	t.Helper()
	ctx := context.Background()
	created, err := e.creator.CreatePending(ctx, booking.CreatePendingRequest{
		CustomerInfo: booking.CustomerInfo{Name: "Mario Rossi", Email: "mario@test.com"},
		BookingData:  booking.BookingData{TourID: 5, Date: "2025-06-01", Adults: 2, Children: 1, TotalPax: 3, TotalPrice: 150},
	})
	require.NoError(t, err)
	if paymentID != "" {
		ok, err := e.bookings.AttachPayment(ctx, created.BookingID, paymentID)
		require.NoError(t, err)
		require.True(t, ok)
	}
	b, err := e.bookings.GetByID(ctx, created.BookingID)
	require.NoError(t, err)
	return b
}

func (e *testEnv) expectMails(customer int, admin int) {
	if customer > 0 {
		e.mailer.On("SendConfirmation", mock.Anything, "mario@test.com", mock.Anything).Return(notification.Result{Success: true, EmailID: "em_c"}).Times(customer)
	}
	if admin > 0 {
		e.mailer.On("SendAdminNotification", mock.Anything, "ops@tours.example", mock.Anything).Return(notification.Result{Success: true, EmailID: "em_a"}).Times(admin)
	}
}

func (e *testEnv) outcomes(t *testing.T, paymentID string) []string {
	t.Helper()
	rows, err := e.events.ListByPaymentID(context.Background(), paymentID)
	require.NoError(t, err)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Outcome)
	}
	return out
}

func TestReconcile_MarksPendingBookingPaid(t *testing.T) {
	env := newTestEnv(t, Options{AdminEmail: "ops@tours.example", Currency: "EUR"})
	b := env.pendingBooking(t, "pay_b")
	env.gateway.set("pay_b", domain.PaymentSucceeded, 150, nil)
	env.expectMails(1, 1)

	res := env.rec.Verify(context.Background(), "pay_b", "")

	require.True(t, res.Success, res.Message)
	assert.True(t, res.PaymentVerified)
	assert.True(t, res.BookingLinked)
	assert.False(t, res.AlreadyPaid)

	got, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPaid, got.Status)
	assert.Equal(t, 150.0, got.Deposit)
	assert.Equal(t, 0.0, got.RemainingBalance)
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, "pay_b", *got.PaymentID)
	assert.NotEmpty(t, got.PaymentDetails)

	env.mailer.AssertExpectations(t)
	assert.Equal(t, []string{OutcomePaid}, env.outcomes(t, "pay_b"))
}

func TestReconcile_IsIdempotent(t *testing.T) {
	env := newTestEnv(t, Options{})
	b := env.pendingBooking(t, "pay_i")
	env.gateway.set("pay_i", domain.PaymentSucceeded, 150, nil)
	env.expectMails(1, 0)

	first := env.rec.Reconcile(context.Background(), ReconcileInput{PaymentID: "pay_i", Source: domain.SourceVerify})
	afterFirst, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)

	second := env.rec.Reconcile(context.Background(), ReconcileInput{PaymentID: "pay_i", Source: domain.SourceWebhook})
	afterSecond, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)

	assert.True(t, first.Success)
	assert.False(t, first.AlreadyPaid)
	assert.True(t, second.Success)
	assert.True(t, second.AlreadyPaid)

	assert.Equal(t, afterFirst.Status, afterSecond.Status)
	assert.Equal(t, afterFirst.Deposit, afterSecond.Deposit)
	assert.Equal(t, afterFirst.RemainingBalance, afterSecond.RemainingBalance)
	assert.Equal(t, afterFirst.TotalPayment, afterSecond.TotalPayment)

	env.mailer.AssertNumberOfCalls(t, "SendConfirmation", 1)
	assert.Equal(t, []string{OutcomePaid, OutcomeAlreadyPaid}, env.outcomes(t, "pay_i"))
}

func TestReconcile_ConcurrentCallersTransitionOnce(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.pendingBooking(t, "pay_c")
	env.gateway.set("pay_c", domain.PaymentSucceeded, 150, nil)
	env.expectMails(1, 0)

	var wg sync.WaitGroup
	results := make([]VerificationResult, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = env.rec.Reconcile(context.Background(), ReconcileInput{PaymentID: "pay_c", Source: domain.SourceWebhook})
		}(i)
	}
	wg.Wait()

	fresh := 0
	for _, r := range results {
		assert.True(t, r.Success)
		if !r.AlreadyPaid {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	env.mailer.AssertNumberOfCalls(t, "SendConfirmation", 1)
}

func TestReconcile_FailedPaymentLeavesBookingPending(t *testing.T) {
	env := newTestEnv(t, Options{})
	b := env.pendingBooking(t, "pay_f")
	env.gateway.set("pay_f", domain.PaymentFailed, 150, nil)

	res := env.rec.Verify(context.Background(), "pay_f", b.BookingReference)

	assert.False(t, res.Success)
	assert.False(t, res.PaymentVerified)
	assert.Equal(t, domain.PaymentFailed, res.Status)

	got, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, got.Status)
	assert.Equal(t, 150.0, got.RemainingBalance)
	env.mailer.AssertNotCalled(t, "SendConfirmation", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []string{OutcomeNotSucceeded}, env.outcomes(t, "pay_f"))
}

func TestReconcile_GatewayErrorDoesNotMutate(t *testing.T) {
	env := newTestEnv(t, Options{})
	b := env.pendingBooking(t, "pay_g")
	env.gateway.err = &GatewayError{StatusCode: 503, Body: "maintenance"}

	res := env.rec.Verify(context.Background(), "pay_g", "")
	assert.False(t, res.Success)
	assert.False(t, res.PaymentVerified)

	got, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, got.Status)
	assert.Equal(t, []string{OutcomeGatewayError}, env.outcomes(t, "pay_g"))
}

func TestReconcile_OrphanPayment(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.gateway.set("pay_o", domain.PaymentSucceeded, 80, map[string]interface{}{"bookingReference": "VDQ-250101-0001"})

	res := env.rec.Verify(context.Background(), "pay_o", "")

	assert.False(t, res.Success)
	assert.True(t, res.PaymentVerified)
	assert.False(t, res.BookingLinked)
	assert.Nil(t, res.Booking)
	assert.Contains(t, res.Message, "no booking is linked")

	var count int64
	require.NoError(t, env.db.Model(&domain.Booking{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, []string{OutcomeOrphan}, env.outcomes(t, "pay_o"))
}

func TestReconcile_FallsBackToReference(t *testing.T) {
	env := newTestEnv(t, Options{})
	b := env.pendingBooking(t, "")
	env.gateway.set("pay_r", domain.PaymentPaid, 150, map[string]interface{}{"bookingReference": b.BookingReference})
	env.expectMails(1, 0)

	res := env.rec.Verify(context.Background(), "pay_r", "")
	require.True(t, res.Success, res.Message)

	got, err := env.bookings.GetByReference(context.Background(), b.BookingReference)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPaid, got.Status)
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, "pay_r", *got.PaymentID)
}

func TestReconcile_PaymentFirstCreatesBooking(t *testing.T) {
	env := newTestEnv(t, Options{AdminEmail: "ops@tours.example"})
	env.gateway.set("pay_p", domain.PaymentSucceeded, 150, map[string]interface{}{
		"customer_name":  "Mario Rossi",
		"customer_email": "mario@test.com",
		"tourId":         "5",
		"tourDate":       "2025-06-01",
		"adults":         float64(2),
		"children":       float64(1),
	})
	env.expectMails(1, 1)

	res := env.rec.Reconcile(context.Background(), ReconcileInput{PaymentID: "pay_p", Source: domain.SourceWebhook})
	require.True(t, res.Success, res.Message)
	assert.True(t, res.Created)
	require.NotNil(t, res.Booking)

	got, err := env.bookings.GetByPaymentID(context.Background(), "pay_p")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPaid, got.Status)
	assert.Equal(t, 150.0, got.TotalPayment)
	assert.Equal(t, 150.0, got.Deposit)
	assert.Equal(t, 0.0, got.RemainingBalance)
	assert.Equal(t, 3, got.TotalPax)

	again := env.rec.Reconcile(context.Background(), ReconcileInput{PaymentID: "pay_p", Source: domain.SourceVerify})
	assert.True(t, again.AlreadyPaid)

	var count int64
	require.NoError(t, env.db.Model(&domain.Booking{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	env.mailer.AssertExpectations(t)
}

func TestReconcile_UnderpaymentIsNotSettled(t *testing.T) {
	env := newTestEnv(t, Options{})
	b := env.pendingBooking(t, "pay_u")
	env.gateway.set("pay_u", domain.PaymentSucceeded, 50, nil)

	res := env.rec.Verify(context.Background(), "pay_u", "")
	assert.False(t, res.Success)
	assert.True(t, res.PaymentVerified)

	got, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, got.Status)
}

func TestReconcile_MailFailureKeepsSuccess(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.pendingBooking(t, "pay_m")
	env.gateway.set("pay_m", domain.PaymentSucceeded, 150, nil)
	env.mailer.On("SendConfirmation", mock.Anything, mock.Anything, mock.Anything).Return(notification.Result{Success: false, Error: "smtp down"}).Once()

	res := env.rec.Verify(context.Background(), "pay_m", "")
	assert.True(t, res.Success)
	env.mailer.AssertExpectations(t)
}

func TestReconcile_RequiresPaymentID(t *testing.T) {
	env := newTestEnv(t, Options{})
	res := env.rec.Verify(context.Background(), "  ", "")
	assert.False(t, res.Success)
	assert.Equal(t, "paymentId is required", res.Message)
}
