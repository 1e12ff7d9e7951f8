package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tourbooking/internal/domain"
	"tourbooking/internal/modules/notification"
)

func (e *testEnv) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(e.rec, nil)
	api := r.Group("/api")
	h.RegisterPublicRoutes(api)
	h.RegisterProtectedRoutes(api)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestWebhook_PaidEventSettlesBooking(t *testing.T) {
	env := newTestEnv(t, Options{})
	b := env.pendingBooking(t, "pay_w")
	env.gateway.set("pay_w", domain.PaymentSucceeded, 150, nil)
	env.expectMails(1, 0)

	w := post(env.router(), "/api/payments/webhook", `{"id":"pay_w","status":"paid","metadata":{"bookingReference":"`+b.BookingReference+`"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())

	got, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPaid, got.Status)
	env.mailer.AssertExpectations(t)
}

func TestWebhook_NumericAmountObject(t *testing.T) {
	env := newTestEnv(t, Options{})
	b := env.pendingBooking(t, "pay_n")
	env.gateway.set("pay_n", domain.PaymentSucceeded, 150, nil)
	env.expectMails(1, 0)

	w := post(env.router(), "/api/payments/webhook", `{"id":"pay_n","status":"paid","amount":{"value":150.00,"currency":"EUR"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPaid, got.Status)
}

func TestWebhook_DoesNotTrustPushedStatus(t *testing.T) {
	env := newTestEnv(t, Options{})
	b := env.pendingBooking(t, "pay_spoof")
	env.gateway.set("pay_spoof", domain.PaymentOpen, 150, nil)

	w := post(env.router(), "/api/payments/webhook", `{"id":"pay_spoof","status":"paid"}`)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, got.Status)
}

func TestWebhook_AlwaysAcknowledges(t *testing.T) {
	t.Run("mail failure", func(t *testing.T) {
		env := newTestEnv(t, Options{AdminEmail: "ops@tours.example"})
		env.pendingBooking(t, "pay_mf")
		env.gateway.set("pay_mf", domain.PaymentSucceeded, 150, nil)
		env.mailer.On("SendConfirmation", mock.Anything, mock.Anything, mock.Anything).Return(notification.Result{Error: "boom"})
		env.mailer.On("SendAdminNotification", mock.Anything, mock.Anything, mock.Anything).Return(notification.Result{Error: "boom"})

		w := post(env.router(), "/api/payments/webhook", `{"id":"pay_mf","status":"paid"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"received":true}`, w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		env.gateway.set("pay_db", domain.PaymentSucceeded, 150, nil)
		sqlDB, err := env.db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		w := post(env.router(), "/api/payments/webhook", `{"id":"pay_db","status":"paid"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"received":true}`, w.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		w := post(env.router(), "/api/payments/webhook", `{"id":`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"received":true}`, w.Body.String())
	})

	t.Run("gateway unreachable", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		env.gateway.err = ErrGatewayNotConfigured
		w := post(env.router(), "/api/payments/webhook", `{"id":"pay_x","status":"paid"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestWebhook_FailedStatusIsRecordedOnly(t *testing.T) {
	env := newTestEnv(t, Options{})
	b := env.pendingBooking(t, "pay_fail")

	w := post(env.router(), "/api/payments/webhook", `{"id":"pay_fail","status":"failed","amount":{"value":"150.00","currency":"EUR"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, got.Status)
	assert.Equal(t, []string{OutcomeIgnored}, env.outcomes(t, "pay_fail"))

	post(env.router(), "/api/payments/webhook", `{"id":"pay_fail","status":"weird"}`)
	assert.Equal(t, []string{OutcomeIgnored, OutcomeUnknownStatus}, env.outcomes(t, "pay_fail"))
}

func TestVerifyEndpoint(t *testing.T) {
	env := newTestEnv(t, Options{})
	r := env.router()

	w := get(r, "/api/payments/verify-dibsy")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	b := env.pendingBooking(t, "pay_v")
	env.gateway.set("pay_v", domain.PaymentSucceeded, 150, nil)
	env.expectMails(1, 0)

	w = get(r, "/api/payments/verify-dibsy?paymentId=pay_v&bookingReference="+b.BookingReference)
	require.Equal(t, http.StatusOK, w.Code)

	var res VerificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.True(t, res.PaymentVerified)
	assert.True(t, res.BookingLinked)
	require.NotNil(t, res.Booking)
	assert.Equal(t, domain.BookingPaid, res.Booking.Status)
	require.NotNil(t, res.PaymentData)
	assert.Equal(t, "pay_v", res.PaymentData.ID)

	w = get(r, "/api/payments/verify-dibsy?paymentId=pay_unknown")
	require.Equal(t, http.StatusOK, w.Code)
	res = VerificationResult{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Success)
}

func TestCreateCheckoutEndpoint(t *testing.T) {
	env := newTestEnv(t, Options{Currency: "EUR"})
	r := env.router()
	b := env.pendingBooking(t, "")

	w := post(r, "/api/payments/create-dibsy", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/api/payments/create-dibsy", `{"bookingReference":"VDQ-250101-0001"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = post(r, "/api/payments/create-dibsy", `{"bookingReference":"`+strings.ToLower(b.BookingReference)+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res CheckoutResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "pt_1", res.PaymentID)
	assert.Equal(t, "https://pay.example/pt_1", res.PaymentURL)

	require.Len(t, env.gateway.created, 1)
	req := env.gateway.created[0]
	assert.Equal(t, 150.0, req.Amount)
	assert.Equal(t, "EUR", req.Currency)
	assert.Equal(t, "mario@test.com", req.Customer.Email)
	assert.Equal(t, b.BookingReference, req.Metadata[metaBookingReference])
	assert.Contains(t, req.Description, "Lido Beach Day Trip")

	got, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, "pt_1", *got.PaymentID)

	env.gateway.err = &GatewayError{StatusCode: 500}
	w = post(r, "/api/payments/create-dibsy", `{"bookingReference":"`+b.BookingReference+`"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCreateCheckout_AlreadyPaid(t *testing.T) {
	env := newTestEnv(t, Options{})
	b := env.pendingBooking(t, "pay_done")
	env.gateway.set("pay_done", domain.PaymentSucceeded, 150, nil)
	env.expectMails(1, 0)
	require.True(t, env.rec.Verify(context.Background(), "pay_done", "").Success)

	w := post(env.router(), "/api/payments/create-dibsy", `{"bookingReference":"`+b.BookingReference+`"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdatePaymentStatusEndpoint(t *testing.T) {
	env := newTestEnv(t, Options{})
	r := env.router()
	b := env.pendingBooking(t, "")
	env.expectMails(1, 0)

	w := post(r, "/api/bookings/update-payment-status", `{"bookingReference":"`+b.BookingReference+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/api/bookings/update-payment-status", `{"bookingReference":"`+b.BookingReference+`","status":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/api/bookings/update-payment-status", `{"bookingReference":"VDQ-250101-0001","status":"paid"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	body := `{"bookingReference":"` + b.BookingReference + `","status":"paid","paymentId":"cash_1","paymentDetails":{"method":"cash"}}`
	w = post(r, "/api/bookings/update-payment-status", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res VerificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.False(t, res.AlreadyPaid)

	w = post(r, "/api/bookings/update-payment-status", body)
	require.Equal(t, http.StatusOK, w.Code)
	res = VerificationResult{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.AlreadyPaid)

	got, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPaid, got.Status)
	assert.Equal(t, 0.0, got.RemainingBalance)
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, "cash_1", *got.PaymentID)
	assert.JSONEq(t, `{"method":"cash"}`, string(got.PaymentDetails))
	env.mailer.AssertNumberOfCalls(t, "SendConfirmation", 1)
}

func TestManualStatusChange(t *testing.T) {
	env := newTestEnv(t, Options{})
	b := env.pendingBooking(t, "")

	res, err := env.rec.MarkPaid(context.Background(), ManualUpdate{BookingReference: b.BookingReference, Status: domain.BookingCancelled})
	require.NoError(t, err)
	assert.True(t, res.Success)

	got, err := env.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, got.Status)
	assert.Equal(t, 150.0, got.RemainingBalance)
	env.mailer.AssertNotCalled(t, "SendConfirmation", mock.Anything, mock.Anything, mock.Anything)

	_, err = env.rec.MarkPaid(context.Background(), ManualUpdate{Status: domain.BookingPaid})
	assert.ErrorIs(t, err, ErrValidation)
}
