package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktap/seat-booking/internal/database"
	"github.com/quicktap/seat-booking/internal/payment"
	"github.com/quicktap/seat-booking/internal/repository"
	"github.com/quicktap/seat-booking/internal/service"
)

const testSecret = "test-gateway-secret"

func newTestServer(t *testing.T) (*echo.Echo, *service.LeaseManager) {
	return newTestServerWithConfig(t, service.Config{SeatCount: 10, HoldDuration: 30 * time.Minute})
}

func newTestServerWithConfig(t *testing.T, cfg service.Config) (*echo.Echo, *service.LeaseManager) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "bookings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, "sqlite3"))

	lease := service.NewLeaseManager(
		repository.NewBookingRepo(db),
		payment.NewVerifier(testSecret),
		nil,
		cfg,
		zerolog.Nop(),
	)

	h := NewSeatHandler(lease)
	e := echo.New()
	e.GET("/api/seats/status", h.GetSeatStatus)
	e.GET("/api/seats/available", h.GetAvailableSeats)
	e.GET("/api/seats/protection-status", h.GetProtectionStatus)
	e.GET("/api/seats/order/:orderId", h.GetBookingByOrder)
	e.POST("/api/seats/book", h.HoldSeats)
	e.POST("/api/seats/book-cash", h.BookSeatsCash)
	e.POST("/api/seats/book-after-payment", h.BookSeatsAfterPayment)
	e.DELETE("/api/seats/cancel/:orderId", h.CancelBooking)
	return e, lease
}

func request(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGetSeatStatusEmpty(t *testing.T) {
	e, _ := newTestServer(t)
	rec := request(e, http.MethodGet, "/api/seats/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(10), body["total_seats"])
	assert.Equal(t, float64(10), body["available_seats"])
	assert.Equal(t, float64(0), body["occupied_seats"])
	assert.Len(t, body["seats"], 10)
}

func TestHoldSeats(t *testing.T) {
	e, _ := newTestServer(t)
	rec := request(e, http.MethodPost, "/api/seats/book",
		`{"seats":[1,2],"order_id":"order_a","user_name":"Ada"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["bookings"], 2)
	assert.NotEmpty(t, body["expires_at"])

	rec = request(e, http.MethodGet, "/api/seats/available", "")
	avail := decode(t, rec)["available_seats"].([]interface{})
	assert.Len(t, avail, 8)
}

func TestHoldSeatsConflictReportsSeats(t *testing.T) {
	e, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated,
		request(e, http.MethodPost, "/api/seats/book", `{"seats":[6],"order_id":"order_a"}`).Code)

	rec := request(e, http.MethodPost, "/api/seats/book", `{"seats":[5,6,7],"order_id":"order_b"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []interface{}{float64(6)}, body["unavailable"])
}

func TestHoldSeatsValidation(t *testing.T) {
	e, _ := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest,
		request(e, http.MethodPost, "/api/seats/book", `{"seats":[1]}`).Code, "missing order_id")
	assert.Equal(t, http.StatusBadRequest,
		request(e, http.MethodPost, "/api/seats/book", `{"seats":[0],"order_id":"x"}`).Code, "seat out of range")
	assert.Equal(t, http.StatusBadRequest,
		request(e, http.MethodPost, "/api/seats/book", `not json`).Code)
}

func TestBookSeatsCashGeneratesOrderID(t *testing.T) {
	e, _ := newTestServer(t)
	rec := request(e, http.MethodPost, "/api/seats/book-cash", `{"seats":[3],"user_name":"Walk In"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	bookings := body["bookings"].([]interface{})
	require.Len(t, bookings, 1)
	b := bookings[0].(map[string]interface{})
	assert.True(t, strings.HasPrefix(b["order_id"].(string), "cash_"))
	assert.Equal(t, "CASH", b["payment_method"])
	assert.Equal(t, false, b["is_temporary"])
}

func TestBookSeatsAfterPayment(t *testing.T) {
	e, _ := newTestServer(t)
	sig := payment.NewVerifier(testSecret).Signature("gw_order", "gw_pay")

	rec := request(e, http.MethodPost, "/api/seats/book-after-payment",
		`{"seats":[4],"order_id":"order_a","gateway_order_id":"gw_order","gateway_payment_id":"gw_pay","signature":"`+sig+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	b := body["bookings"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, true, b["payment_verified"])
}

func TestBookSeatsAfterPaymentBadSignatureKeepsHold(t *testing.T) {
	e, _ := newTestServer(t)
	rec := request(e, http.MethodPost, "/api/seats/book-after-payment",
		`{"seats":[4],"order_id":"order_a","gateway_order_id":"gw_order","gateway_payment_id":"gw_pay","signature":"bad"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// the hold was placed and survives the failed verification
	rec = request(e, http.MethodGet, "/api/seats/order/order_a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	b := decode(t, rec)["bookings"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, true, b["is_temporary"])
	assert.Equal(t, "ACTIVE", b["status"])
}

func TestCancelBookingReleasesSeats(t *testing.T) {
	e, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated,
		request(e, http.MethodPost, "/api/seats/book", `{"seats":[1,2],"order_id":"order_a"}`).Code)

	rec := request(e, http.MethodDelete, "/api/seats/cancel/order_a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["released"])

	// cancelling again finds nothing active
	assert.Equal(t, http.StatusNotFound,
		request(e, http.MethodDelete, "/api/seats/cancel/order_a", "").Code)

	// seats are back in the pool
	rec = request(e, http.MethodGet, "/api/seats/available", "")
	assert.Len(t, decode(t, rec)["available_seats"], 10)
}

func TestGetBookingByOrderNotFound(t *testing.T) {
	e, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound,
		request(e, http.MethodGet, "/api/seats/order/missing", "").Code)
}

func TestProtectionStatusEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated,
		request(e, http.MethodPost, "/api/seats/book-cash", `{"seats":[1],"order_id":"order_a"}`).Code)

	rec := request(e, http.MethodGet, "/api/seats/protection-status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["protected_seats"])
	assert.Equal(t, float64(9), summary["available_seats"])
	assert.Equal(t, float64(1), summary["confirmed_bookings"])
}
