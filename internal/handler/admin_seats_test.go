package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktap/seat-booking/internal/service"
)

func newAdminServer(t *testing.T) (*echo.Echo, *service.LeaseManager) {
	t.Helper()
	e, lease := newTestServer(t)
	a := NewAdminSeatHandler(lease)
	e.GET("/v1/admin/seats", a.ListBookings)
	e.GET("/v1/admin/seats/stats", a.Stats)
	e.POST("/v1/admin/seats/expire/:orderId", a.ForceExpire)
	e.PATCH("/v1/admin/seats/extend/:orderId", a.Extend)
	e.POST("/v1/admin/seats/complete/:orderId", a.Complete)
	return e, lease
}

func TestAdminListBookings(t *testing.T) {
	e, _ := newAdminServer(t)
	require.Equal(t, http.StatusCreated,
		request(e, http.MethodPost, "/api/seats/book", `{"seats":[1,2,3],"order_id":"order_a"}`).Code)

	rec := request(e, http.MethodGet, "/v1/admin/seats?page=1&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(3), body["total"])
	assert.Len(t, body["items"], 2)

	rec = request(e, http.MethodGet, "/v1/admin/seats?status=completed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, float64(0), body["total"])
	assert.Len(t, body["items"], 0, "empty page is a list, not null")

	assert.Equal(t, http.StatusBadRequest,
		request(e, http.MethodGet, "/v1/admin/seats?status=bogus", "").Code)
}

func TestAdminStats(t *testing.T) {
	e, _ := newAdminServer(t)
	require.Equal(t, http.StatusCreated,
		request(e, http.MethodPost, "/api/seats/book-cash", `{"seats":[1],"order_id":"order_a"}`).Code)

	rec := request(e, http.MethodGet, "/v1/admin/seats/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["total"])
	assert.Equal(t, float64(1), stats["active"])
	assert.Equal(t, float64(1), stats["cash"])
}

func TestAdminForceExpire(t *testing.T) {
	e, _ := newAdminServer(t)
	require.Equal(t, http.StatusCreated,
		request(e, http.MethodPost, "/api/seats/book", `{"seats":[1,2],"order_id":"order_a"}`).Code)

	rec := request(e, http.MethodPost, "/v1/admin/seats/expire/order_a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["released"])

	assert.Equal(t, http.StatusNotFound,
		request(e, http.MethodPost, "/v1/admin/seats/expire/order_a", "").Code)
}

func TestAdminExtend(t *testing.T) {
	e, _ := newAdminServer(t)
	require.Equal(t, http.StatusCreated,
		request(e, http.MethodPost, "/api/seats/book", `{"seats":[1],"order_id":"order_a"}`).Code)

	rec := request(e, http.MethodPatch, "/v1/admin/seats/extend/order_a", `{"additional_minutes":15}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	expires, err := time.Parse(time.RFC3339, body["expires_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(45*time.Minute), expires, 5*time.Second)

	assert.Equal(t, http.StatusBadRequest,
		request(e, http.MethodPatch, "/v1/admin/seats/extend/order_a", `{"additional_minutes":0}`).Code)
	assert.Equal(t, http.StatusNotFound,
		request(e, http.MethodPatch, "/v1/admin/seats/extend/missing", `{"additional_minutes":15}`).Code)
}

func TestAdminExtendLimit(t *testing.T) {
	e, lease := newTestServerWithConfig(t, service.Config{
		SeatCount:      10,
		HoldDuration:   30 * time.Minute,
		ExtendMaxTotal: time.Hour,
	})
	a := NewAdminSeatHandler(lease)
	e.PATCH("/v1/admin/seats/extend/:orderId", a.Extend)

	require.Equal(t, http.StatusCreated,
		request(e, http.MethodPost, "/api/seats/book", `{"seats":[1],"order_id":"order_a"}`).Code)

	// 30m + 90m blows through the 1h lifetime cap
	rec := request(e, http.MethodPatch, "/v1/admin/seats/extend/order_a", `{"additional_minutes":90}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdminComplete(t *testing.T) {
	e, _ := newAdminServer(t)
	require.Equal(t, http.StatusCreated,
		request(e, http.MethodPost, "/api/seats/book-cash", `{"seats":[1],"order_id":"order_a"}`).Code)

	rec := request(e, http.MethodPost, "/v1/admin/seats/complete/order_a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["completed"])

	rec = request(e, http.MethodGet, "/v1/admin/seats/stats", "")
	stats := decode(t, rec)["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["completed"])

	assert.Equal(t, http.StatusNotFound,
		request(e, http.MethodPost, "/v1/admin/seats/complete/order_a", "").Code)
}
