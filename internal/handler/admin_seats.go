package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quicktap/seat-booking/internal/model"
	"github.com/quicktap/seat-booking/internal/service"
)

// AdminSeatHandler implements the privileged booking operations behind
// JWT + ADMIN role middleware: listing, stats and the manual overrides
// (force-expire, extend, complete).
type AdminSeatHandler struct {
	Lease *service.LeaseManager
}

// NewAdminSeatHandler constructs an AdminSeatHandler.
func NewAdminSeatHandler(lease *service.LeaseManager) *AdminSeatHandler {
	if lease == nil {
		panic("nil lease manager passed to NewAdminSeatHandler")
	}
	return &AdminSeatHandler{Lease: lease}
}

// ListBookings handles GET /v1/admin/seats.  Supports ?page, ?limit
// and an optional ?status filter (active|expired|completed).
func (h *AdminSeatHandler) ListBookings(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	status := strings.ToUpper(c.QueryParam("status"))
	switch status {
	case "", model.BookingStatusActive, model.BookingStatusExpired, model.BookingStatusCompleted:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	items, total, err := h.Lease.ListBookings(c.Request().Context(), page, limit, status)
	if err != nil {
		return seatError(c, err)
	}
	if items == nil {
		items = []model.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"total": total,
	})
}

// Stats handles GET /v1/admin/seats/stats and returns the aggregate
// ledger counts.
func (h *AdminSeatHandler) Stats(c echo.Context) error {
	stats, err := h.Lease.Stats(c.Request().Context())
	if err != nil {
		return seatError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"stats": stats})
}

// ForceExpire handles POST /v1/admin/seats/expire/:orderId.  It
// expires the order's active bookings regardless of their expiry
// timestamp, the operator's tool for no-shows and cancelled orders.
func (h *AdminSeatHandler) ForceExpire(c echo.Context) error {
	orderID := c.Param("orderId")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	released, err := h.Lease.ReleaseOrder(c.Request().Context(), orderID, "force_expired")
	if err != nil {
		return seatError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"released": released,
	})
}

// Extend handles PATCH /v1/admin/seats/extend/:orderId.  The body
// carries additional_minutes; the new expiry is bounded by the maximum
// cumulative booking lifetime.
func (h *AdminSeatHandler) Extend(c echo.Context) error {
	orderID := c.Param("orderId")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var body struct {
		AdditionalMinutes int `json:"additional_minutes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.AdditionalMinutes <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "additional_minutes must be positive"})
	}
	newExpiry, err := h.Lease.Extend(c.Request().Context(), orderID, body.AdditionalMinutes)
	if err != nil {
		if errors.Is(err, service.ErrExtendLimit) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
		}
		return seatError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"expires_at": newExpiry.Format(time.RFC3339),
	})
}

// Complete handles POST /v1/admin/seats/complete/:orderId, settling a
// fulfilled order and releasing its seats.
func (h *AdminSeatHandler) Complete(c echo.Context) error {
	orderID := c.Param("orderId")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	completed, err := h.Lease.Complete(c.Request().Context(), orderID)
	if err != nil {
		return seatError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"completed": completed,
	})
}
