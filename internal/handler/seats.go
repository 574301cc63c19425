package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/quicktap/seat-booking/internal/model"
	"github.com/quicktap/seat-booking/internal/repository"
	"github.com/quicktap/seat-booking/internal/service"
)

// SeatHandler exposes the public seat booking endpoints.  All booking
// flows are anonymous-friendly: user identity is optional and taken at
// face value from the request, matching the walk-up nature of a cafe
// counter.  Exclusivity is enforced below, in the lease manager and
// ledger, never here.
type SeatHandler struct {
	Lease *service.LeaseManager
}

// NewSeatHandler constructs a SeatHandler.  The lease manager must be
// non-nil.
func NewSeatHandler(lease *service.LeaseManager) *SeatHandler {
	if lease == nil {
		panic("nil lease manager passed to NewSeatHandler")
	}
	return &SeatHandler{Lease: lease}
}

// bookRequest is the shared body for the booking endpoints.
// order_details is an opaque snapshot: it is stored and echoed back
// verbatim, never validated.
type bookRequest struct {
	Seats        []int           `json:"seats"`
	OrderID      string          `json:"order_id"`
	UserID       *string         `json:"user_id"`
	UserName     *string         `json:"user_name"`
	OrderDetails json.RawMessage `json:"order_details"`
}

func (r *bookRequest) holdRequest() service.HoldRequest {
	req := service.HoldRequest{
		Seats:    r.Seats,
		OrderID:  r.OrderID,
		UserID:   r.UserID,
		UserName: r.UserName,
	}
	if len(r.OrderDetails) > 0 {
		details := string(r.OrderDetails)
		req.OrderDetails = &details
	}
	return req
}

// seatError translates lease manager failures into HTTP responses.
func seatError(c echo.Context, err error) error {
	var unavailable *repository.SeatUnavailableError
	switch {
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       "some seats are unavailable",
			"unavailable": unavailable.Seats,
		})
	case errors.Is(err, service.ErrInvalidSeat):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrPaymentVerificationFailed):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "payment could not be verified, please retry",
		})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

func bookingResponse(c echo.Context, status int, message string, bookings []model.Booking) error {
	resp := echo.Map{
		"success":  true,
		"message":  message,
		"bookings": bookings,
	}
	if len(bookings) > 0 {
		expires := bookings[0].ExpiresAt
		resp["expires_at"] = expires.Format(time.RFC3339)
		resp["time_remaining_minutes"] = int(time.Until(expires).Minutes())
	}
	return c.JSON(status, resp)
}

// GetSeatStatus handles GET /api/seats/status.  It returns the full
// seat map with occupancy details; expired leases already read as
// available here even before the sweeper reclaims them.
func (h *SeatHandler) GetSeatStatus(c echo.Context) error {
	statuses, err := h.Lease.SeatStatuses(c.Request().Context())
	if err != nil {
		return seatError(c, err)
	}
	available := 0
	for _, st := range statuses {
		if st.Status == "available" {
			available++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"seats":           statuses,
		"total_seats":     len(statuses),
		"available_seats": available,
		"occupied_seats":  len(statuses) - available,
	})
}

// GetAvailableSeats handles GET /api/seats/available and returns only
// the free seat numbers.
func (h *SeatHandler) GetAvailableSeats(c echo.Context) error {
	seats, err := h.Lease.AvailableSeats(c.Request().Context())
	if err != nil {
		return seatError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"available_seats": seats,
	})
}

// GetProtectionStatus handles GET /api/seats/protection-status,
// the detailed per-seat view polled by the seat map UI.
func (h *SeatHandler) GetProtectionStatus(c echo.Context) error {
	statuses, summary, err := h.Lease.ProtectionStatus(c.Request().Context())
	if err != nil {
		return seatError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":           true,
		"protection_status": statuses,
		"summary":           summary,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	})
}

// HoldSeats handles POST /api/seats/book.  It places a temporary hold
// pending payment; the seats stay protected until the hold expires or
// payment confirms it.
func (h *SeatHandler) HoldSeats(c echo.Context) error {
	var body bookRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.OrderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id is required"})
	}
	bookings, err := h.Lease.RequestHold(c.Request().Context(), body.holdRequest())
	if err != nil {
		return seatError(c, err)
	}
	return bookingResponse(c, http.StatusCreated, "seats held pending payment", bookings)
}

// BookSeatsCash handles POST /api/seats/book-cash.  Hold and cash
// confirmation happen in one call; payment is collected in person, so
// no verification applies.  A missing order_id gets a generated
// cash_<uuid> identifier.
func (h *SeatHandler) BookSeatsCash(c echo.Context) error {
	var body bookRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.OrderID == "" {
		body.OrderID = "cash_" + uuid.NewString()
	}
	ctx := c.Request().Context()
	if _, err := h.Lease.RequestHold(ctx, body.holdRequest()); err != nil {
		return seatError(c, err)
	}
	bookings, err := h.Lease.ConfirmCash(ctx, body.OrderID)
	if err != nil {
		return seatError(c, err)
	}
	return bookingResponse(c, http.StatusCreated, "seats booked for cash payment", bookings)
}

// BookSeatsAfterPayment handles POST /api/seats/book-after-payment.
// The seats are held first, then the gateway signature is verified and
// the hold confirmed.  When verification fails the hold is kept so the
// seats stay protected while the client retries.
func (h *SeatHandler) BookSeatsAfterPayment(c echo.Context) error {
	var body struct {
		bookRequest
		GatewayOrderID   string  `json:"gateway_order_id"`
		GatewayPaymentID string  `json:"gateway_payment_id"`
		Signature        string  `json:"signature"`
		Amount           *int64  `json:"amount"`
		Currency         *string `json:"currency"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.OrderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id is required"})
	}
	if body.GatewayOrderID == "" || body.GatewayPaymentID == "" || body.Signature == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "gateway_order_id, gateway_payment_id and signature are required",
		})
	}
	ctx := c.Request().Context()
	if _, err := h.Lease.RequestHold(ctx, body.holdRequest()); err != nil {
		return seatError(c, err)
	}
	bookings, err := h.Lease.ConfirmWithPayment(ctx, body.OrderID, service.PaymentAssertion{
		GatewayOrderID:   body.GatewayOrderID,
		GatewayPaymentID: body.GatewayPaymentID,
		Signature:        body.Signature,
		Amount:           body.Amount,
		Currency:         body.Currency,
	})
	if err != nil {
		return seatError(c, err)
	}
	return bookingResponse(c, http.StatusCreated, "payment verified, seats booked", bookings)
}

// GetBookingByOrder handles GET /api/seats/order/:orderId and returns
// every booking row of the order, historical rows included.
func (h *SeatHandler) GetBookingByOrder(c echo.Context) error {
	orderID := c.Param("orderId")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	bookings, err := h.Lease.BookingsByOrder(c.Request().Context(), orderID)
	if err != nil {
		return seatError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"bookings": bookings,
	})
}

// CancelBooking handles DELETE /api/seats/cancel/:orderId.  It expires
// the order's active bookings immediately, returning the seats to the
// pool.
func (h *SeatHandler) CancelBooking(c echo.Context) error {
	orderID := c.Param("orderId")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	released, err := h.Lease.ReleaseOrder(c.Request().Context(), orderID, "cancelled")
	if err != nil {
		return seatError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"message":  "booking cancelled",
		"released": released,
	})
}
