package router

import (
	"github.com/labstack/echo/v4"

	"github.com/quicktap/seat-booking/internal/handler"
)

// RegisterSeats registers the public booking endpoints under
// /api/seats.  No authentication applies: walk-up customers book
// anonymously and exclusivity is enforced by the ledger, not by
// identity.  The read middleware (response cache) wraps the polled
// GET endpoints only; the write middleware (rate limiter) wraps the
// mutating ones so a stuck client cannot hammer the booking path.
func RegisterSeats(e *echo.Echo, h *handler.SeatHandler, readMW, writeMW []echo.MiddlewareFunc) {
	g := e.Group("/api/seats")

	g.GET("/status", h.GetSeatStatus, readMW...)
	g.GET("/available", h.GetAvailableSeats, readMW...)
	g.GET("/protection-status", h.GetProtectionStatus, readMW...)
	g.GET("/order/:orderId", h.GetBookingByOrder)

	g.POST("/book", h.HoldSeats, writeMW...)
	g.POST("/book-cash", h.BookSeatsCash, writeMW...)
	g.POST("/book-after-payment", h.BookSeatsAfterPayment, writeMW...)
	g.DELETE("/cancel/:orderId", h.CancelBooking, writeMW...)
}
