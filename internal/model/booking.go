package model

import "time"

// Booking lifecycle statuses.  A booking is ACTIVE while it holds its
// seat (whether a temporary unpaid hold or a confirmed reservation),
// EXPIRED once the hold lapsed or an admin force-expired it, and
// COMPLETED once an admin settled the order.  Records are never
// physically deleted; historical rows remain for audit and statistics.
const (
	BookingStatusActive    = "ACTIVE"    // seat is currently leased
	BookingStatusExpired   = "EXPIRED"   // lease lapsed, seat released
	BookingStatusCompleted = "COMPLETED" // order fulfilled, seat released
)

// Payment statuses carried on a booking.
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusRefunded  = "REFUNDED"
)

// Payment methods.  CASH bookings are confirmed directly by staff;
// GATEWAY bookings require signature verification before confirmation.
const (
	PaymentMethodCash    = "CASH"
	PaymentMethodGateway = "GATEWAY"
)

// Booking is one seat leased under one order.  A multi-seat order
// produces one Booking row per seat, all sharing the same OrderID.
//
// Fields:
//  ID               – primary key identifier.
//  SeatNumber       – seat in the fixed range [1, SEAT_COUNT].
//  OrderID          – order this booking belongs to (gateway order id
//                     or locally generated for cash).
//  UserID           – identity of the booker (nullable, guests allowed).
//  UserName         – display name of the booker (nullable).
//  Status           – ACTIVE, EXPIRED or COMPLETED.
//  IsTemporary      – true for an unconfirmed hold pending payment.
//  PaymentVerified  – true once the gateway signature checked out.
//  PaymentStatus    – PENDING, COMPLETED, FAILED or REFUNDED.
//  PaymentMethod    – CASH or GATEWAY.
//  GatewayOrderID   – gateway correlation fields, nil for cash.
//  GatewayPaymentID
//  GatewayAmount    – amount in the gateway's minor unit.
//  GatewayCurrency
//  OrderDetails     – opaque snapshot of the order at booking time;
//                     stored and echoed back, never inspected.
//  BookedAt         – creation timestamp (UTC).
//  ExpiresAt        – when the lease lapses (UTC).
type Booking struct {
	ID               uint64    `json:"id"`                  // seat_bookings.id
	SeatNumber       int       `json:"seat_number"`         // seat_bookings.seat_number
	OrderID          string    `json:"order_id"`            // seat_bookings.order_id
	UserID           *string   `json:"user_id,omitempty"`   // seat_bookings.user_id (nullable)
	UserName         *string   `json:"user_name,omitempty"` // seat_bookings.user_name (nullable)
	Status           string    `json:"status"`              // seat_bookings.status
	IsTemporary      bool      `json:"is_temporary"`        // seat_bookings.is_temporary
	PaymentVerified  bool      `json:"payment_verified"`    // seat_bookings.payment_verified
	PaymentStatus    string    `json:"payment_status"`      // seat_bookings.payment_status
	PaymentMethod    string    `json:"payment_method"`      // seat_bookings.payment_method
	GatewayOrderID   *string   `json:"gateway_order_id,omitempty"`   // nullable
	GatewayPaymentID *string   `json:"gateway_payment_id,omitempty"` // nullable
	GatewayAmount    *int64    `json:"gateway_amount,omitempty"`     // nullable
	GatewayCurrency  *string   `json:"gateway_currency,omitempty"`   // nullable
	OrderDetails     *string   `json:"order_details,omitempty"`      // opaque blob (nullable)
	BookedAt         time.Time `json:"booked_at"`  // seat_bookings.booked_at
	ExpiresAt        time.Time `json:"expires_at"` // seat_bookings.expires_at
}

// Leased reports whether the booking is still holding its seat at the
// given instant.  Stored status alone is not enough: an ACTIVE row past
// its expiry is treated as released even before the sweeper marks it.
func (b *Booking) Leased(now time.Time) bool {
	return b.Status == BookingStatusActive && b.ExpiresAt.After(now)
}

// SeatStatus is the per-seat availability view returned by the status
// endpoints.  Booking is nil for available seats.
type SeatStatus struct {
	SeatNumber int             `json:"seat_number"`
	Status     string          `json:"status"` // "available" or "occupied"
	Booking    *BookingSummary `json:"booking,omitempty"`
}

// BookingSummary is the subset of a booking exposed on public status
// queries.  It deliberately omits gateway correlation ids.
type BookingSummary struct {
	OrderID              string    `json:"order_id"`
	UserName             *string   `json:"user_name,omitempty"`
	IsTemporary          bool      `json:"is_temporary"`
	PaymentVerified      bool      `json:"payment_verified"`
	BookedAt             time.Time `json:"booked_at"`
	ExpiresAt            time.Time `json:"expires_at"`
	TimeRemainingMinutes int       `json:"time_remaining_minutes"`
}

// BookingStats aggregates ledger counts for the admin dashboard.
type BookingStats struct {
	Total           int `json:"total"`
	Active          int `json:"active"`
	Expired         int `json:"expired"`
	Completed       int `json:"completed"`
	PaymentVerified int `json:"payment_verified"`
	PendingPayment  int `json:"pending_payment"`
	Temporary       int `json:"temporary"`
	Cash            int `json:"cash"`
}
