// Package queue defines the message payloads exchanged over the
// broker and the background consumer that records confirmations.
package queue

// Queue names used on the default exchange.
const (
	BookingConfirmedQueue = "seatbooking.confirmed"
	SeatsReleasedQueue    = "seatbooking.released"
)

// BookingConfirmedEvent is published when a hold becomes a confirmed
// booking.  It carries enough information for downstream consumers to
// log or notify without querying the ledger.
type BookingConfirmedEvent struct {
	OrderID       string  `json:"order_id"`
	Seats         []int   `json:"seats"`
	UserID        *string `json:"user_id,omitempty"`
	UserName      *string `json:"user_name,omitempty"`
	PaymentMethod string  `json:"payment_method"`
	GatewayAmount *int64  `json:"gateway_amount,omitempty"`
	ExpiresAt     string  `json:"expires_at"`
	ConfirmedAt   string  `json:"confirmed_at"`
}

// SeatsReleasedEvent is published when seats return to the available
// pool, either through sweeper reclamation or an admin override.
type SeatsReleasedEvent struct {
	Seats      []int    `json:"seats"`
	OrderIDs   []string `json:"order_ids"`
	Reason     string   `json:"reason"` // "expired", "force_expired", "cancelled", "completed"
	ReleasedAt string   `json:"released_at"`
}
