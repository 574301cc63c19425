package model

// SeatProtection is the detailed per-seat view served by the
// protection-status endpoint.  "Protected" covers both temporary holds
// and confirmed bookings that have not yet expired.
type SeatProtection struct {
	SeatNumber     int     `json:"seat_number"`
	Status         string  `json:"status"` // "available" or "protected"
	Protected      bool    `json:"protected"`
	ProtectionType *string `json:"protection_type"` // "temporary" or "confirmed", nil when available
	TimeRemaining  *int    `json:"time_remaining_seconds"`
	BookedBy       *string `json:"booked_by"`
	OrderID        *string `json:"order_id"`
	PaymentStatus  *string `json:"payment_status,omitempty"`
	ExpiresAt      *string `json:"expires_at,omitempty"`
}

// ProtectionSummary aggregates the protection view.
type ProtectionSummary struct {
	TotalSeats            int `json:"total_seats"`
	ProtectedSeats        int `json:"protected_seats"`
	AvailableSeats        int `json:"available_seats"`
	ConfirmedBookings     int `json:"confirmed_bookings"`
	TemporaryReservations int `json:"temporary_reservations"`
}
