// Package service contains the seat-leasing state machine.  The
// LeaseManager sits between the HTTP handlers and the ledger: it owns
// the hold/confirm/expire transitions and is the only writer of
// booking rows besides the sweeper.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quicktap/seat-booking/internal/metrics"
	"github.com/quicktap/seat-booking/internal/model"
	"github.com/quicktap/seat-booking/internal/payment"
	"github.com/quicktap/seat-booking/internal/queue"
	"github.com/quicktap/seat-booking/internal/repository"
)

// ErrPaymentVerificationFailed is returned when the gateway signature
// does not match.  The hold is deliberately kept: the seat stays
// protected until its natural expiry so the user can retry payment.
var ErrPaymentVerificationFailed = errors.New("payment verification failed")

// ErrInvalidSeat is returned when a requested seat number falls
// outside the configured range.
var ErrInvalidSeat = errors.New("invalid seat number")

// ErrExtendLimit is returned when an extension would push a booking
// past the maximum cumulative lifetime.
var ErrExtendLimit = errors.New("extension exceeds maximum booking lifetime")

// EventPublisher is the subset of the queue publisher the lease
// manager needs.  A nil publisher disables events.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishSeatsReleased(ctx context.Context, ev queue.SeatsReleasedEvent) error
}

// Config holds the lease policy knobs.
type Config struct {
	SeatCount    int           // seats are numbered [1, SeatCount]
	HoldDuration time.Duration // lifetime of a hold (and of a confirmed booking when ResetExpiryOnConfirm)

	// ResetExpiryOnConfirm restarts the expiry window at confirmation
	// time, so even a paid booking lapses HoldDuration after payment.
	// This mirrors the behaviour of the system this one replaces; set
	// false to let confirmed bookings keep their original expiry.
	ResetExpiryOnConfirm bool

	// ExtendMaxTotal caps the cumulative lifetime of a booking
	// (expiry may never exceed bookedAt + ExtendMaxTotal).  Zero
	// means unbounded.
	ExtendMaxTotal time.Duration
}

// LeaseManager implements the seat-leasing state machine over the
// booking ledger.  All methods are safe for concurrent use; seat
// exclusivity is enforced by the ledger's atomic insert, never by
// in-process state.
type LeaseManager struct {
	repo     *repository.BookingRepo
	verifier *payment.Verifier
	events   EventPublisher
	cfg      Config
	log      zerolog.Logger
}

// NewLeaseManager constructs a LeaseManager.  repo and verifier must
// be non-nil; events may be nil to disable event publishing.
func NewLeaseManager(repo *repository.BookingRepo, verifier *payment.Verifier, events EventPublisher, cfg Config, log zerolog.Logger) *LeaseManager {
	if repo == nil || verifier == nil {
		panic("nil dependency passed to NewLeaseManager")
	}
	if cfg.SeatCount <= 0 {
		cfg.SeatCount = 100
	}
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = 30 * time.Minute
	}
	return &LeaseManager{repo: repo, verifier: verifier, events: events, cfg: cfg, log: log}
}

// SeatCount returns the configured number of seats.
func (m *LeaseManager) SeatCount() int { return m.cfg.SeatCount }

// HoldRequest is the input for RequestHold.
type HoldRequest struct {
	Seats        []int
	OrderID      string
	UserID       *string
	UserName     *string
	OrderDetails *string
}

// validSeats deduplicates and range-checks the requested seats.
func (m *LeaseManager) validSeats(seats []int) ([]int, error) {
	if len(seats) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", ErrInvalidSeat)
	}
	seen := make(map[int]struct{}, len(seats))
	unique := make([]int, 0, len(seats))
	for _, s := range seats {
		if s < 1 || s > m.cfg.SeatCount {
			return nil, fmt.Errorf("%w: %d (valid range 1-%d)", ErrInvalidSeat, s, m.cfg.SeatCount)
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}
	return unique, nil
}

// RequestHold places a temporary hold on every requested seat.  The
// batch is all-or-nothing: if any seat is under a live booking by a
// different order, nothing is written and the conflicting seats are
// reported.  Seats already held by the same order are left untouched,
// which makes retried requests idempotent.  Returns the order's active
// bookings after the hold.
func (m *LeaseManager) RequestHold(ctx context.Context, req HoldRequest) ([]model.Booking, error) {
	if req.OrderID == "" {
		return nil, fmt.Errorf("order id is required")
	}
	seats, err := m.validSeats(req.Seats)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(m.cfg.HoldDuration)

	tx, err := m.repo.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Stale active rows still occupy the unique index; release them
	// first so lapsed holds never block a new booking.
	if _, err := m.repo.ExpireStaleSeatsTx(ctx, tx, seats, now); err != nil {
		return nil, err
	}

	held, err := m.repo.ActiveSeatsTx(ctx, tx, seats, now)
	if err != nil {
		return nil, err
	}
	var conflicts []int
	toInsert := make([]*model.Booking, 0, len(seats))
	for _, s := range seats {
		owner, taken := held[s]
		switch {
		case taken && owner != req.OrderID:
			conflicts = append(conflicts, s)
		case taken:
			// already held by this order, nothing to insert
		default:
			toInsert = append(toInsert, &model.Booking{
				SeatNumber:    s,
				OrderID:       req.OrderID,
				UserID:        req.UserID,
				UserName:      req.UserName,
				Status:        model.BookingStatusActive,
				IsTemporary:   true,
				PaymentStatus: model.PaymentStatusPending,
				PaymentMethod: model.PaymentMethodGateway,
				OrderDetails:  req.OrderDetails,
				BookedAt:      now,
				ExpiresAt:     expiresAt,
			})
		}
	}
	if len(conflicts) > 0 {
		metrics.HoldConflicts.Inc()
		return nil, &repository.SeatUnavailableError{Seats: conflicts}
	}
	if err := m.repo.InsertHoldsTx(ctx, tx, toInsert); err != nil {
		// A concurrent writer won the unique index between our check
		// and the insert; the transaction rolls back in full.
		var unavailable *repository.SeatUnavailableError
		if errors.As(err, &unavailable) {
			metrics.HoldConflicts.Inc()
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	metrics.HoldsCreated.Add(float64(len(toInsert)))

	return m.repo.ActiveByOrderID(ctx, req.OrderID)
}

// ConfirmCash promotes an order's holds to a confirmed cash booking.
// No payment verification happens; cash is collected in person by
// staff.  Confirming an already-confirmed order is idempotent.
func (m *LeaseManager) ConfirmCash(ctx context.Context, orderID string) ([]model.Booking, error) {
	rows, err := m.activeOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if allConfirmed(rows) {
		return rows, nil
	}
	update := repository.ConfirmUpdate{
		PaymentVerified: false,
		PaymentStatus:   model.PaymentStatusCompleted,
		PaymentMethod:   model.PaymentMethodCash,
	}
	return m.confirm(ctx, orderID, rows, update, model.PaymentMethodCash)
}

// PaymentAssertion is the gateway triple presented when confirming a
// paid booking, plus optional amount metadata for the audit record.
type PaymentAssertion struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Amount           *int64
	Currency         *string
}

// ConfirmWithPayment verifies the gateway signature and, on success,
// promotes the order's holds to a confirmed booking.  A signature
// mismatch returns ErrPaymentVerificationFailed and leaves the hold in
// place so the seat stays protected while the user retries.
func (m *LeaseManager) ConfirmWithPayment(ctx context.Context, orderID string, p PaymentAssertion) ([]model.Booking, error) {
	rows, err := m.activeOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if allConfirmed(rows) {
		return rows, nil
	}
	if !m.verifier.Verify(p.GatewayOrderID, p.GatewayPaymentID, p.Signature) {
		metrics.PaymentVerificationFailures.Inc()
		m.log.Warn().Str("order_id", orderID).Str("gateway_order_id", p.GatewayOrderID).
			Msg("gateway signature rejected, hold preserved")
		return nil, ErrPaymentVerificationFailed
	}
	update := repository.ConfirmUpdate{
		PaymentVerified:  true,
		PaymentStatus:    model.PaymentStatusCompleted,
		PaymentMethod:    model.PaymentMethodGateway,
		GatewayOrderID:   &p.GatewayOrderID,
		GatewayPaymentID: &p.GatewayPaymentID,
		GatewayAmount:    p.Amount,
		GatewayCurrency:  p.Currency,
	}
	return m.confirm(ctx, orderID, rows, update, model.PaymentMethodGateway)
}

func (m *LeaseManager) confirm(ctx context.Context, orderID string, rows []model.Booking, update repository.ConfirmUpdate, method string) ([]model.Booking, error) {
	now := time.Now().UTC()
	if m.cfg.ResetExpiryOnConfirm {
		e := now.Add(m.cfg.HoldDuration)
		update.NewExpiry = &e
	}
	if _, err := m.repo.MarkConfirmed(ctx, orderID, update, now); err != nil {
		return nil, err
	}
	metrics.Confirmations.WithLabelValues(method).Inc()

	rows, err := m.repo.ActiveByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// The order may still carry lapsed holds from an earlier request;
	// those were not confirmed and stay out of the response and event.
	confirmed := rows[:0]
	for _, b := range rows {
		if b.Leased(now) {
			confirmed = append(confirmed, b)
		}
	}
	if m.events != nil && len(confirmed) > 0 {
		ev := queue.BookingConfirmedEvent{
			OrderID:       orderID,
			Seats:         seatNumbers(confirmed),
			UserID:        confirmed[0].UserID,
			UserName:      confirmed[0].UserName,
			PaymentMethod: method,
			GatewayAmount: update.GatewayAmount,
			ExpiresAt:     confirmed[0].ExpiresAt.Format(time.RFC3339),
			ConfirmedAt:   now.Format(time.RFC3339),
		}
		_ = m.events.PublishBookingConfirmed(ctx, ev)
	}
	return confirmed, nil
}

// activeOrder loads the live holds of an order.  Rows past expiry are
// not confirmable: the lease already lapsed.
func (m *LeaseManager) activeOrder(ctx context.Context, orderID string) ([]model.Booking, error) {
	rows, err := m.repo.ActiveByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	live := rows[:0]
	for _, b := range rows {
		if b.Leased(now) {
			live = append(live, b)
		}
	}
	if len(live) == 0 {
		return nil, repository.ErrBookingNotFound
	}
	return live, nil
}

func allConfirmed(rows []model.Booking) bool {
	for _, b := range rows {
		if b.IsTemporary {
			return false
		}
	}
	return true
}

func seatNumbers(rows []model.Booking) []int {
	out := make([]int, 0, len(rows))
	for _, b := range rows {
		out = append(out, b.SeatNumber)
	}
	return out
}

// SeatStatuses returns the availability view for every seat in the
// configured range.  Expiry is applied lazily: an active row past its
// expiry is reported available even before the sweeper reclaims it.
func (m *LeaseManager) SeatStatuses(ctx context.Context) ([]model.SeatStatus, error) {
	active, err := m.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	bySeat := make(map[int]*model.Booking, len(active))
	for i := range active {
		b := &active[i]
		if b.Leased(now) {
			bySeat[b.SeatNumber] = b
		}
	}
	out := make([]model.SeatStatus, 0, m.cfg.SeatCount)
	for seat := 1; seat <= m.cfg.SeatCount; seat++ {
		st := model.SeatStatus{SeatNumber: seat, Status: "available"}
		if b, ok := bySeat[seat]; ok {
			st.Status = "occupied"
			st.Booking = &model.BookingSummary{
				OrderID:              b.OrderID,
				UserName:             b.UserName,
				IsTemporary:          b.IsTemporary,
				PaymentVerified:      b.PaymentVerified,
				BookedAt:             b.BookedAt,
				ExpiresAt:            b.ExpiresAt,
				TimeRemainingMinutes: int(b.ExpiresAt.Sub(now).Minutes()),
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// AvailableSeats returns the seat numbers with no live booking.
func (m *LeaseManager) AvailableSeats(ctx context.Context) ([]int, error) {
	statuses, err := m.SeatStatuses(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(statuses))
	for _, st := range statuses {
		if st.Status == "available" {
			out = append(out, st.SeatNumber)
		}
	}
	return out, nil
}

// ProtectionStatus returns the detailed per-seat protection view and
// its summary, mirroring what the seat map UI polls.
func (m *LeaseManager) ProtectionStatus(ctx context.Context) ([]model.SeatProtection, model.ProtectionSummary, error) {
	active, err := m.repo.ListActive(ctx)
	if err != nil {
		return nil, model.ProtectionSummary{}, err
	}
	now := time.Now().UTC()
	bySeat := make(map[int]*model.Booking, len(active))
	for i := range active {
		b := &active[i]
		if b.Leased(now) {
			bySeat[b.SeatNumber] = b
		}
	}
	summary := model.ProtectionSummary{TotalSeats: m.cfg.SeatCount}
	out := make([]model.SeatProtection, 0, m.cfg.SeatCount)
	for seat := 1; seat <= m.cfg.SeatCount; seat++ {
		p := model.SeatProtection{SeatNumber: seat, Status: "available"}
		if b, ok := bySeat[seat]; ok {
			p.Status = "protected"
			p.Protected = true
			ptype := "confirmed"
			if b.IsTemporary {
				ptype = "temporary"
				summary.TemporaryReservations++
			} else {
				summary.ConfirmedBookings++
			}
			p.ProtectionType = &ptype
			remaining := int(b.ExpiresAt.Sub(now).Seconds())
			p.TimeRemaining = &remaining
			p.BookedBy = b.UserName
			p.OrderID = &b.OrderID
			p.PaymentStatus = &b.PaymentStatus
			exp := b.ExpiresAt.Format(time.RFC3339)
			p.ExpiresAt = &exp
			summary.ProtectedSeats++
		} else {
			summary.AvailableSeats++
		}
		out = append(out, p)
	}
	return out, summary, nil
}

// BookingsByOrder returns every booking row of an order, or
// ErrBookingNotFound when the order is unknown.
func (m *LeaseManager) BookingsByOrder(ctx context.Context, orderID string) ([]model.Booking, error) {
	rows, err := m.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrBookingNotFound
	}
	return rows, nil
}

// ReleaseOrder expires every active booking of an order regardless of
// its expiry, immediately returning its seats to the pool.  Used for
// customer cancellation and the admin force-expire override.
func (m *LeaseManager) ReleaseOrder(ctx context.Context, orderID, reason string) (int64, error) {
	rows, err := m.repo.ActiveByOrderID(ctx, orderID)
	if err != nil {
		return 0, err
	}
	n, err := m.repo.ForceExpireByOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	metrics.BookingsExpired.Add(float64(n))
	if m.events != nil && len(rows) > 0 {
		_ = m.events.PublishSeatsReleased(ctx, queue.SeatsReleasedEvent{
			Seats:      seatNumbers(rows),
			OrderIDs:   []string{orderID},
			Reason:     reason,
			ReleasedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
	return n, nil
}

// Extend pushes the expiry of an order's active bookings forward by
// additionalMinutes, bounded by the maximum cumulative lifetime.
// Returns the new expiry.
func (m *LeaseManager) Extend(ctx context.Context, orderID string, additionalMinutes int) (time.Time, error) {
	if additionalMinutes <= 0 {
		return time.Time{}, fmt.Errorf("additional minutes must be positive")
	}
	rows, err := m.activeOrder(ctx, orderID)
	if err != nil {
		return time.Time{}, err
	}
	base := rows[0].ExpiresAt
	earliest := rows[0].BookedAt
	for _, b := range rows[1:] {
		if b.ExpiresAt.After(base) {
			base = b.ExpiresAt
		}
		if b.BookedAt.Before(earliest) {
			earliest = b.BookedAt
		}
	}
	newExpiry := base.Add(time.Duration(additionalMinutes) * time.Minute)
	if m.cfg.ExtendMaxTotal > 0 && newExpiry.After(earliest.Add(m.cfg.ExtendMaxTotal)) {
		return time.Time{}, ErrExtendLimit
	}
	if _, err := m.repo.ExtendExpiry(ctx, orderID, newExpiry, time.Now().UTC()); err != nil {
		return time.Time{}, err
	}
	return newExpiry, nil
}

// Complete settles an order: its active bookings move to COMPLETED
// and the seats are released.
func (m *LeaseManager) Complete(ctx context.Context, orderID string) (int64, error) {
	rows, err := m.repo.ActiveByOrderID(ctx, orderID)
	if err != nil {
		return 0, err
	}
	n, err := m.repo.MarkCompleted(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if m.events != nil && len(rows) > 0 {
		_ = m.events.PublishSeatsReleased(ctx, queue.SeatsReleasedEvent{
			Seats:      seatNumbers(rows),
			OrderIDs:   []string{orderID},
			Reason:     "completed",
			ReleasedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
	return n, nil
}

// Stats returns the aggregate ledger counts.
func (m *LeaseManager) Stats(ctx context.Context) (model.BookingStats, error) {
	return m.repo.StatsByStatus(ctx)
}

// ListBookings returns a page of booking records for the admin view.
func (m *LeaseManager) ListBookings(ctx context.Context, page, limit int, status string) ([]model.Booking, int, error) {
	return m.repo.ListPage(ctx, page, limit, status)
}
