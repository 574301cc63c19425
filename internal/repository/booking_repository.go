package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/quicktap/seat-booking/internal/model"
)

// timeLayout is the DATETIME format written to the database.  All
// timestamps are stored in UTC; callers must pass UTC times.
const timeLayout = "2006-01-02 15:04:05"

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// bookingColumns is the column list shared by every SELECT so scan
// order stays in one place.
const bookingColumns = `id, seat_number, order_id, user_id, user_name, status,
       is_temporary, payment_verified, payment_status, payment_method,
       gateway_order_id, gateway_payment_id, gateway_amount, gateway_currency,
       order_details, booked_at, expires_at`

// BookingRepo provides data access to the seat_bookings table.  It is
// the single source of truth for seat state: no caller may treat an
// in-memory copy of seat availability as authoritative.  All methods
// operate on UTC timestamps.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning several repository calls.
func (r *BookingRepo) DB() *sql.DB { return r.db }

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(s scanner) (*model.Booking, error) {
	var (
		b        model.Booking
		userID   sql.NullString
		userName sql.NullString
		gwOrder  sql.NullString
		gwPay    sql.NullString
		gwAmount sql.NullInt64
		gwCurr   sql.NullString
		details  sql.NullString
	)
	if err := s.Scan(&b.ID, &b.SeatNumber, &b.OrderID, &userID, &userName, &b.Status,
		&b.IsTemporary, &b.PaymentVerified, &b.PaymentStatus, &b.PaymentMethod,
		&gwOrder, &gwPay, &gwAmount, &gwCurr, &details, &b.BookedAt, &b.ExpiresAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		b.UserID = &userID.String
	}
	if userName.Valid {
		b.UserName = &userName.String
	}
	if gwOrder.Valid {
		b.GatewayOrderID = &gwOrder.String
	}
	if gwPay.Valid {
		b.GatewayPaymentID = &gwPay.String
	}
	if gwAmount.Valid {
		b.GatewayAmount = &gwAmount.Int64
	}
	if gwCurr.Valid {
		b.GatewayCurrency = &gwCurr.String
	}
	if details.Valid {
		b.OrderDetails = &details.String
	}
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// placeholders returns "?, ?, ..." for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// FindActiveBySeat returns the active booking for a seat, or nil when
// the seat has none.  The caller is responsible for treating an active
// row past its expiry as released (see model.Booking.Leased).
func (r *BookingRepo) FindActiveBySeat(ctx context.Context, seatNumber int) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM seat_bookings WHERE seat_number = ? AND status = ?`,
		seatNumber, model.BookingStatusActive,
	)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListActive returns every booking currently in ACTIVE status,
// including rows past their expiry that the sweeper has not yet
// reclaimed.  Availability computations must filter those lazily.
func (r *BookingRepo) ListActive(ctx context.Context) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM seat_bookings WHERE status = ? ORDER BY seat_number`,
		model.BookingStatusActive,
	)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ActiveSeatsTx returns seat_number -> order_id for the requested
// seats that are under a live (non-expired) active booking.  Executed
// within the hold transaction so the view is consistent with the
// subsequent inserts.
func (r *BookingRepo) ActiveSeatsTx(ctx context.Context, tx *sql.Tx, seats []int, now time.Time) (map[int]string, error) {
	if len(seats) == 0 {
		return map[int]string{}, nil
	}
	args := make([]interface{}, 0, len(seats)+2)
	args = append(args, model.BookingStatusActive, fmtTime(now))
	for _, s := range seats {
		args = append(args, s)
	}
	q := `SELECT seat_number, order_id FROM seat_bookings
	      WHERE status = ? AND expires_at > ? AND seat_number IN (` + placeholders(len(seats)) + `)`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	held := make(map[int]string)
	for rows.Next() {
		var seat int
		var orderID string
		if err := rows.Scan(&seat, &orderID); err != nil {
			return nil, err
		}
		held[seat] = orderID
	}
	return held, rows.Err()
}

// ExpireStaleSeatsTx releases active bookings for the given seats
// whose expiry has passed, freeing their slot in the unique index
// before new holds are inserted.  Returns the number of rows released.
func (r *BookingRepo) ExpireStaleSeatsTx(ctx context.Context, tx *sql.Tx, seats []int, now time.Time) (int64, error) {
	if len(seats) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, len(seats)+3)
	args = append(args, model.BookingStatusExpired, model.BookingStatusActive, fmtTime(now))
	for _, s := range seats {
		args = append(args, s)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE seat_bookings SET status = ?, active_seat = NULL
		 WHERE status = ? AND expires_at <= ? AND seat_number IN (`+placeholders(len(seats))+`)`,
		args...,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertHoldsTx inserts one ACTIVE booking row per seat inside the
// provided transaction.  Each insert sets active_seat = seat_number, so
// a concurrent writer racing for the same seat loses on the unique
// index and the whole batch rolls back.  On conflict the returned
// error is a *SeatUnavailableError naming the losing seat.
func (r *BookingRepo) InsertHoldsTx(ctx context.Context, tx *sql.Tx, bookings []*model.Booking) error {
	const q = `INSERT INTO seat_bookings
	    (seat_number, active_seat, order_id, user_id, user_name, status,
	     is_temporary, payment_verified, payment_status, payment_method,
	     gateway_order_id, gateway_payment_id, gateway_amount, gateway_currency,
	     order_details, booked_at, expires_at)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, b := range bookings {
		res, err := tx.ExecContext(ctx, q,
			b.SeatNumber, b.SeatNumber, b.OrderID, b.UserID, b.UserName, b.Status,
			b.IsTemporary, b.PaymentVerified, b.PaymentStatus, b.PaymentMethod,
			b.GatewayOrderID, b.GatewayPaymentID, b.GatewayAmount, b.GatewayCurrency,
			b.OrderDetails, fmtTime(b.BookedAt), fmtTime(b.ExpiresAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return &SeatUnavailableError{Seats: []int{b.SeatNumber}}
			}
			return err
		}
		if id, err := res.LastInsertId(); err == nil {
			b.ID = uint64(id)
		}
	}
	return nil
}

// FindByOrderID returns every booking row for an order, newest first.
func (r *BookingRepo) FindByOrderID(ctx context.Context, orderID string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM seat_bookings WHERE order_id = ? ORDER BY seat_number`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ActiveByOrderID returns the active booking rows for an order.
func (r *BookingRepo) ActiveByOrderID(ctx context.Context, orderID string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM seat_bookings
		 WHERE order_id = ? AND status = ? ORDER BY seat_number`,
		orderID, model.BookingStatusActive,
	)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ConfirmUpdate carries the fields written when a hold becomes a
// confirmed booking.
type ConfirmUpdate struct {
	PaymentVerified  bool
	PaymentStatus    string
	PaymentMethod    string
	GatewayOrderID   *string
	GatewayPaymentID *string
	GatewayAmount    *int64
	GatewayCurrency  *string
	NewExpiry        *time.Time // nil keeps the original expiry
}

// MarkConfirmed flips an order's live holds from temporary to
// confirmed booking and returns the number of rows updated.  Rows past
// their expiry are skipped: a lapsed lease already reads as available
// and must never get its window rewritten back to occupied.
func (r *BookingRepo) MarkConfirmed(ctx context.Context, orderID string, u ConfirmUpdate, now time.Time) (int64, error) {
	q := `UPDATE seat_bookings SET is_temporary = 0, payment_verified = ?,
	      payment_status = ?, payment_method = ?, gateway_order_id = ?,
	      gateway_payment_id = ?, gateway_amount = ?, gateway_currency = ?`
	args := []interface{}{u.PaymentVerified, u.PaymentStatus, u.PaymentMethod,
		u.GatewayOrderID, u.GatewayPaymentID, u.GatewayAmount, u.GatewayCurrency}
	if u.NewExpiry != nil {
		q += `, expires_at = ?`
		args = append(args, fmtTime(*u.NewExpiry))
	}
	q += ` WHERE order_id = ? AND status = ? AND expires_at > ?`
	args = append(args, orderID, model.BookingStatusActive, fmtTime(now))
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListExpiredActive returns active bookings whose expiry has passed.
// Used by the sweeper to pick the rows for its bulk update.
func (r *BookingRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM seat_bookings WHERE status = ? AND expires_at <= ?`,
		model.BookingStatusActive, fmtTime(now),
	)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// MarkExpired transitions the given booking ids to EXPIRED in one bulk
// update, releasing their seats.  Passing no ids is a no-op.
func (r *BookingRepo) MarkExpired(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, model.BookingStatusExpired)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE seat_bookings SET status = ?, active_seat = NULL
		 WHERE id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ForceExpireByOrder expires every active booking of an order
// regardless of its expiry timestamp.  Returns ErrBookingNotFound when
// the order has no active rows.
func (r *BookingRepo) ForceExpireByOrder(ctx context.Context, orderID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seat_bookings SET status = ?, active_seat = NULL
		 WHERE order_id = ? AND status = ?`,
		model.BookingStatusExpired, orderID, model.BookingStatusActive,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrBookingNotFound
	}
	return n, nil
}

// MarkCompleted settles every active booking of an order, releasing
// the seats.  Returns ErrBookingNotFound when nothing was active.
func (r *BookingRepo) MarkCompleted(ctx context.Context, orderID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seat_bookings SET status = ?, active_seat = NULL, payment_status = ?
		 WHERE order_id = ? AND status = ?`,
		model.BookingStatusCompleted, model.PaymentStatusCompleted,
		orderID, model.BookingStatusActive,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrBookingNotFound
	}
	return n, nil
}

// ExtendExpiry pushes the expiry of an order's live bookings to the
// given timestamp.  Lapsed rows are left alone for the sweeper; an
// extension must never resurrect a lease that already read as
// available.  Returns ErrBookingNotFound when nothing was live.
func (r *BookingRepo) ExtendExpiry(ctx context.Context, orderID string, newExpiry, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seat_bookings SET expires_at = ?
		 WHERE order_id = ? AND status = ? AND expires_at > ?`,
		fmtTime(newExpiry), orderID, model.BookingStatusActive, fmtTime(now),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrBookingNotFound
	}
	return n, nil
}

// StatsByStatus aggregates ledger counts in a single query.
func (r *BookingRepo) StatsByStatus(ctx context.Context) (model.BookingStats, error) {
	const q = `SELECT COUNT(*),
	       SUM(CASE WHEN status = 'ACTIVE' THEN 1 ELSE 0 END),
	       SUM(CASE WHEN status = 'EXPIRED' THEN 1 ELSE 0 END),
	       SUM(CASE WHEN status = 'COMPLETED' THEN 1 ELSE 0 END),
	       SUM(CASE WHEN payment_verified = 1 THEN 1 ELSE 0 END),
	       SUM(CASE WHEN payment_status = 'PENDING' THEN 1 ELSE 0 END),
	       SUM(CASE WHEN is_temporary = 1 AND status = 'ACTIVE' THEN 1 ELSE 0 END),
	       SUM(CASE WHEN payment_method = 'CASH' THEN 1 ELSE 0 END)
	       FROM seat_bookings`
	var s model.BookingStats
	var active, expired, completed, verified, pending, temporary, cash sql.NullInt64
	err := r.db.QueryRowContext(ctx, q).Scan(&s.Total, &active, &expired, &completed,
		&verified, &pending, &temporary, &cash)
	if err != nil {
		return model.BookingStats{}, err
	}
	// SUM over an empty table yields NULL on both backends.
	s.Active = int(active.Int64)
	s.Expired = int(expired.Int64)
	s.Completed = int(completed.Int64)
	s.PaymentVerified = int(verified.Int64)
	s.PendingPayment = int(pending.Int64)
	s.Temporary = int(temporary.Int64)
	s.Cash = int(cash.Int64)
	return s, nil
}

// ListPage returns a page of bookings ordered newest first, optionally
// filtered by status, along with the total row count for pagination.
func (r *BookingRepo) ListPage(ctx context.Context, page, limit int, status string) ([]model.Booking, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	where := ""
	countArgs := []interface{}{}
	if status != "" {
		where = ` WHERE status = ?`
		countArgs = append(countArgs, status)
	}
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seat_bookings`+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args := append(countArgs, limit, (page-1)*limit)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM seat_bookings`+where+
			` ORDER BY booked_at DESC, id DESC LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectBookings(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// AuditExclusivity returns seat numbers that currently have more than
// one live active booking.  Given the atomic insert contract this set
// must always be empty; a non-empty result is a data-integrity bug,
// not a state to resolve silently.
func (r *BookingRepo) AuditExclusivity(ctx context.Context, now time.Time) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_number FROM seat_bookings
		 WHERE status = ? AND expires_at > ?
		 GROUP BY seat_number HAVING COUNT(*) > 1`,
		model.BookingStatusActive, fmtTime(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}
