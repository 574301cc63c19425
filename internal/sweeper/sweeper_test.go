package sweeper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktap/seat-booking/internal/database"
	"github.com/quicktap/seat-booking/internal/model"
	"github.com/quicktap/seat-booking/internal/repository"
)

func newTestRepo(t *testing.T) *repository.BookingRepo {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "bookings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, "sqlite3"))
	return repository.NewBookingRepo(db)
}

func insertHold(t *testing.T, r *repository.BookingRepo, seat int, orderID string, expiresAt time.Time) {
	t.Helper()
	ctx := context.Background()
	tx, err := r.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	b := &model.Booking{
		SeatNumber:    seat,
		OrderID:       orderID,
		Status:        model.BookingStatusActive,
		IsTemporary:   true,
		PaymentStatus: model.PaymentStatusPending,
		PaymentMethod: model.PaymentMethodGateway,
		BookedAt:      time.Now().UTC().Add(-time.Hour),
		ExpiresAt:     expiresAt,
	}
	require.NoError(t, r.InsertHoldsTx(ctx, tx, []*model.Booking{b}))
	require.NoError(t, tx.Commit())
}

func TestSweepReclaimsLapsedBookings(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insertHold(t, r, 1, "order_lapsed", now.Add(-time.Minute))
	insertHold(t, r, 2, "order_lapsed", now.Add(-time.Minute))
	insertHold(t, r, 3, "order_live", now.Add(30*time.Minute))

	s := New(r, nil, time.Minute, zerolog.Nop())
	require.NoError(t, s.Sweep(ctx))

	stats, err := r.StatsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Expired)
	assert.Equal(t, 1, stats.Active)

	// the live booking is untouched
	b, err := r.FindActiveBySeat(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "order_live", b.OrderID)
}

func TestSweepOnEmptyLedger(t *testing.T) {
	r := newTestRepo(t)
	s := New(r, nil, time.Minute, zerolog.Nop())
	require.NoError(t, s.Sweep(context.Background()))
}

func TestSweepIsIdempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	insertHold(t, r, 1, "order_lapsed", time.Now().UTC().Add(-time.Minute))

	s := New(r, nil, time.Minute, zerolog.Nop())
	require.NoError(t, s.Sweep(ctx))
	require.NoError(t, s.Sweep(ctx))

	stats, err := r.StatsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, 0, stats.Active)
}
