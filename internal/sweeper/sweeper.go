// Package sweeper implements the background reclamation loop that
// returns lapsed seats to the available pool.  The lease manager's
// lazy expiry check already guarantees correctness; the sweeper keeps
// the stored state tidy so admin listings and stats reflect reality
// without waiting for a read to trigger cleanup.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/quicktap/seat-booking/internal/metrics"
	"github.com/quicktap/seat-booking/internal/queue"
	"github.com/quicktap/seat-booking/internal/repository"
)

// Sweeper periodically expires active bookings whose expiry has
// passed.  It is stateless between runs; everything it needs comes
// from the ledger.
type Sweeper struct {
	repo     *repository.BookingRepo
	events   *queue.Publisher // may be nil
	interval time.Duration
	log      zerolog.Logger
}

// New returns a Sweeper.  interval defaults to five minutes when
// non-positive.
func New(repo *repository.BookingRepo, events *queue.Publisher, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{repo: repo, events: events, interval: interval, log: log}
}

// Run executes sweep cycles on a fixed interval until the context is
// cancelled.  A failed sweep is logged and retried on the next tick;
// it never takes the process down.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("sweeper: started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sweeper: stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				// transient storage errors self-heal: the lazy expiry
				// check keeps availability correct until the next tick
				metrics.SweepRuns.WithLabelValues("error").Inc()
				s.log.Warn().Err(err).Msg("sweeper: sweep failed, skipping cycle")
			}
		}
	}
}

// Sweep runs a single reclamation cycle: collect lapsed active
// bookings, expire them in one bulk update and publish the released
// seats.  It also audits the exclusivity invariant and logs loudly if
// the ledger ever holds two live bookings for one seat.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := time.Now().UTC()
	lapsed, err := s.repo.ListExpiredActive(ctx, now)
	if err != nil {
		return err
	}
	if len(lapsed) > 0 {
		ids := make([]uint64, 0, len(lapsed))
		seats := make([]int, 0, len(lapsed))
		orders := make(map[string]struct{}, len(lapsed))
		for _, b := range lapsed {
			ids = append(ids, b.ID)
			seats = append(seats, b.SeatNumber)
			orders[b.OrderID] = struct{}{}
		}
		n, err := s.repo.MarkExpired(ctx, ids)
		if err != nil {
			return err
		}
		metrics.BookingsExpired.Add(float64(n))
		s.log.Info().Int64("expired", n).Ints("seats", seats).Msg("sweeper: reclaimed lapsed bookings")

		if s.events != nil {
			orderIDs := make([]string, 0, len(orders))
			for o := range orders {
				orderIDs = append(orderIDs, o)
			}
			_ = s.events.PublishSeatsReleased(ctx, queue.SeatsReleasedEvent{
				Seats:      seats,
				OrderIDs:   orderIDs,
				Reason:     "expired",
				ReleasedAt: now.Format(time.RFC3339),
			})
		}
	}

	// Structurally impossible given the atomic insert contract, so a
	// hit here is a data-integrity bug to surface, not to repair.
	if seats, err := s.repo.AuditExclusivity(ctx, now); err == nil && len(seats) > 0 {
		s.log.Error().Ints("seats", seats).Msg("sweeper: EXCLUSIVITY VIOLATION, multiple live bookings per seat")
	}

	metrics.SweepRuns.WithLabelValues("ok").Inc()
	return nil
}
