// Package metrics exposes Prometheus counters for the seat booking
// core.  Everything is registered on the default registry and served
// by the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HoldsCreated counts seats successfully placed under a hold.
	HoldsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seatbooking_holds_created_total",
		Help: "Total number of seat holds created",
	})

	// HoldConflicts counts hold batches rejected because a requested
	// seat was already under an active booking.
	HoldConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seatbooking_hold_conflicts_total",
		Help: "Total number of hold requests rejected due to seat conflicts",
	})

	// Confirmations counts holds promoted to confirmed bookings,
	// labelled by payment method.
	Confirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seatbooking_confirmations_total",
		Help: "Total number of bookings confirmed",
	}, []string{"method"})

	// PaymentVerificationFailures counts rejected gateway signatures.
	PaymentVerificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seatbooking_payment_verification_failures_total",
		Help: "Total number of failed gateway signature verifications",
	})

	// SweepRuns counts sweeper cycles, labelled by outcome.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seatbooking_sweep_runs_total",
		Help: "Total number of reclamation sweeps",
	}, []string{"outcome"})

	// BookingsExpired counts bookings reclaimed by the sweeper or
	// force-expired by an admin.
	BookingsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seatbooking_bookings_expired_total",
		Help: "Total number of bookings transitioned to expired",
	})
)
