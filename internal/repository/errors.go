// Package repository implements the durable seat ledger.  This file
// defines the error types shared with higher layers.  Sentinel values
// let handlers map failures to HTTP statuses with errors.Is, while
// SeatUnavailableError carries the conflicting seat numbers so the
// client can re-poll and pick different seats.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// ErrBookingNotFound is returned when an operation references an
// order id with no matching booking rows.  Handlers should translate
// this into an HTTP 404 response.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSeatUnavailable is the sentinel matched by errors.Is for any
// SeatUnavailableError.  Handlers should translate it into HTTP 409.
var ErrSeatUnavailable = errors.New("seat unavailable")

// SeatUnavailableError reports which requested seats are already under
// an active booking.  The whole batch is rejected; nothing was written.
type SeatUnavailableError struct {
	Seats []int
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.Seats)
}

// Is lets errors.Is(err, ErrSeatUnavailable) match.
func (e *SeatUnavailableError) Is(target error) bool {
	return target == ErrSeatUnavailable
}

// isUniqueViolation reports whether the driver error is a unique
// constraint conflict on either supported backend.  This is the race
// backstop: two concurrent inserts for one seat both pass the
// availability pre-check, but only one survives the uq_active_seat
// index.
func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062 // ER_DUP_ENTRY
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
