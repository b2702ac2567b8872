// Package repository implements MySQL persistence for shows, seats,
// bookings and users.  Sentinel errors defined here let handlers and
// the engine distinguish failure scenarios without inspecting driver
// errors.
package repository

import "errors"

// ErrShowNotFound is returned when a show lookup matches no row.
var ErrShowNotFound = errors.New("show not found")

// ErrDuplicateBooking is returned when a booking insert collides with
// an existing token or idempotency key.  The ledger is append-once:
// callers must treat this as "already recorded", never retry the
// insert with the same token.
var ErrDuplicateBooking = errors.New("booking already exists")

// ErrEmailTaken is returned when registering with an email that
// already has an account.
var ErrEmailTaken = errors.New("email already registered")

// ErrBookingNotFound is returned when a booking lookup matches no row.
var ErrBookingNotFound = errors.New("booking not found")
