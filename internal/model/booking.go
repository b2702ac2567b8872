package model

import "time"

// Booking status values.  Only CONFIRMED is produced by the
// reservation engine; PENDING, FAILED and EXPIRED are reserved for a
// hold/payment workflow that is not part of this service.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingFailed    = "FAILED"
	BookingExpired   = "EXPIRED"
)

// Booking is the durable record of a successful reservation attempt.
// Its Token is minted before any seat is touched and is the
// correlation key for the whole attempt; seats booked by the attempt
// carry the same token.  A booking is written exactly once and never
// mutated afterwards.
//
// Fields:
//  Token            – unique token minted at attempt start; primary key.
//  UserID           – user who made the booking.
//  ShowID           – show being booked.
//  Status           – always CONFIRMED for persisted bookings.
//  TotalAmountCents – seat price times the number of seats.
//  IdempotencyKey   – optional caller-supplied key; unique per user.
//  SeatIDs          – seats owned by this booking, in request order.
//  CreatedAt        – creation timestamp.
type Booking struct {
	Token            string    `json:"token"`              // bookings.token
	UserID           uint64    `json:"user_id"`            // bookings.user_id
	ShowID           uint64    `json:"show_id"`            // bookings.show_id
	Status           string    `json:"status"`             // bookings.status
	TotalAmountCents uint32    `json:"total_amount_cents"` // bookings.total_amount_cents
	IdempotencyKey   *string   `json:"-"`                  // bookings.idempotency_key (nullable)
	SeatIDs          []uint64  `json:"seat_ids"`           // booking_seats.seat_id
	CreatedAt        time.Time `json:"created_at"`         // bookings.created_at
}
