package model

import "time"

// Seat status values.  LOCKED is reserved for a future hold workflow;
// the reservation engine only ever moves seats between AVAILABLE and
// BOOKED.
const (
	SeatAvailable = "AVAILABLE"
	SeatLocked    = "LOCKED"
	SeatBooked    = "BOOKED"
)

// Seat is one allocatable unit within a show.  Seats are created in
// bulk when the show is created and are never deleted during normal
// operation.  BookingToken is non-nil exactly when Status is BOOKED:
// it carries the token of the reservation attempt that owns the seat.
//
// Fields:
//  ID           – primary key identifier.
//  ShowID       – show this seat belongs to.
//  RowLabel     – row letter (A, B, C, ...).
//  SeatNumber   – position within the row; (ShowID, RowLabel, SeatNumber)
//                 is unique.
//  Status       – AVAILABLE, LOCKED or BOOKED.
//  BookingToken – token of the owning booking, nil while AVAILABLE.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Seat struct {
	ID           uint64    `json:"id"`          // seats.id
	ShowID       uint64    `json:"show_id"`     // seats.show_id
	RowLabel     string    `json:"row_label"`   // seats.row_label
	SeatNumber   uint32    `json:"seat_number"` // seats.seat_number
	Status       string    `json:"status"`      // seats.status
	BookingToken *string   `json:"-"`           // seats.booking_token (nullable)
	CreatedAt    time.Time `json:"-"`           // seats.created_at
	UpdatedAt    time.Time `json:"-"`           // seats.updated_at
}
