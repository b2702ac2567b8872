package model

import "time"

// Show represents a scheduled performance with a fixed pool of seats
// sharing a single per-seat price.  Seats are generated in bulk when
// the show is created.
//
// Fields:
//  ID             – primary key identifier.
//  Title          – show title.
//  Description    – optional longer description.
//  VenueHall      – free-form hall name.
//  StartsAt       – when the show begins.
//  TotalSeats     – number of seats generated for the show.
//  PriceCents     – price in cents for every seat of this show.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Show struct {
	ID          uint64    `json:"id"`          // shows.id
	Title       string    `json:"title"`       // shows.title
	Description string    `json:"description"` // shows.description
	VenueHall   string    `json:"venue_hall"`  // shows.venue_hall
	StartsAt    time.Time `json:"starts_at"`   // shows.starts_at
	TotalSeats  uint32    `json:"total_seats"` // shows.total_seats
	PriceCents  uint32    `json:"price_cents"` // shows.price_cents
	CreatedAt   time.Time `json:"-"`           // shows.created_at
	UpdatedAt   time.Time `json:"-"`           // shows.updated_at
}

// ShowWithAvailability pairs a show with its current count of
// AVAILABLE seats for list endpoints.  The count is eventually
// consistent with respect to in-flight bookings.
type ShowWithAvailability struct {
	Show
	AvailableSeats int64 `json:"available_seats"`
}
