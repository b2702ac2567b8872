// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a reservation attempt
// commits.  It carries enough information for downstream consumers to
// log, notify or feed analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingToken     string   `json:"booking_token"`
	UserID           uint64   `json:"user_id"`
	ShowID           uint64   `json:"show_id"`
	ShowTitle        string   `json:"show_title"`
	VenueHall        string   `json:"venue_hall"`
	SeatLabels       []string `json:"seats"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
	ConfirmedAt      string   `json:"confirmed_at"`
}
