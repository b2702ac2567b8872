package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/seatwise/show-reservation/internal/model"
)

// seatsPerRow controls bulk seat generation when a show is created:
// rows are labeled A, B, C, ... with ten seats each, matching the
// layout the seat-map UI expects.
const seatsPerRow = 10

// ShowRepo provides data access to the shows table and owns the
// transactional creation of a show together with its seat pool.
type ShowRepo struct {
	db    *sql.DB
	seats *SeatRepo
}

// NewShowRepo returns a new ShowRepo.  The SeatRepo is used for bulk
// seat generation inside the creation transaction.
func NewShowRepo(db *sql.DB, seats *SeatRepo) *ShowRepo {
	return &ShowRepo{db: db, seats: seats}
}

// Create inserts a show and bulk-generates its seats in one
// transaction, all initialized to AVAILABLE.  The generated ID is
// populated on the passed show.
func (r *ShowRepo) Create(ctx context.Context, show *model.Show) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const ins = `INSERT INTO shows (title, description, venue_hall, starts_at, total_seats, price_cents)
	             VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins,
		show.Title, show.Description, show.VenueHall,
		show.StartsAt.UTC().Format("2006-01-02 15:04:05"),
		show.TotalSeats, show.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	show.ID = uint64(id)

	seats := generateSeats(show.ID, show.TotalSeats)
	if err := r.seats.CreateBulkTx(ctx, tx, seats); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// generateSeats lays out totalSeats seats ten per row with row labels
// A, B, C, ...; overflow rows past Z are labeled Row27, Row28, ...
func generateSeats(showID uint64, totalSeats uint32) []model.Seat {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	seats := make([]model.Seat, 0, totalSeats)
	row := 0
	for uint32(len(seats)) < totalSeats {
		label := ""
		if row < len(alphabet) {
			label = string(alphabet[row])
		} else {
			label = "Row" + strconv.Itoa(row+1)
		}
		for n := uint32(1); n <= seatsPerRow && uint32(len(seats)) < totalSeats; n++ {
			seats = append(seats, model.Seat{ShowID: showID, RowLabel: label, SeatNumber: n})
		}
		row++
	}
	return seats
}

// GetByID returns a show by ID.  ErrShowNotFound is returned when no
// row matches.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	const q = `SELECT id, title, description, venue_hall, starts_at, total_seats, price_cents, created_at, updated_at
	           FROM shows WHERE id = ?`
	var s model.Show
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Title, &desc, &s.VenueHall, &s.StartsAt,
		&s.TotalSeats, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	if desc.Valid {
		s.Description = desc.String
	}
	return &s, nil
}

// List returns all shows ordered by start time together with their
// current AVAILABLE seat counts.  The count comes from a grouped
// LEFT JOIN so the whole listing is one query; it is eventually
// consistent with respect to in-flight bookings.
func (r *ShowRepo) List(ctx context.Context) ([]model.ShowWithAvailability, error) {
	const q = `SELECT s.id, s.title, s.description, s.venue_hall, s.starts_at,
	                  s.total_seats, s.price_cents,
	                  COUNT(CASE WHEN se.status = 'AVAILABLE' THEN 1 END)
	           FROM shows s
	           LEFT JOIN seats se ON se.show_id = s.id
	           GROUP BY s.id, s.title, s.description, s.venue_hall, s.starts_at, s.total_seats, s.price_cents
	           ORDER BY s.starts_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	shows := make([]model.ShowWithAvailability, 0)
	for rows.Next() {
		var s model.ShowWithAvailability
		var desc sql.NullString
		if err := rows.Scan(&s.ID, &s.Title, &desc, &s.VenueHall, &s.StartsAt,
			&s.TotalSeats, &s.PriceCents, &s.AvailableSeats); err != nil {
			return nil, err
		}
		if desc.Valid {
			s.Description = desc.String
		}
		shows = append(shows, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shows, nil
}
