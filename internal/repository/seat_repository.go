package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/seatwise/show-reservation/internal/model"
)

// SeatRepo provides data access to the seats table.  Seats are only
// ever mutated through the two conditional updates below; there are no
// unconditional status writes and no read-then-write sequences outside
// a single statement.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the given database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// CreateBulkTx inserts multiple seats in one statement within the
// provided transaction.  Status defaults to AVAILABLE in the schema;
// only show_id, row_label, seat_number and status are inserted.
// Passing an empty slice has no effect and returns nil.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (show_id, row_label, seat_number, status) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, s.ShowID, s.RowLabel, s.SeatNumber, model.SeatAvailable)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// BookAvailable performs the conditional multi-row acquire: every seat
// in seatIDs that belongs to showID and is currently AVAILABLE is set
// to BOOKED and stamped with the attempt's token, in a single UPDATE.
// MySQL executes the statement with row-level atomicity, so no seat
// can be observed or changed by a concurrent caller between the status
// match and the set.  The returned count is the number of rows
// actually changed; a count short of len(seatIDs) means some seats
// were already taken or do not exist in this show.
func (r *SeatRepo) BookAvailable(ctx context.Context, showID uint64, seatIDs []uint64, token string) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	placeholders := make([]string, 0, len(seatIDs))
	args := make([]interface{}, 0, len(seatIDs)+3)
	args = append(args, model.SeatBooked, token)
	for _, id := range seatIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	args = append(args, showID)
	query := `UPDATE seats SET status = ?, booking_token = ?
	          WHERE id IN (` + strings.Join(placeholders, ",") + `)
	            AND show_id = ?
	            AND status = 'AVAILABLE'`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReleaseByToken reverts every seat carrying the given token back to
// AVAILABLE and clears the token.  Seats captured by concurrent
// attempts carry different tokens and never match, so compensation can
// only undo this attempt's own writes.
func (r *SeatRepo) ReleaseByToken(ctx context.Context, token string) (int64, error) {
	const q = `UPDATE seats SET status = 'AVAILABLE', booking_token = NULL WHERE booking_token = ?`
	res, err := r.db.ExecContext(ctx, q, token)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountAvailable returns the number of AVAILABLE seats for a show in a
// single indexed COUNT.
func (r *SeatRepo) CountAvailable(ctx context.Context, showID uint64) (int64, error) {
	const q = `SELECT COUNT(*) FROM seats WHERE show_id = ? AND status = 'AVAILABLE'`
	var n int64
	if err := r.db.QueryRowContext(ctx, q, showID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListByShow returns all seats of a show ordered by row and number for
// seat-map rendering.  An empty slice means the show has no seats (or
// does not exist; callers decide how to report that).
func (r *SeatRepo) ListByShow(ctx context.Context, showID uint64) ([]model.Seat, error) {
	const q = `SELECT id, show_id, row_label, seat_number, status
	           FROM seats WHERE show_id = ?
	           ORDER BY row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ShowID, &s.RowLabel, &s.SeatNumber, &s.Status); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}
