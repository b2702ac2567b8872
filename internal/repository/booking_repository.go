package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/seatwise/show-reservation/internal/model"
)

// BookingRepo is the append-only booking ledger.  A booking and its
// seats are written in one transaction exactly once per successful
// reservation token; rows are never updated or deleted afterwards.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// mysqlDuplicateEntry is the server error code for unique key
// violations (ER_DUP_ENTRY).
const mysqlDuplicateEntry = 1062

// Append inserts a booking together with its booking_seats rows.  The
// token is the primary key and the (user_id, idempotency_key) pair is
// unique, so replaying the same token or key fails with
// ErrDuplicateBooking instead of creating a second record.
func (r *BookingRepo) Append(ctx context.Context, b *model.Booking) error {
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

	const ins = `INSERT INTO bookings (token, user_id, show_id, status, total_amount_cents, idempotency_key)
	             VALUES (?, ?, ?, ?, ?, ?)`
	var key interface{}
	if b.IdempotencyKey != nil {
		key = *b.IdempotencyKey
	}
	if _, err := tx.ExecContext(ctx, ins, b.Token, b.UserID, b.ShowID, b.Status, b.TotalAmountCents, key); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrDuplicateBooking
		}
		return err
	}

	if len(b.SeatIDs) > 0 {
		query := `INSERT INTO booking_seats (booking_token, seat_id) VALUES `
		args := make([]interface{}, 0, len(b.SeatIDs)*2)
		for i, sid := range b.SeatIDs {
			if i > 0 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, b.Token, sid)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// scanBooking reads one bookings row plus its seat IDs.
func (r *BookingRepo) scanBooking(ctx context.Context, row *sql.Row) (*model.Booking, error) {
	var b model.Booking
	var key sql.NullString
	if err := row.Scan(&b.Token, &b.UserID, &b.ShowID, &b.Status, &b.TotalAmountCents, &key, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if key.Valid {
		k := key.String
		b.IdempotencyKey = &k
	}
	seatIDs, err := r.seatIDs(ctx, b.Token)
	if err != nil {
		return nil, err
	}
	b.SeatIDs = seatIDs
	return &b, nil
}

func (r *BookingRepo) seatIDs(ctx context.Context, token string) ([]uint64, error) {
	const q = `SELECT seat_id FROM booking_seats WHERE booking_token = ? ORDER BY seat_id`
	rows, err := r.db.QueryContext(ctx, q, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const bookingCols = `token, user_id, show_id, status, total_amount_cents, idempotency_key, created_at`

// GetByToken returns a booking by its token, restricted to the owning
// user.  ErrBookingNotFound covers both "no such booking" and "someone
// else's booking" so the API does not leak token existence.
func (r *BookingRepo) GetByToken(ctx context.Context, token string, userID uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingCols + ` FROM bookings WHERE token = ? AND user_id = ?`
	return r.scanBooking(ctx, r.db.QueryRowContext(ctx, q, token, userID))
}

// FindByIdempotencyKey returns the booking the user previously created
// with the given key, or nil when none exists.
func (r *BookingRepo) FindByIdempotencyKey(ctx context.Context, userID uint64, key string) (*model.Booking, error) {
	q := `SELECT ` + bookingCols + ` FROM bookings WHERE user_id = ? AND idempotency_key = ?`
	b, err := r.scanBooking(ctx, r.db.QueryRowContext(ctx, q, userID, key))
	if errors.Is(err, ErrBookingNotFound) {
		return nil, nil
	}
	return b, err
}

// ListByUser returns all bookings of a user, newest first, with their
// seat IDs populated in one extra query.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	q := `SELECT ` + bookingCols + ` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	index := make(map[string]int)
	for rows.Next() {
		var b model.Booking
		var key sql.NullString
		if err := rows.Scan(&b.Token, &b.UserID, &b.ShowID, &b.Status, &b.TotalAmountCents, &key, &b.CreatedAt); err != nil {
			return nil, err
		}
		if key.Valid {
			k := key.String
			b.IdempotencyKey = &k
		}
		b.SeatIDs = []uint64{}
		index[b.Token] = len(bookings)
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return bookings, nil
	}
	// Populate seats for all bookings in a single query
	tokens := make([]interface{}, 0, len(bookings))
	placeholders := make([]string, 0, len(bookings))
	for _, b := range bookings {
		tokens = append(tokens, b.Token)
		placeholders = append(placeholders, "?")
	}
	seatQ := `SELECT booking_token, seat_id FROM booking_seats
	          WHERE booking_token IN (` + strings.Join(placeholders, ",") + `)
	          ORDER BY booking_token, seat_id`
	srows, err := r.db.QueryContext(ctx, seatQ, tokens...)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var token string
		var sid uint64
		if err := srows.Scan(&token, &sid); err != nil {
			return nil, err
		}
		if idx, ok := index[token]; ok {
			bookings[idx].SeatIDs = append(bookings[idx].SeatIDs, sid)
		}
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
