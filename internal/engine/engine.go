// Package engine implements the seat reservation protocol.  Any number
// of Reserve calls may run concurrently from independent request
// workers; the engine holds no in-process locks and coordinates solely
// through the seat store's conditional update, which is the single
// linearization point of the protocol.
package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"github.com/seatwise/show-reservation/internal/model"
)

// Sentinel errors returned by Reserve.  Both are expected outcomes the
// caller must be prepared to surface to the end user; neither indicates
// corruption.
var (
	// ErrSeatsUnavailable is returned when one or more requested seats
	// were not AVAILABLE at acquire time, either because a concurrent
	// attempt won them or because the seat does not belong to the show.
	ErrSeatsUnavailable = errors.New("one or more requested seats are no longer available")
	// ErrNoSeats is returned when the request contains no usable seat IDs.
	ErrNoSeats = errors.New("no seats requested")
)

// SeatStore is the durable store of seat records.  BookAvailable must
// be atomic and isolated across all concurrent callers touching
// overlapping seat IDs: no seat may be observed or mutated by another
// attempt between the status match and the set.
type SeatStore interface {
	// BookAvailable sets status=BOOKED and booking_token=token on every
	// seat whose ID is in seatIDs, whose show matches showID and whose
	// current status is AVAILABLE, in one indivisible operation.  It
	// returns the number of seats actually changed.
	BookAvailable(ctx context.Context, showID uint64, seatIDs []uint64, token string) (int64, error)
	// ReleaseByToken reverts every seat carrying the given token back to
	// AVAILABLE with no token.  Seats captured by other attempts carry
	// different tokens and are never touched.
	ReleaseByToken(ctx context.Context, token string) (int64, error)
	// CountAvailable returns the number of AVAILABLE seats for a show.
	CountAvailable(ctx context.Context, showID uint64) (int64, error)
}

// BookingLedger is the append-only store of confirmed bookings.
type BookingLedger interface {
	// Append persists a booking exactly once.  Appending a token that is
	// already present must fail without creating a second record.
	Append(ctx context.Context, b *model.Booking) error
	// FindByIdempotencyKey returns the booking a user previously created
	// with the given idempotency key, or nil when none exists.
	FindByIdempotencyKey(ctx context.Context, userID uint64, key string) (*model.Booking, error)
}

// ShowCatalog resolves show records for the commit-time price lookup.
// GetByID's error for a missing show is propagated unchanged out of
// Reserve (after compensation), so callers can match it with errors.Is
// against whatever sentinel their catalog implementation defines.
type ShowCatalog interface {
	GetByID(ctx context.Context, showID uint64) (*model.Show, error)
}

// Engine orchestrates the atomic multi-seat acquisition protocol.  The
// store clients are injected at construction and owned by the caller;
// the engine itself keeps no other state and is safe for concurrent
// use.
type Engine struct {
	seats  SeatStore
	ledger BookingLedger
	shows  ShowCatalog
}

// New constructs an Engine.  All dependencies must be non-nil.
func New(seats SeatStore, ledger BookingLedger, shows ShowCatalog) *Engine {
	if seats == nil || ledger == nil || shows == nil {
		panic("nil dependency passed to engine.New")
	}
	return &Engine{seats: seats, ledger: ledger, shows: shows}
}

// ReserveRequest is the validated input to Reserve.  Handlers are
// responsible for parsing and validating identities before the engine
// runs; the engine only deduplicates the seat list, since duplicates
// in the input describe the same logical seat.
type ReserveRequest struct {
	ShowID         uint64
	SeatIDs        []uint64
	UserID         uint64
	IdempotencyKey string // optional; empty means no idempotency guarantee on retries
}

// Reserve executes one reservation attempt:
//
//  1. mint a fresh token for the attempt
//  2. conditionally book all requested seats that are still AVAILABLE
//  3. verify that every requested seat was captured
//  4. on a partial or total miss, release the seats this attempt
//     captured and fail with ErrSeatsUnavailable
//  5. otherwise look up the show price, compute the total and append
//     the booking to the ledger
//
// Losing attempts discover the loss only after the conditional write
// and repair it immediately; between steps 2 and 4 their seats are
// transiently BOOKED under a token that never becomes a booking.  That
// window is bounded and safe: no other attempt can be granted those
// seats while it lasts.
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (*model.Booking, error) {
	seatIDs := dedupe(req.SeatIDs)
	if len(seatIDs) == 0 {
		return nil, ErrNoSeats
	}

	// A retried request carrying the same idempotency key returns the
	// booking the original attempt created instead of booking twice.
	if req.IdempotencyKey != "" {
		prev, err := e.ledger.FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if prev != nil {
			return prev, nil
		}
	}

	token, err := mintToken()
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}

	matched, err := e.seats.BookAvailable(ctx, req.ShowID, seatIDs, token)
	if err != nil {
		return nil, fmt.Errorf("conditional acquire: %w", err)
	}
	if matched != int64(len(seatIDs)) {
		// Some seats were already BOOKED by a concurrent winner (or do
		// not exist in this show).  Undo only what this attempt
		// captured; the token never matches anyone else's seats.
		e.compensate(ctx, token)
		return nil, ErrSeatsUnavailable
	}

	show, err := e.shows.GetByID(ctx, req.ShowID)
	if err != nil {
		// The seats are BOOKED under our token but there is no show to
		// price them against.  Compensation must still run so we do not
		// leak booked seats with no backing booking.  The catalog error
		// (not-found or transient) is passed through for the handler to
		// translate.
		e.compensate(ctx, token)
		return nil, err
	}

	b := &model.Booking{
		Token:            token,
		UserID:           req.UserID,
		ShowID:           req.ShowID,
		Status:           model.BookingConfirmed,
		TotalAmountCents: show.PriceCents * uint32(len(seatIDs)),
		SeatIDs:          seatIDs,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		b.IdempotencyKey = &key
	}
	if err := e.ledger.Append(ctx, b); err != nil {
		e.compensate(ctx, token)
		return nil, fmt.Errorf("ledger append: %w", err)
	}
	return b, nil
}

// Availability returns the number of AVAILABLE seats for a show.  It
// is a pure read and may undercount seats that are mid-compensation in
// a concurrent losing attempt.
func (e *Engine) Availability(ctx context.Context, showID uint64) (int64, error) {
	return e.seats.CountAvailable(ctx, showID)
}

// compensate reverts every seat captured under token.  Compensation is
// best effort: if the revert itself fails the seats stay incorrectly
// BOOKED, which loses inventory until an operator intervenes but can
// never double-book, so the failure is logged loudly instead of
// propagated.
func (e *Engine) compensate(ctx context.Context, token string) {
	if _, err := e.seats.ReleaseByToken(ctx, token); err != nil {
		log.Printf("engine: CRITICAL: compensation failed for token %s, seats remain booked without a booking: %v", token, err)
	}
}

// mintToken returns a fresh 64-character hex token from crypto/rand.
// 32 random bytes make a collision with any other attempt's token
// cryptographically negligible; tokens are never reused.
func mintToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// dedupe returns the unique, non-zero seat IDs in input order.
func dedupe(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
