package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatwise/show-reservation/internal/model"
)

// === In-memory fakes ===
//
// fakeSeatStore serializes its conditional update under a mutex, which
// reproduces the store guarantee the engine relies on: the match and
// the set happen indivisibly with respect to concurrent callers.

type fakeSeat struct {
	showID uint64
	status string
	token  string
}

type fakeSeatStore struct {
	mu    sync.Mutex
	seats map[uint64]*fakeSeat

	failRelease bool // force compensation failures
}

func newFakeSeatStore() *fakeSeatStore {
	return &fakeSeatStore{seats: make(map[uint64]*fakeSeat)}
}

func (s *fakeSeatStore) addSeats(showID uint64, ids ...uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.seats[id] = &fakeSeat{showID: showID, status: model.SeatAvailable}
	}
}

func (s *fakeSeatStore) BookAvailable(_ context.Context, showID uint64, seatIDs []uint64, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched int64
	for _, id := range seatIDs {
		seat, ok := s.seats[id]
		if !ok || seat.showID != showID || seat.status != model.SeatAvailable {
			continue
		}
		seat.status = model.SeatBooked
		seat.token = token
		matched++
	}
	return matched, nil
}

func (s *fakeSeatStore) ReleaseByToken(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRelease {
		return 0, errors.New("store unavailable")
	}
	var released int64
	for _, seat := range s.seats {
		if seat.token == token {
			seat.status = model.SeatAvailable
			seat.token = ""
			released++
		}
	}
	return released, nil
}

func (s *fakeSeatStore) CountAvailable(_ context.Context, showID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, seat := range s.seats {
		if seat.showID == showID && seat.status == model.SeatAvailable {
			n++
		}
	}
	return n, nil
}

func (s *fakeSeatStore) seatState(id uint64) (status, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat := s.seats[id]
	return seat.status, seat.token
}

type fakeLedger struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{bookings: make(map[string]*model.Booking)}
}

func (l *fakeLedger) Append(_ context.Context, b *model.Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.bookings[b.Token]; exists {
		return fmt.Errorf("duplicate booking token %s", b.Token)
	}
	cp := *b
	l.bookings[b.Token] = &cp
	return nil
}

func (l *fakeLedger) FindByIdempotencyKey(_ context.Context, userID uint64, key string) (*model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.bookings {
		if b.UserID == userID && b.IdempotencyKey != nil && *b.IdempotencyKey == key {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bookings)
}

// errShowMissing is the fake catalog's not-found sentinel; Reserve
// must propagate it unchanged after compensating.
var errShowMissing = errors.New("show missing")

type fakeCatalog struct {
	mu    sync.Mutex
	shows map[uint64]*model.Show
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{shows: make(map[uint64]*model.Show)}
}

func (c *fakeCatalog) addShow(id uint64, priceCents uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shows[id] = &model.Show{ID: id, PriceCents: priceCents}
}

func (c *fakeCatalog) GetByID(_ context.Context, id uint64) (*model.Show, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	show, ok := c.shows[id]
	if !ok {
		return nil, errShowMissing
	}
	cp := *show
	return &cp, nil
}

func setup() (*Engine, *fakeSeatStore, *fakeLedger, *fakeCatalog) {
	seats := newFakeSeatStore()
	ledger := newFakeLedger()
	catalog := newFakeCatalog()
	return New(seats, ledger, catalog), seats, ledger, catalog
}

// === Tests ===

func TestReserveAllSeats(t *testing.T) {
	eng, seats, ledger, catalog := setup()
	catalog.addShow(1, 1500)
	seats.addSeats(1, 10, 11, 12)

	b, err := eng.Reserve(context.Background(), ReserveRequest{
		ShowID:  1,
		SeatIDs: []uint64{10, 11, 12},
		UserID:  7,
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, uint32(4500), b.TotalAmountCents)
	assert.Equal(t, []uint64{10, 11, 12}, b.SeatIDs)
	assert.Len(t, b.Token, 64)
	assert.Equal(t, 1, ledger.count())

	for _, id := range []uint64{10, 11, 12} {
		status, token := seats.seatState(id)
		assert.Equal(t, model.SeatBooked, status)
		assert.Equal(t, b.Token, token)
	}

	avail, err := eng.Availability(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), avail)
}

func TestReserveDuplicateSeatIDsCountOnce(t *testing.T) {
	eng, seats, _, catalog := setup()
	catalog.addShow(1, 1000)
	seats.addSeats(1, 10, 11)

	b, err := eng.Reserve(context.Background(), ReserveRequest{
		ShowID:  1,
		SeatIDs: []uint64{10, 10, 11, 0},
		UserID:  7,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 11}, b.SeatIDs)
	assert.Equal(t, uint32(2000), b.TotalAmountCents)
}

func TestReserveEmptyRequest(t *testing.T) {
	eng, _, _, _ := setup()
	_, err := eng.Reserve(context.Background(), ReserveRequest{ShowID: 1, UserID: 7})
	assert.ErrorIs(t, err, ErrNoSeats)

	_, err = eng.Reserve(context.Background(), ReserveRequest{ShowID: 1, SeatIDs: []uint64{0}, UserID: 7})
	assert.ErrorIs(t, err, ErrNoSeats)
}

// Two concurrent attempts on a single-seat show: exactly one wins, the
// loser gets a conflict, and availability ends at zero.
func TestReserveSingleSeatTwoCallers(t *testing.T) {
	eng, seats, ledger, catalog := setup()
	catalog.addShow(1, 2000)
	seats.addSeats(1, 10)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = eng.Reserve(context.Background(), ReserveRequest{
				ShowID:  1,
				SeatIDs: []uint64{10},
				UserID:  uint64(i + 1),
			})
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSeatsUnavailable):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 1, ledger.count())

	avail, err := eng.Availability(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), avail)
}

// A partially available request must fail as a whole and leave the
// untouched seat AVAILABLE and the previously booked seat under its
// original owner's token.
func TestReserveConflictLeavesStoreIntact(t *testing.T) {
	eng, seats, ledger, catalog := setup()
	catalog.addShow(1, 1000)
	seats.addSeats(1, 10, 11)

	winner, err := eng.Reserve(context.Background(), ReserveRequest{
		ShowID: 1, SeatIDs: []uint64{10}, UserID: 1,
	})
	require.NoError(t, err)

	_, err = eng.Reserve(context.Background(), ReserveRequest{
		ShowID: 1, SeatIDs: []uint64{10, 11}, UserID: 2,
	})
	assert.ErrorIs(t, err, ErrSeatsUnavailable)
	assert.Equal(t, 1, ledger.count())

	status, token := seats.seatState(10)
	assert.Equal(t, model.SeatBooked, status)
	assert.Equal(t, winner.Token, token)

	status, token = seats.seatState(11)
	assert.Equal(t, model.SeatAvailable, status)
	assert.Empty(t, token)
}

// Seats belonging to another show never match the conditional update,
// so the whole attempt conflicts with no partial commit.
func TestReserveSeatFromOtherShow(t *testing.T) {
	eng, seats, ledger, catalog := setup()
	catalog.addShow(1, 1000)
	catalog.addShow(2, 1000)
	seats.addSeats(1, 10)
	seats.addSeats(2, 20)

	_, err := eng.Reserve(context.Background(), ReserveRequest{
		ShowID: 1, SeatIDs: []uint64{10, 20}, UserID: 1,
	})
	assert.ErrorIs(t, err, ErrSeatsUnavailable)
	assert.Equal(t, 0, ledger.count())

	status, _ := seats.seatState(10)
	assert.Equal(t, model.SeatAvailable, status)
	status, token := seats.seatState(20)
	assert.Equal(t, model.SeatAvailable, status)
	assert.Empty(t, token)
}

// The show disappearing between acquire and commit must still release
// the captured seats before reporting not found.
func TestReserveShowGoneCompensates(t *testing.T) {
	eng, seats, ledger, _ := setup()
	seats.addSeats(1, 10, 11)

	_, err := eng.Reserve(context.Background(), ReserveRequest{
		ShowID: 1, SeatIDs: []uint64{10, 11}, UserID: 1,
	})
	assert.ErrorIs(t, err, errShowMissing)
	assert.Equal(t, 0, ledger.count())

	for _, id := range []uint64{10, 11} {
		status, token := seats.seatState(id)
		assert.Equal(t, model.SeatAvailable, status)
		assert.Empty(t, token)
	}
}

// Hammer one show with many overlapping attempts: every seat is booked
// by at most one winner and the sum of won seats never exceeds the
// pool.
func TestReserveNoDoubleAllocation(t *testing.T) {
	eng, seats, ledger, catalog := setup()
	catalog.addShow(1, 500)
	const seatCount = 20
	ids := make([]uint64, 0, seatCount)
	for i := uint64(1); i <= seatCount; i++ {
		ids = append(ids, i)
	}
	seats.addSeats(1, ids...)

	const attempts = 50
	var wg sync.WaitGroup
	bookings := make([]*model.Booking, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// overlapping windows of 3 seats across the pool
			start := uint64(i%seatCount) + 1
			req := []uint64{start, start%seatCount + 1, (start+1)%seatCount + 1}
			b, err := eng.Reserve(context.Background(), ReserveRequest{
				ShowID: 1, SeatIDs: req, UserID: uint64(i + 1),
			})
			if err == nil {
				bookings[i] = b
			} else if !errors.Is(err, ErrSeatsUnavailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	owners := make(map[uint64]string)
	var bookedTotal, wins int
	for _, b := range bookings {
		if b == nil {
			continue
		}
		wins++
		for _, id := range b.SeatIDs {
			prev, taken := owners[id]
			require.Falsef(t, taken, "seat %d granted to both %s and %s", id, prev, b.Token)
			owners[id] = b.Token
		}
		bookedTotal += len(b.SeatIDs)
	}
	assert.LessOrEqual(t, bookedTotal, seatCount)

	avail, err := eng.Availability(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(seatCount-bookedTotal), avail)

	// every seat left in the store is either free or owned by a winner
	for _, id := range ids {
		status, token := seats.seatState(id)
		if status == model.SeatBooked {
			assert.Equal(t, owners[id], token)
		} else {
			assert.Empty(t, token)
		}
	}
	assert.Equal(t, wins, ledger.count())
}

func TestReserveIdempotencyKeyReplay(t *testing.T) {
	eng, seats, ledger, catalog := setup()
	catalog.addShow(1, 1000)
	seats.addSeats(1, 10, 11)

	first, err := eng.Reserve(context.Background(), ReserveRequest{
		ShowID: 1, SeatIDs: []uint64{10, 11}, UserID: 1, IdempotencyKey: "retry-abc",
	})
	require.NoError(t, err)

	// the retried request must return the original booking without
	// re-acquiring anything
	second, err := eng.Reserve(context.Background(), ReserveRequest{
		ShowID: 1, SeatIDs: []uint64{10, 11}, UserID: 1, IdempotencyKey: "retry-abc",
	})
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, 1, ledger.count())
}

func TestLedgerAppendIsIdempotent(t *testing.T) {
	ledger := newFakeLedger()
	b := &model.Booking{Token: "tok-1", UserID: 1, ShowID: 1, Status: model.BookingConfirmed}
	require.NoError(t, ledger.Append(context.Background(), b))
	assert.Error(t, ledger.Append(context.Background(), b))
	assert.Equal(t, 1, ledger.count())
}

// Compensation failure must not be returned to the caller as a second
// error; the conflict outcome stands and the inconsistency is logged.
func TestReserveConflictWithFailingCompensation(t *testing.T) {
	eng, seats, ledger, catalog := setup()
	catalog.addShow(1, 1000)
	seats.addSeats(1, 10)

	_, err := eng.Reserve(context.Background(), ReserveRequest{
		ShowID: 1, SeatIDs: []uint64{10}, UserID: 1,
	})
	require.NoError(t, err)

	seats.failRelease = true
	_, err = eng.Reserve(context.Background(), ReserveRequest{
		ShowID: 1, SeatIDs: []uint64{10, 11}, UserID: 2,
	})
	assert.ErrorIs(t, err, ErrSeatsUnavailable)
	assert.Equal(t, 1, ledger.count())
}
