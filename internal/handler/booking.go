package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/seatwise/show-reservation/internal/cache"
	"github.com/seatwise/show-reservation/internal/engine"
	"github.com/seatwise/show-reservation/internal/model"
	"github.com/seatwise/show-reservation/internal/queue"
	"github.com/seatwise/show-reservation/internal/repository"
	queue_publisher "github.com/seatwise/show-reservation/internal/service"
)

// BookingStore is the slice of the booking repository the handler
// reads from; satisfied by *repository.BookingRepo.
type BookingStore interface {
	GetByToken(ctx context.Context, token string, userID uint64) (*model.Booking, error)
	FindByIdempotencyKey(ctx context.Context, userID uint64, key string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
}

// ShowGetter resolves shows for event enrichment; satisfied by
// *repository.ShowRepo.
type ShowGetter interface {
	GetByID(ctx context.Context, showID uint64) (*model.Show, error)
}

// BookingHandler exposes the reservation engine over HTTP.  It parses
// and validates the request into typed identities before the engine
// runs, translates the engine's outcomes into the HTTP error taxonomy
// (409 Conflict with a machine-readable reason, 404, 500) and fires
// the booking-confirmed event on success.
type BookingHandler struct {
	Engine   *engine.Engine
	Bookings BookingStore
	Shows    ShowGetter
	Avail    *cache.AvailabilityCache
	// Publish fires the booking-confirmed event; overridable in tests.
	Publish func(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(eng *engine.Engine, bookings BookingStore, shows ShowGetter, avail *cache.AvailabilityCache) *BookingHandler {
	if eng == nil || bookings == nil || shows == nil || avail == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{
		Engine:   eng,
		Bookings: bookings,
		Shows:    shows,
		Avail:    avail,
		Publish:  queue_publisher.PublishBookingConfirmed,
	}
}

type bookRequest struct {
	SeatIDs []uint64 `json:"seat_ids"`
}

// BookSeats handles POST /v1/shows/:id/book.  The whole request
// succeeds or fails as a unit: either every requested seat is booked
// under one token, or none remain booked after the attempt.  Callers
// should retry a 409 with a fresh seat selection; a caller-supplied
// Idempotency-Key header makes network-level retries of the same
// request safe.
func (h *BookingHandler) BookSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var body bookRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}

	ctx := c.Request().Context()
	booking, err := h.Engine.Reserve(ctx, engine.ReserveRequest{
		ShowID:         showID,
		SeatIDs:        body.SeatIDs,
		UserID:         userID,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	// Win or lose, the attempt may have changed the show's seat counts.
	h.Avail.Invalidate(ctx, showID)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNoSeats):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no valid seat IDs provided"})
		case errors.Is(err, engine.ErrSeatsUnavailable):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":  "one or more selected seats are no longer available",
				"reason": "SEATS_UNAVAILABLE",
			})
		case errors.Is(err, repository.ErrShowNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		case errors.Is(err, repository.ErrDuplicateBooking):
			// Two requests with the same idempotency key raced past the
			// lookup; the loser's seats were compensated and the winner's
			// booking is the one to return.
			if key := c.Request().Header.Get("Idempotency-Key"); key != "" {
				if prev, lookErr := h.Bookings.FindByIdempotencyKey(ctx, userID, key); lookErr == nil && prev != nil {
					return c.JSON(http.StatusOK, echo.Map{
						"booking_token":      prev.Token,
						"seat_ids":           prev.SeatIDs,
						"total_amount_cents": prev.TotalAmountCents,
						"status":             prev.Status,
					})
				}
			}
			return c.JSON(http.StatusConflict, echo.Map{
				"error":  "booking already recorded",
				"reason": "DUPLICATE_REQUEST",
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to process booking"})
		}
	}

	h.publishConfirmed(c, booking.Token, booking.ShowID, booking.UserID, booking.TotalAmountCents)

	return c.JSON(http.StatusCreated, echo.Map{
		"booking_token":      booking.Token,
		"seat_ids":           booking.SeatIDs,
		"total_amount_cents": booking.TotalAmountCents,
		"status":             booking.Status,
	})
}

// publishConfirmed fires the booking.confirmed event.  Failures are
// ignored: the booking is already durable and the consumer log is a
// convenience, not a system of record.
func (h *BookingHandler) publishConfirmed(c echo.Context, token string, showID, userID uint64, total uint32) {
	ctx := c.Request().Context()
	ev := queue.BookingConfirmedEvent{
		BookingToken:     token,
		UserID:           userID,
		ShowID:           showID,
		TotalAmountCents: total,
		ConfirmedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if show, err := h.Shows.GetByID(ctx, showID); err == nil {
		ev.ShowTitle = show.Title
		ev.VenueHall = show.VenueHall
	}
	_ = h.Publish(ctx, ev)
}

// GetBooking handles GET /v1/bookings/:token.  Only the owner of the
// booking can fetch it; unknown tokens and other users' tokens both
// return 404.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking token"})
	}
	booking, err := h.Bookings.GetByToken(c.Request().Context(), token, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": booking})
}

// ListBookings handles GET /v1/my-bookings.  Returns all bookings of
// the current user, newest first.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookings, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": bookings})
}
