package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/seatwise/show-reservation/internal/cache"
	"github.com/seatwise/show-reservation/internal/engine"
	"github.com/seatwise/show-reservation/internal/model"
	"github.com/seatwise/show-reservation/internal/repository"
)

// ShowHandler serves the show catalog: public browsing of shows and
// seat maps, the availability endpoint that booking clients poll, and
// the admin-only show creation that bulk-generates the seat pool.
type ShowHandler struct {
	Shows  *repository.ShowRepo
	Seats  *repository.SeatRepo
	Engine *engine.Engine
	Avail  *cache.AvailabilityCache
}

// NewShowHandler constructs a ShowHandler.
func NewShowHandler(shows *repository.ShowRepo, seats *repository.SeatRepo, eng *engine.Engine, avail *cache.AvailabilityCache) *ShowHandler {
	if shows == nil || seats == nil || eng == nil || avail == nil {
		panic("nil dependency passed to NewShowHandler")
	}
	return &ShowHandler{Shows: shows, Seats: seats, Engine: eng, Avail: avail}
}

type createShowRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	VenueHall   string `json:"venue_hall"`
	StartsAt    string `json:"starts_at"` // RFC3339
	TotalSeats  uint32 `json:"total_seats"`
	PriceCents  uint32 `json:"price_cents"`
}

// CreateShow handles POST /v1/admin/shows.  It creates the show and
// its full seat pool (all AVAILABLE) in one transaction and returns
// the show with the number of seats generated.
func (h *ShowHandler) CreateShow(c echo.Context) error {
	var body createShowRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Title == "" || body.VenueHall == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and venue_hall are required"})
	}
	if body.TotalSeats == 0 || body.TotalSeats > 10000 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_seats must be between 1 and 10000"})
	}
	startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}

	show := &model.Show{
		Title:       body.Title,
		Description: body.Description,
		VenueHall:   body.VenueHall,
		StartsAt:    startsAt.UTC(),
		TotalSeats:  body.TotalSeats,
		PriceCents:  body.PriceCents,
	}
	if err := h.Shows.Create(c.Request().Context(), show); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create show"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"show":          show,
		"seats_created": show.TotalSeats,
	})
}

// ListShows handles GET /v1/shows.  Shows are ordered by start time
// and carry their current available seat counts.
func (h *ShowHandler) ListShows(c echo.Context) error {
	shows, err := h.Shows.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load shows"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": shows})
}

// GetShowSeats handles GET /v1/shows/:id/seats.  It returns the seat
// map ordered by row and number; 404 when the show has no seats, which
// also covers unknown show IDs.
func (h *ShowHandler) GetShowSeats(c echo.Context) error {
	showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	seats, err := h.Seats.ListByShow(c.Request().Context(), showID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	if len(seats) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found or has no seats"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": seats})
}

// GetAvailability handles GET /v1/shows/:id/availability.  Booking
// clients poll this while choosing seats, so the count is served from
// the Redis cache when fresh and recomputed through the engine
// otherwise.  The count may briefly undercount seats held by a losing
// attempt mid-compensation.
func (h *ShowHandler) GetAvailability(c echo.Context) error {
	showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	ctx := c.Request().Context()

	if n, ok := h.Avail.Get(ctx, showID); ok {
		return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "available_seats": n})
	}

	if _, err := h.Shows.GetByID(ctx, showID); err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	n, err := h.Engine.Availability(ctx, showID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count availability"})
	}
	h.Avail.Set(ctx, showID, n)
	return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "available_seats": n})
}
