package main // Entry point package

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/seatwise/show-reservation/internal/cache"
	"github.com/seatwise/show-reservation/internal/config"
	"github.com/seatwise/show-reservation/internal/database"
	"github.com/seatwise/show-reservation/internal/engine"
	"github.com/seatwise/show-reservation/internal/handler"
	"github.com/seatwise/show-reservation/internal/middleware"
	"github.com/seatwise/show-reservation/internal/queue"
	"github.com/seatwise/show-reservation/internal/repository"
	"github.com/seatwise/show-reservation/internal/router"
)

const availabilityTTL = 5 * time.Second

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables the availability cache
	// and the rate limiter degrades to a pass-through.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	seatRepo := repository.NewSeatRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	showRepo := repository.NewShowRepo(db, seatRepo)
	userRepo := repository.NewUserRepo(db)

	eng := engine.New(seatRepo, bookingRepo, showRepo)
	avail := cache.NewAvailabilityCache(rdb, availabilityTTL)

	authHandler := handler.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost)
	showHandler := handler.NewShowHandler(showRepo, seatRepo, eng, avail)
	bookingHandler := handler.NewBookingHandler(eng, bookingRepo, showRepo, avail)

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler)
	router.RegisterPublic(e, showHandler)
	router.RegisterBooking(e, bookingHandler, cfg.JWTSecret, limit)
	router.RegisterAdmin(e, showHandler, cfg.JWTSecret)

	// The consumer reconnects on its own; a hard failure only loses the
	// confirmation log, never a booking.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	// Block until SIGINT/SIGTERM, then drain in-flight requests so a
	// booking is never cut off between its conditional update and its
	// ledger append.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
