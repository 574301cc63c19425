package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/quicktap/seat-booking/internal/config"
	"github.com/quicktap/seat-booking/internal/database"
	"github.com/quicktap/seat-booking/internal/handler"
	"github.com/quicktap/seat-booking/internal/middleware"
	"github.com/quicktap/seat-booking/internal/payment"
	"github.com/quicktap/seat-booking/internal/queue"
	"github.com/quicktap/seat-booking/internal/repository"
	"github.com/quicktap/seat-booking/internal/router"
	"github.com/quicktap/seat-booking/internal/service"
	"github.com/quicktap/seat-booking/internal/sweeper"
)

func main() {
	cfg := config.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "seat-booking").Logger()
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly})
	}

	var (
		db  *sql.DB
		err error
	)
	switch cfg.DBDriver {
	case "sqlite3":
		db, err = database.OpenSQLite(cfg.DBPath)
	default:
		db, err = database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database connection failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	repo := repository.NewBookingRepo(db)
	verifier := payment.NewVerifier(cfg.PaymentSecret)
	events := queue.NewPublisher(queue.BrokerURL(), log)

	lease := service.NewLeaseManager(repo, verifier, events, service.Config{
		SeatCount:            cfg.SeatCount,
		HoldDuration:         cfg.HoldDuration,
		ResetExpiryOnConfirm: cfg.ResetExpiryOnConfirm,
		ExtendMaxTotal:       cfg.ExtendMaxTotal,
	}, log)

	sw := sweeper.New(repo, events, cfg.SweepInterval, log)
	go sw.Run(ctx)

	go queue.StartBookingConsumer(queue.BrokerURL(), log)

	rdb := config.NewRedisClient()
	var readMW, writeMW []echo.MiddlewareFunc
	if rdb != nil {
		defer rdb.Close()
		readMW = append(readMW, middleware.NewStatusCache(config.LoadCacheConfig(), rdb))
		writeMW = append(writeMW, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	} else {
		log.Warn().Msg("redis unavailable, response cache and rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	seatHandler := handler.NewSeatHandler(lease)
	adminHandler := handler.NewAdminSeatHandler(lease)
	authHandler := handler.NewAuthHandler(cfg.AdminEmail, cfg.AdminPasswordHash, cfg.JWTSecret, cfg.AccessTTLMin)

	router.RegisterRoutes(e, db)
	router.RegisterSeats(e, seatHandler, readMW, writeMW)
	router.RegisterAdmin(e, authHandler, adminHandler, cfg.JWTSecret)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Int("seats", cfg.SeatCount).Msg("listening")
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server exited")
	}
}
