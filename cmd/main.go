// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/auth"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/booking"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/config"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/database"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/handler"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/lease"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/logger"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/ratelimit"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/repository"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/service"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Config{
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Backend:   logger.Backend(cfg.Logging.Backend),
		Debug:     cfg.Logging.Debug,
		AddSource: cfg.Logging.AddSource,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage ────────────────────────────────────────────────────────
	var store repository.Store
	switch cfg.Storage.Driver {
	case "memory":
		store = repository.NewMemoryStore()
		log.Warn("using in-memory storage; reservations are lost on restart")
	default:
		pool, err := database.NewPool(ctx, database.Options{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			ConnectAttempts: cfg.Postgres.ConnectAttempts,
			RetryDelay:      cfg.Postgres.RetryDelay,
		})
		if err != nil {
			log.Error("database", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Error("database", "err", err)
			os.Exit(1)
		}
		store = repository.NewPostgresStore(pool)
		log.Info("connected to postgres")
	}

	// ── 2. Sweep lease ────────────────────────────────────────────────────
	var leaser service.Leaser = lease.Local{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Error("redis ping", "addr", cfg.Redis.Addr, "err", err)
			os.Exit(1)
		}
		leaser = lease.NewRedis(rdb)
		log.Info("sweep lease backed by redis", "addr", cfg.Redis.Addr)
	}

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	clock := booking.SystemClock{}
	policy := service.Policy{
		MaxActiveReservations: cfg.Booking.MaxActiveReservations,
		Buffer:                cfg.Booking.Buffer,
		SlotWidth:             cfg.Booking.SlotWidth,
		UserGrace:             cfg.Booking.UserGrace,
		AdminGrace:            cfg.Booking.AdminGrace,
		ConflictModel:         service.ConflictModel(cfg.Booking.ConflictModel),
	}

	rooms := service.NewRoomService(store)
	avail := service.NewAvailabilityService(store, policy, clock)
	sweeper := service.NewSweeper(store, clock, leaser, cfg.Sweep.Interval, cfg.Sweep.LeaseTTL)

	if n, err := rooms.Seed(ctx, cfg.Seed.Rooms); err != nil {
		log.Error("seed rooms", "err", err)
		os.Exit(1)
	} else if n > 0 {
		log.Info("seeded rooms", "count", n)
	}

	h := handler.New(handler.Services{
		Rooms:        rooms,
		Availability: avail,
		Admission:    service.NewAdmissionService(store, avail, policy, clock),
		Reservations: service.NewReservationService(store, policy, clock),
		Sweeper:      sweeper,
	})

	limiter := ratelimit.NewStore(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	limiter.StartJanitor(ctx)

	router := handler.NewRouter(h, handler.RouterOptions{
		Verifier:           auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Limiter:            limiter,
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		SweepBeforeRequest: cfg.Sweep.BeforeRequest,
	})

	go sweeper.Run(ctx)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return
	}
	log.Info("server stopped")
}
