package handler

import (
	"net/http"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/auth"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures the middleware stack around the handlers.
type RouterOptions struct {
	Verifier       *auth.Verifier
	Limiter        *ratelimit.Store // nil disables throttling
	AllowedOrigins []string
	RequestTimeout time.Duration
	// SweepBeforeRequest runs the expiry sweep ahead of every authenticated request.
	SweepBeforeRequest bool
}

// NewRouter builds the chi router with the global middleware stack and
// every route of the API.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)                  // structured access log
	if opts.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(opts.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	}))

	// Health
	r.Get("/health", HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(Auth(opts.Verifier))
		if opts.Limiter != nil {
			r.Use(RateLimit(opts.Limiter))
		}
		if opts.SweepBeforeRequest {
			r.Use(SweepBeforeRequest(h.sweeper))
		}

		r.Get("/dashboard", h.Dashboard)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.ListRooms)
			r.With(RequireAdmin).Post("/", h.CreateRoom)
			r.Get("/available", h.AvailableRooms)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetRoom)
				r.With(RequireAdmin).Delete("/", h.DeleteRoom)
				r.Get("/availability", h.RoomAvailability)
				r.Get("/overlaps", h.RoomOverlaps)
			})
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.CreateReservation)
			r.Get("/", h.ListMyReservations)
			r.Get("/{id}", h.GetReservation)
			r.Put("/{id}", h.EditReservation)
			r.Delete("/{id}", h.CancelReservation)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/reservations", h.AdminListReservations)
			r.Put("/reservations/{id}", h.AdminEditReservation)
			r.Delete("/reservations/{id}", h.AdminDeleteReservation)
			r.Delete("/users/{id}/reservations", h.DeleteUserReservations)
			r.Post("/sweep", h.Sweep)
		})
	})

	return r
}
