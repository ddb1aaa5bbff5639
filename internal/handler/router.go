package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/auth"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/logger"
)

// Routes bundles what NewRouter mounts.
type Routes struct {
	Events *EventHandler
	Auth   *AuthHandler
	Tokens *auth.TokenIssuer
	Log    *logger.Logger
}

// NewRouter builds the API router with the global middleware stack.
func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(rt.Log))          // structured access log
	r.Use(CORS)

	r.Get("/health", HealthCheck)

	requireAuth := auth.Middleware(rt.Tokens)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-up", rt.Auth.SignUp)
		r.Post("/login", rt.Auth.Login)
		r.With(requireAuth).Get("/authenticated", rt.Auth.Authenticated)
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", rt.Events.ListEvents)
		r.Get("/status/{eventId}", rt.Events.GetEventStatus)
		r.With(requireAuth).Post("/initialize", rt.Events.InitializeEvent)
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", rt.Events.ListMyBookings)
		r.Post("/book", rt.Events.BookTicket)
		r.Post("/cancel", rt.Events.CancelBooking)
	})

	return r
}
