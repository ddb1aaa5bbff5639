// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/auth"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/logger"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/model"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/service"
)

// RetryPolicy bounds how often a request re-runs an operation that failed
// with a transient store error.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// EventHandler holds the event and booking handlers.
type EventHandler struct {
	engine   *service.AllocationEngine
	validate *Validator
	retry    RetryPolicy
	log      *logger.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(engine *service.AllocationEngine, retry RetryPolicy, log *logger.Logger) *EventHandler {
	return &EventHandler{engine: engine, validate: NewValidator(), retry: retry, log: log}
}

// AuthHandler holds the sign-up and login handlers.
type AuthHandler struct {
	svc      *service.AuthService
	validate *Validator
	log      *logger.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, validate: NewValidator(), log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// bind decodes and validates the request body, writing the 400 itself.
func bind(w http.ResponseWriter, r *http.Request, v *Validator, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := v.Struct(dst); err != nil {
		writeFailure(w, nil, err)
		return false
	}
	return true
}

// writeFailure maps a service or validation error to its HTTP status.
// Unexpected errors are logged and reported as a bare 500.
func writeFailure(w http.ResponseWriter, log *logger.Logger, err error) {
	var verrs ValidationErrors
	switch {
	case errors.As(err, &verrs):
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Error())
		}
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "validation failed", Fields: fields})
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		writeError(w, http.StatusBadRequest, service.ErrInvalidState.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, service.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "ticket not found")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	case errors.Is(err, repository.ErrTransient):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "service busy, please retry")
	default:
		if log != nil {
			log.Error("request failed", "error", err)
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// requester returns the authenticated user id. Routes using it sit behind
// auth.Middleware, so a miss is a wiring bug.
func requester(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication token missing")
	}
	return id, ok
}

func retried[T any](r *http.Request, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	return service.Retry(r.Context(), p.Attempts, p.Backoff, fn)
}

// ─── Event handlers ───────────────────────────────────────────────────────────

// InitializeEvent handles POST /events/initialize
// The authenticated user becomes the event manager.
func (h *EventHandler) InitializeEvent(w http.ResponseWriter, r *http.Request) {
	managerID, ok := requester(w, r)
	if !ok {
		return
	}
	var req model.InitializeEventRequest
	if !bind(w, r, h.validate, &req) {
		return
	}

	event, err := h.engine.InitializeEvent(r.Context(), req, managerID)
	if err != nil {
		writeFailure(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Returns a JSON array of all events.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.engine.ListEvents(r.Context())
	if err != nil {
		writeFailure(w, h.log, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEventStatus handles GET /events/status/{eventId}
func (h *EventHandler) GetEventStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventId")

	status, err := h.engine.GetEventStatus(r.Context(), id)
	if err != nil {
		writeFailure(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ─── Booking handlers ─────────────────────────────────────────────────────────

// BookTicket handles POST /bookings/book
// Responds 201 with the booking, or 202 with the wait list entry when the
// event is full.
func (h *EventHandler) BookTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	var req model.BookTicketRequest
	if !bind(w, r, h.validate, &req) {
		return
	}

	outcome, err := retried(r, h.retry, func(ctx context.Context) (*model.BookingOutcome, error) {
		return h.engine.BookTicket(ctx, req.EventID, userID)
	})
	if err != nil {
		writeFailure(w, h.log, err)
		return
	}

	status := http.StatusCreated
	if outcome.Status == model.OutcomeWaitlisted {
		status = http.StatusAccepted
	}
	writeJSON(w, status, outcome)
}

// CancelBooking handles POST /bookings/cancel
func (h *EventHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	var req model.CancelBookingRequest
	if !bind(w, r, h.validate, &req) {
		return
	}

	booking, err := retried(r, h.retry, func(ctx context.Context) (*model.Booking, error) {
		return h.engine.CancelBooking(ctx, req.BookingID, userID, req.Reason)
	})
	if err != nil {
		writeFailure(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// ListMyBookings handles GET /bookings
// Returns the authenticated user's bookings, newest first.
func (h *EventHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	bookings, err := h.engine.ListUserBookings(r.Context(), userID)
	if err != nil {
		writeFailure(w, h.log, err)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// ─── Auth handlers ────────────────────────────────────────────────────────────

// SignUp handles POST /auth/sign-up
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req model.SignUpRequest
	if !bind(w, r, h.validate, &req) {
		return
	}
	user, err := h.svc.SignUp(r.Context(), req)
	if err != nil {
		writeFailure(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !bind(w, r, h.validate, &req) {
		return
	}
	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeFailure(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Authenticated handles GET /auth/authenticated
// Returns the user behind the bearer token.
func (h *AuthHandler) Authenticated(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	user, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "wrong authentication token")
			return
		}
		writeFailure(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
