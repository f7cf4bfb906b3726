// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	service "github.com/okian/intramurals/internal/app"
	"github.com/okian/intramurals/internal/domain/model"
	"github.com/okian/intramurals/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	StatsProvider

	Leaderboard(ctx context.Context) ([]model.Team, error)
	Teams(ctx context.Context) ([]model.Team, error)
	Team(ctx context.Context, id string) (model.Team, error)
	TeamHistory(ctx context.Context, teamID string) (model.History, error)
	CreateTeam(ctx context.Context, in service.TeamInput) (model.Team, error)
	UpdateTeam(ctx context.Context, id string, patch service.TeamPatch) (model.Team, error)

	AddPointLog(ctx context.Context, in service.PointLogInput) (model.PointLog, error)
	UpdatePointLog(ctx context.Context, logID, teamID string, patch model.PointLogPatch) (model.PointLog, error)
	DeletePointLog(ctx context.Context, logID, teamID string, kind model.AdjustmentKind) error

	Events(ctx context.Context) ([]model.Event, error)
	Event(ctx context.Context, id string) (model.Event, error)
	CreateEvent(ctx context.Context, in service.EventInput) (model.Event, error)
	UpdateEvent(ctx context.Context, id string, patch service.EventPatch) (model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	SubmitEventResults(ctx context.Context, eventID string, results []model.EventResult) (model.Event, error)

	Notifications(ctx context.Context, since time.Time) ([]model.Notification, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps           Dependencies
	limiter        *IPRateLimiter
	maxUploadBytes int64
	logger         logger.Logger

	healthHandler        *HealthHandler
	statsHandler         *StatsHandler
	leaderboardHandler   *LeaderboardHandler
	teamsHandler         *TeamsHandler
	eventsHandler        *EventsHandler
	notificationsHandler *NotificationsHandler
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit limits mutating requests per client IP.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.limiter = NewIPRateLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithMaxUploadBytes caps request bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		maxUploadBytes: 5 << 20,
		logger:         logger.Get().Named("http"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.leaderboardHandler = NewLeaderboardHandler(deps)
	s.teamsHandler = NewTeamsHandler(deps, s.maxUploadBytes)
	s.eventsHandler = NewEventsHandler(deps, s.maxUploadBytes)
	s.notificationsHandler = NewNotificationsHandler(deps)
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(s.logger), middleware.Recoverer)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Handle("/metrics", s.healthHandler.MetricsHandler())
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Get("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	r.Get("/leaderboard.xlsx", MetricsMiddleware(s.leaderboardHandler.HandleExport, "leaderboard_export"))
	r.Get("/notifications", MetricsMiddleware(s.notificationsHandler.HandleList, "notifications"))

	r.Route("/teams", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.teamsHandler.HandleList, "teams"))
		r.Get("/{teamID}", MetricsMiddleware(s.teamsHandler.HandleGet, "team"))
		r.Get("/{teamID}/history", MetricsMiddleware(s.teamsHandler.HandleHistory, "team_history"))
		r.Get("/{teamID}/history.png", MetricsMiddleware(s.teamsHandler.HandleHistoryChart, "team_history_chart"))

		r.Group(func(r chi.Router) {
			s.mutating(r)
			r.Post("/", MetricsMiddleware(s.teamsHandler.HandleCreate, "teams"))
			r.Patch("/{teamID}", MetricsMiddleware(s.teamsHandler.HandleUpdate, "team"))
			r.Post("/{teamID}/logs", MetricsMiddleware(s.teamsHandler.HandleAddLog, "team_logs"))
			r.Patch("/{teamID}/logs/{logID}", MetricsMiddleware(s.teamsHandler.HandleUpdateLog, "team_log"))
			r.Delete("/{teamID}/logs/{logID}", MetricsMiddleware(s.teamsHandler.HandleDeleteLog, "team_log"))
		})
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.eventsHandler.HandleList, "events"))
		r.Get("/{eventID}", MetricsMiddleware(s.eventsHandler.HandleGet, "event"))
		r.Get("/{eventID}/scoresheet.xlsx", MetricsMiddleware(s.eventsHandler.HandleScoresheet, "event_scoresheet"))

		r.Group(func(r chi.Router) {
			s.mutating(r)
			r.Post("/", MetricsMiddleware(s.eventsHandler.HandleCreate, "events"))
			r.Put("/{eventID}", MetricsMiddleware(s.eventsHandler.HandleUpdate, "event"))
			r.Delete("/{eventID}", MetricsMiddleware(s.eventsHandler.HandleDelete, "event"))
			r.Put("/{eventID}/results", MetricsMiddleware(s.eventsHandler.HandleSubmitResults, "event_results"))
			r.Post("/{eventID}/results.xlsx", MetricsMiddleware(s.eventsHandler.HandleImportResults, "event_results_import"))
		})
	})
}

// Handler returns a router with every route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// mutating installs the middleware shared by write routes.
func (s *Server) mutating(r chi.Router) {
	if s.limiter != nil {
		r.Use(RateLimitMiddleware(s.limiter))
	}
	r.Use(IdempotencyMiddleware)
}

// IdempotencyMiddleware forwards the Idempotency-Key header to the service.
func IdempotencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("Idempotency-Key"); key != "" {
			r = r.WithContext(service.WithIdempotencyKey(r.Context(), key))
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service error kinds onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	err = Wrap(op, err)
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decodeJSON reads a JSON body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func writeFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
