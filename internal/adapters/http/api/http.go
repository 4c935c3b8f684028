// Package api declares the rating service's HTTP contracts, route registration and middleware.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/sportselo/internal/adapters/repository"
	service "github.com/okian/sportselo/internal/app"
	"github.com/okian/sportselo/internal/domain/elo"
	"github.com/okian/sportselo/internal/domain/model"
	"github.com/okian/sportselo/internal/domain/sports"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ContestDependencies
	DriverDependencies
	CalculatorDependencies
	SportsProvider
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	sportsHandler     *SportsHandler
	driversHandler    *DriversHandler
	contestsHandler   *ContestsHandler
	calculatorHandler *CalculatorHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(deps),
		sportsHandler:     NewSportsHandler(deps),
		driversHandler:    NewDriversHandler(deps),
		contestsHandler:   NewContestsHandler(deps),
		calculatorHandler: NewCalculatorHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/v1/sports", MetricsMiddleware(s.sportsHandler.HandleList, "sports"))
	mux.HandleFunc("GET /api/v1/{sport}/drivers", MetricsMiddleware(s.driversHandler.HandleList, "drivers"))
	mux.HandleFunc("GET /api/v1/{sport}/drivers/{id}", MetricsMiddleware(s.driversHandler.HandleGet, "driver"))
	mux.HandleFunc("PUT /api/v1/{sport}/drivers/{id}", MetricsMiddleware(s.driversHandler.HandlePut, "driver"))
	mux.HandleFunc("GET /api/v1/{sport}/search", MetricsMiddleware(s.driversHandler.HandleSearch, "search"))
	mux.HandleFunc("POST /api/v1/{sport}/contests", MetricsMiddleware(s.contestsHandler.HandlePost, "contests"))

	mux.HandleFunc("POST /api/v1/elo/pairwise", MetricsMiddleware(s.calculatorHandler.HandlePairwise, "elo_pairwise"))
	mux.HandleFunc("POST /api/v1/elo/team", MetricsMiddleware(s.calculatorHandler.HandleTeam, "elo_team"))
	mux.HandleFunc("POST /api/v1/elo/race", MetricsMiddleware(s.calculatorHandler.HandleRace, "elo_race"))
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

// classify maps an error from any layer to a status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, sports.ErrUnknownSport):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, elo.ErrValidation),
		errors.Is(err, model.ErrInvalidContest),
		errors.Is(err, model.ErrDuplicateCompetitor),
		errors.Is(err, model.ErrOutOfOrder),
		errors.Is(err, sports.ErrInactiveSport),
		errors.Is(err, sports.ErrKindNotAccepted):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidPage):
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, "internal_error"
}

func fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// readJSON decodes a bounded request body into v, rejecting unknown fields.
func readJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return WrapKind(op, ErrBadRequest, fmt.Errorf("read body: %w", err))
	}
	if err := decode(body, v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
