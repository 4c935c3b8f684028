// Package api declares the rating service's HTTP contracts, route registration and middleware.
package api

import (
	"net/http"

	"github.com/okian/sportselo/internal/domain/sports"
)

// SportsProvider lists the configured sports.
type SportsProvider interface {
	Sports() []sports.Sport
}

// SportsHandler handles registry requests.
type SportsHandler struct {
	deps SportsProvider
}

// NewSportsHandler creates a new sports handler.
func NewSportsHandler(deps SportsProvider) *SportsHandler {
	return &SportsHandler{deps: deps}
}

// HandleList handles GET /api/v1/sports.
func (h *SportsHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Sports())
}
