// Package api declares the rating service's HTTP contracts, route registration and middleware.
package api

import (
	"net/http"

	"github.com/okian/sportselo/internal/domain/elo"
)

// CalculatorDependencies exposes the stateless rating laws.
type CalculatorDependencies interface {
	PreviewPairwise(ra, rb float64, outcome elo.Outcome) (elo.PairwiseBreakdown, error)
	PreviewTeam(teamA, teamB []float64, outcome elo.Outcome) (elo.TeamBreakdown, error)
	PreviewRace(entrants []elo.Entrant) ([]elo.RaceBreakdown, error)
}

// CalculatorHandler handles the /api/v1/elo calculators.
type CalculatorHandler struct {
	deps CalculatorDependencies
}

// NewCalculatorHandler creates a new calculator handler.
func NewCalculatorHandler(deps CalculatorDependencies) *CalculatorHandler {
	return &CalculatorHandler{deps: deps}
}

type pairwiseRequest struct {
	RatingA float64 `json:"ratingA"`
	RatingB float64 `json:"ratingB"`
	Outcome outcome `json:"outcome"`
}

type pairwiseResponse struct {
	ExpectedA  float64 `json:"expectedA"`
	DeltaA     float64 `json:"deltaA"`
	NewRatingA float64 `json:"newRatingA"`
	NewRatingB float64 `json:"newRatingB"`
}

// HandlePairwise handles POST /api/v1/elo/pairwise.
func (h *CalculatorHandler) HandlePairwise(w http.ResponseWriter, r *http.Request) {
	const op = "api.elo_pairwise"
	var req pairwiseRequest
	if err := readJSON(w, r, op, &req); err != nil {
		fail(w, err)
		return
	}
	b, err := h.deps.PreviewPairwise(req.RatingA, req.RatingB, elo.Outcome(req.Outcome))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, pairwiseResponse{
		ExpectedA:  probability(b.ExpectedA),
		DeltaA:     rating(b.DeltaA),
		NewRatingA: rating(b.NewA),
		NewRatingB: rating(b.NewB),
	})
}

type teamRequest struct {
	TeamA   []float64 `json:"teamA"`
	TeamB   []float64 `json:"teamB"`
	Outcome outcome   `json:"outcome"`
}

type teamResponse struct {
	MeanA     float64   `json:"meanA"`
	MeanB     float64   `json:"meanB"`
	ExpectedA float64   `json:"expectedA"`
	DeltaA    float64   `json:"deltaA"`
	DeltaB    float64   `json:"deltaB"`
	TeamA     []float64 `json:"teamA"`
	TeamB     []float64 `json:"teamB"`
}

func ratings(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = rating(v)
	}
	return out
}

// HandleTeam handles POST /api/v1/elo/team.
func (h *CalculatorHandler) HandleTeam(w http.ResponseWriter, r *http.Request) {
	const op = "api.elo_team"
	var req teamRequest
	if err := readJSON(w, r, op, &req); err != nil {
		fail(w, err)
		return
	}
	b, err := h.deps.PreviewTeam(req.TeamA, req.TeamB, elo.Outcome(req.Outcome))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, teamResponse{
		MeanA:     rating(b.MeanA),
		MeanB:     rating(b.MeanB),
		ExpectedA: probability(b.ExpectedA),
		DeltaA:    rating(b.Delta.A),
		DeltaB:    rating(b.Delta.B),
		TeamA:     ratings(b.NewA),
		TeamB:     ratings(b.NewB),
	})
}

type entrantBody struct {
	Rating   float64 `json:"rating"`
	Position int     `json:"position"`
}

type raceRequest struct {
	Entrants []entrantBody `json:"entrants"`
}

type raceEntrantResponse struct {
	Position int     `json:"position"`
	Before   float64 `json:"before"`
	Expected float64 `json:"expected"`
	Score    float64 `json:"score"`
	Delta    float64 `json:"delta"`
	After    float64 `json:"after"`
}

type raceResponse struct {
	StrengthOfField float64               `json:"strengthOfField"`
	KFactor         float64               `json:"kFactor"`
	Entrants        []raceEntrantResponse `json:"entrants"`
}

// HandleRace handles POST /api/v1/elo/race.
func (h *CalculatorHandler) HandleRace(w http.ResponseWriter, r *http.Request) {
	const op = "api.elo_race"
	var req raceRequest
	if err := readJSON(w, r, op, &req); err != nil {
		fail(w, err)
		return
	}
	entrants := make([]elo.Entrant, len(req.Entrants))
	for i, e := range req.Entrants {
		entrants[i] = elo.Entrant{Rating: e.Rating, Position: e.Position}
	}
	bs, err := h.deps.PreviewRace(entrants)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}

	resp := raceResponse{Entrants: make([]raceEntrantResponse, len(bs))}
	for i, b := range bs {
		resp.StrengthOfField = rating(b.SoF)
		resp.KFactor = round(b.K, probabilityPlaces)
		resp.Entrants[i] = raceEntrantResponse{
			Position: b.Position,
			Before:   rating(b.Before),
			Expected: probability(b.Expected),
			Score:    probability(b.Score),
			Delta:    rating(b.Delta),
			After:    rating(b.After),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
