// Package api declares the rating service's HTTP contracts, route registration and middleware.
package api

import (
	"context"
	"net/http"

	"github.com/okian/sportselo/internal/domain/model"
)

// ContestDependencies defines the contest submission operation.
type ContestDependencies interface {
	// Submit validates and queues a contest. Returns a backpressure error
	// when the queue is full.
	Submit(ctx context.Context, c model.Contest) (model.Ack, error)
}

// ContestsHandler handles contest submissions.
type ContestsHandler struct {
	deps ContestDependencies
}

// NewContestsHandler creates a new contests handler.
func NewContestsHandler(deps ContestDependencies) *ContestsHandler {
	return &ContestsHandler{deps: deps}
}

type ackResponse struct {
	Status    string `json:"status"`
	ContestID string `json:"contestId"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePost handles POST /api/v1/{sport}/contests.
func (h *ContestsHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_contest"
	var req contestRequest
	if err := readJSON(w, r, op, &req); err != nil {
		fail(w, err)
		return
	}

	ack, err := h.deps.Submit(r.Context(), req.contest(r.PathValue("sport")))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	if ack.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", ContestID: ack.ContestID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ContestID: ack.ContestID})
}
