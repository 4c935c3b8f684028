// Package api declares the rating service's HTTP contracts, route registration and middleware.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/sportselo/internal/adapters/repository"
	"github.com/okian/sportselo/internal/domain/model"
)

// DriverDependencies defines the read and profile operations on competitors.
type DriverDependencies interface {
	Drivers(ctx context.Context, sport string, req repository.PageRequest) (repository.Page, error)
	Driver(ctx context.Context, sport, id string) (*model.Competitor, error)
	Rank(ctx context.Context, sport, id string) (int, error)
	Search(ctx context.Context, sport, q string) ([]*model.Competitor, error)
	UpsertProfile(ctx context.Context, sport, id string, p model.Profile, since time.Time) (*model.Competitor, error)
}

// DriversHandler handles leaderboard, detail, search and profile requests.
type DriversHandler struct {
	deps DriverDependencies
}

// NewDriversHandler creates a new drivers handler.
func NewDriversHandler(deps DriverDependencies) *DriversHandler {
	return &DriversHandler{deps: deps}
}

func intParam(q url.Values, name string) (int, error) {
	s := q.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func pageRequest(q url.Values) (repository.PageRequest, error) {
	page, err := intParam(q, "page")
	if err != nil {
		return repository.PageRequest{}, err
	}
	size, err := intParam(q, "pageSize")
	if err != nil {
		return repository.PageRequest{}, err
	}
	return repository.PageRequest{
		Page:      page,
		PageSize:  size,
		SortBy:    repository.SortKey(q.Get("sortBy")),
		SortOrder: repository.SortOrder(q.Get("sortOrder")),
	}, nil
}

// HandleList handles GET /api/v1/{sport}/drivers?page&pageSize&sortBy&sortOrder.
func (h *DriversHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_drivers"
	req, err := pageRequest(r.URL.Query())
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	page, err := h.deps.Drivers(r.Context(), r.PathValue("sport"), req)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, driversPage{
		Drivers:       summaries(page.Competitors),
		Page:          page.Page,
		PageSize:      page.PageSize,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
	})
}

// HandleGet handles GET /api/v1/{sport}/drivers/{id}.
func (h *DriversHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_driver"
	c, err := h.deps.Driver(r.Context(), r.PathValue("sport"), r.PathValue("id"))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	h.writeDetail(w, r, op, c)
}

// HandlePut handles PUT /api/v1/{sport}/drivers/{id}.
func (h *DriversHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_driver"
	var req profileRequest
	if err := readJSON(w, r, op, &req); err != nil {
		fail(w, err)
		return
	}
	c, err := h.deps.UpsertProfile(r.Context(), r.PathValue("sport"), r.PathValue("id"), req.profile(), req.RegisteredOn.time())
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	h.writeDetail(w, r, op, c)
}

// writeDetail renders c together with its leaderboard position.
func (h *DriversHandler) writeDetail(w http.ResponseWriter, r *http.Request, op string, c *model.Competitor) {
	d := detail(c)
	rank, err := h.deps.Rank(r.Context(), c.Sport, c.ID)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	d.Rank = rank
	writeJSON(w, http.StatusOK, d)
}

// HandleSearch handles GET /api/v1/{sport}/search?q=.
func (h *DriversHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_drivers"
	hits, err := h.deps.Search(r.Context(), r.PathValue("sport"), r.URL.Query().Get("q"))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, summaries(hits))
}
