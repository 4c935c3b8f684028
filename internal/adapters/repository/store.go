// Package repository defines the competitor store and its implementations.
package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/sportselo/internal/domain/model"
)

// SortKey names a leaderboard ordering.
type SortKey string

// Sort keys accepted by Page.
const (
	SortCurrent SortKey = "currentElo"
	SortHighest SortKey = "highestElo"
	SortLowest  SortKey = "lowestElo"
	SortID      SortKey = "id"
)

// SortOrder is asc or desc.
type SortOrder string

// Sort orders accepted by Page.
const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Page request defaults.
const (
	DefaultPageSize  = 10
	DefaultSortKey   = SortHighest
	DefaultSortOrder = Desc
)

// PageRequest selects one page of a sport's leaderboard. Page is 0-based.
type PageRequest struct {
	Page      int
	PageSize  int
	SortBy    SortKey
	SortOrder SortOrder
}

// Normalize fills defaults, caps PageSize at maxPageSize (when > 0) and
// rejects values that cannot be served.
func (r PageRequest) Normalize(maxPageSize int) (PageRequest, error) {
	if r.SortBy == "" {
		r.SortBy = DefaultSortKey
	}
	if r.SortOrder == "" {
		r.SortOrder = DefaultSortOrder
	}
	if r.PageSize == 0 {
		r.PageSize = DefaultPageSize
	}
	if maxPageSize > 0 && r.PageSize > maxPageSize {
		r.PageSize = maxPageSize
	}

	switch {
	case r.Page < 0:
		return r, fmt.Errorf("%w: page must not be negative", ErrInvalidPage)
	case r.PageSize < 0:
		return r, fmt.Errorf("%w: pageSize must be positive", ErrInvalidPage)
	case r.PageSize > 0 && r.Page > math.MaxInt/r.PageSize:
		return r, fmt.Errorf("%w: page %d is out of range", ErrInvalidPage, r.Page)
	}
	switch r.SortBy {
	case SortCurrent, SortHighest, SortLowest, SortID:
	default:
		return r, fmt.Errorf("%w: unknown sortBy %q", ErrInvalidPage, r.SortBy)
	}
	switch r.SortOrder {
	case Asc, Desc:
	default:
		return r, fmt.Errorf("%w: unknown sortOrder %q", ErrInvalidPage, r.SortOrder)
	}
	return r, nil
}

// Page is one slice of a leaderboard plus totals.
type Page struct {
	Competitors   []*model.Competitor
	Page          int
	PageSize      int
	TotalElements int
	TotalPages    int
}

func newPage(req PageRequest, total int) Page {
	pages := 0
	if req.PageSize > 0 {
		pages = (total + req.PageSize - 1) / req.PageSize
	}
	return Page{Page: req.Page, PageSize: req.PageSize, TotalElements: total, TotalPages: pages}
}

// Update records one new rating point. Competitor carries the pre-contest
// state; when the store does not know it yet it is inserted first.
type Update struct {
	Competitor *model.Competitor
	Value      float64
	OccurredOn time.Time
}

// Store provides read/write access to competitors and their history.
type Store interface {
	// Get returns a competitor or ErrNotFound.
	Get(ctx context.Context, sport, id string) (*model.Competitor, error)
	// GetMany returns the known competitors among ids. Unknown ids are omitted.
	GetMany(ctx context.Context, sport string, ids []string) (map[string]*model.Competitor, error)
	// Upsert inserts c with its history, or updates the profile of an
	// existing competitor leaving its ratings untouched.
	Upsert(ctx context.Context, c *model.Competitor) error
	// ApplyUpdates records every update or none of them.
	ApplyUpdates(ctx context.Context, sport string, updates []Update) error
	// Page returns one page of the sport's leaderboard.
	Page(ctx context.Context, sport string, req PageRequest) (Page, error)
	// Search matches q case-insensitively against names and code.
	Search(ctx context.Context, sport, q string, limit int) ([]*model.Competitor, error)
	// Rank returns the 1-based position of a competitor on the current
	// rating leaderboard, or ErrNotFound.
	Rank(ctx context.Context, sport, id string) (int, error)
	// Count returns the number of competitors of a sport.
	Count(ctx context.Context, sport string) (int, error)

	Close() error
}
