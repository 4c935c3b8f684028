package seed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sportselo/internal/domain/elo"
	"github.com/okian/sportselo/pkg/logger"
)

// ErrVerification is returned when the service state disagrees with the
// generated season.
var ErrVerification = errors.New("verification failed")

type summaryView struct {
	ID         string  `json:"id"`
	CurrentElo float64 `json:"currentElo"`
	HighestElo float64 `json:"highestElo"`
	LowestElo  float64 `json:"lowestElo"`
}

type pageView struct {
	Drivers       []summaryView `json:"drivers"`
	Page          int           `json:"page"`
	PageSize      int           `json:"pageSize"`
	TotalElements int           `json:"totalElements"`
	TotalPages    int           `json:"totalPages"`
}

type pointView struct {
	Value      float64   `json:"value"`
	OccurredOn time.Time `json:"occurredOn"`
}

type detailView struct {
	ID         string      `json:"id"`
	CurrentElo pointView   `json:"currentElo"`
	HighestElo pointView   `json:"highestElo"`
	LowestElo  pointView   `json:"lowestElo"`
	EloRecord  []pointView `json:"eloRecord"`
}

// Expectation is the locally replayed outcome of a season.
type Expectation struct {
	Ratings     map[string]float64
	Appearances map[string]int
}

// Replay runs the season through the rating engine from initial.
func Replay(season Season, initial float64) (Expectation, error) {
	exp := Expectation{
		Ratings:     make(map[string]float64, len(season.Drivers)),
		Appearances: make(map[string]int, len(season.Drivers)),
	}
	for _, d := range season.Drivers {
		exp.Ratings[d.ID] = initial
	}
	for _, race := range season.Races {
		entrants := make([]elo.Entrant, len(race.Order))
		for i, id := range race.Order {
			entrants[i] = elo.Entrant{Rating: exp.Ratings[id], Position: i + 1}
		}
		after, err := elo.ApplyRaceResult(entrants, len(entrants))
		if err != nil {
			return Expectation{}, fmt.Errorf("race %s: %w", race.ID, err)
		}
		for i, id := range race.Order {
			exp.Ratings[id] = after[i]
			exp.Appearances[id]++
		}
	}
	return exp, nil
}

type failures struct {
	mu   sync.Mutex
	msgs []string
}

func (f *failures) add(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, fmt.Sprintf(format, args...))
}

func (f *failures) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d problems, first: %s", ErrVerification, len(f.msgs), f.msgs[0])
}

// verifyResults checks the leaderboard and every generated driver against
// the replayed expectation.
func verifyResults(ctx context.Context, client *HTTPClient, cfg *Config, season Season, exp Expectation) (int, error) {
	log := logger.Get()
	var fails failures

	listed, err := verifyLeaderboard(ctx, client, cfg.Sport, &fails)
	if err != nil {
		return 0, err
	}
	for _, d := range season.Drivers {
		if !listed[d.ID] {
			fails.add("driver %s missing from leaderboard", d.ID)
		}
	}

	var verified atomic.Int64
	failed := forEach(ctx, cfg, len(season.Drivers), func(ctx context.Context, i int) error {
		id := season.Drivers[i].ID
		var d detailView
		if err := client.getJSON(ctx, "/api/v1/"+cfg.Sport+"/drivers/"+url.PathEscape(id), &d); err != nil {
			return err
		}
		verifyDriver(d, exp, &fails)
		verified.Add(1)
		return nil
	})
	if failed > 0 {
		fails.add("%d driver lookups failed", failed)
	}

	log.Info(ctx, "verification finished",
		logger.Int("drivers_verified", int(verified.Load())),
		logger.Int("problems", len(fails.msgs)))
	for _, m := range fails.msgs {
		log.Warn(ctx, "verification problem", logger.String("detail", m))
	}
	return int(verified.Load()), fails.err()
}

// verifyLeaderboard walks every page sorted by current rating and returns
// the ids it saw.
func verifyLeaderboard(ctx context.Context, client *HTTPClient, sport string, fails *failures) (map[string]bool, error) {
	seen := make(map[string]bool)
	prev := math.Inf(1)
	total := -1

	for page := 0; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("pageSize", strconv.Itoa(VerifyPageSize))
		q.Set("sortBy", "currentElo")
		q.Set("sortOrder", "desc")

		var p pageView
		if err := client.getJSON(ctx, "/api/v1/"+sport+"/drivers?"+q.Encode(), &p); err != nil {
			return nil, fmt.Errorf("failed to fetch leaderboard page %d: %w", page, err)
		}
		if total < 0 {
			total = p.TotalElements
			if p.PageSize <= 0 {
				return nil, fmt.Errorf("%w: leaderboard page size %d", ErrVerification, p.PageSize)
			}
			if want := (total + p.PageSize - 1) / p.PageSize; p.TotalPages != want {
				fails.add("totalPages %d, expected %d for %d drivers", p.TotalPages, want, total)
			}
		} else if p.TotalElements != total {
			fails.add("totalElements changed from %d to %d on page %d", total, p.TotalElements, page)
		}

		for _, s := range p.Drivers {
			if s.CurrentElo > prev {
				fails.add("leaderboard not sorted at %s: %.1f after %.1f", s.ID, s.CurrentElo, prev)
			}
			prev = s.CurrentElo
			if seen[s.ID] {
				fails.add("driver %s listed twice", s.ID)
			}
			seen[s.ID] = true
			if s.LowestElo > s.CurrentElo || s.CurrentElo > s.HighestElo {
				fails.add("driver %s extremes out of order: %.1f/%.1f/%.1f", s.ID, s.LowestElo, s.CurrentElo, s.HighestElo)
			}
		}
		if page+1 >= p.TotalPages || len(p.Drivers) == 0 {
			break
		}
	}

	if len(seen) != total {
		fails.add("leaderboard listed %d drivers, totalElements %d", len(seen), total)
	}
	return seen, nil
}

func verifyDriver(d detailView, exp Expectation, fails *failures) {
	if d.LowestElo.Value > d.CurrentElo.Value || d.CurrentElo.Value > d.HighestElo.Value {
		fails.add("driver %s extremes out of order", d.ID)
	}
	if want := exp.Appearances[d.ID] + 1; len(d.EloRecord) != want {
		fails.add("driver %s has %d record points, expected %d", d.ID, len(d.EloRecord), want)
	}
	for i := 1; i < len(d.EloRecord); i++ {
		if d.EloRecord[i].OccurredOn.Before(d.EloRecord[i-1].OccurredOn) {
			fails.add("driver %s record not chronological at %d", d.ID, i)
			break
		}
	}
	if n := len(d.EloRecord); n > 0 && d.EloRecord[n-1].Value != d.CurrentElo.Value {
		fails.add("driver %s current %.1f differs from last record %.1f", d.ID, d.CurrentElo.Value, d.EloRecord[n-1].Value)
	}
	if want := exp.Ratings[d.ID]; math.Abs(d.CurrentElo.Value-want) > RatingTolerance {
		fails.add("driver %s rating %.1f, replay gives %.4f", d.ID, d.CurrentElo.Value, want)
	}
}
