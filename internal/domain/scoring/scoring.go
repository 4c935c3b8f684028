// Package scoring turns contests into rating changes using the elo engine.
package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/sportselo/internal/domain/elo"
	"github.com/okian/sportselo/internal/domain/model"
)

// ErrMissingRating is returned when a contest references a competitor
// whose pre-contest rating was not supplied.
var ErrMissingRating = errors.New("missing pre-contest rating")

// Option applies a configuration option to the EloScorer.
type Option func(*EloScorer)

// WithDeltaObserver registers fn to be called with every computed delta.
func WithDeltaObserver(fn func(kind model.Kind, delta float64)) Option {
	return func(s *EloScorer) {
		if fn != nil {
			s.observe = fn
		}
	}
}

// Scorer computes the rating changes a contest produces.
type Scorer interface {
	// Score returns one change per competitor in contest order. ratings
	// holds the pre-contest value of every involved competitor.
	Score(ctx context.Context, c *model.Contest, ratings map[string]float64) ([]model.RatingChange, error)
}

// EloScorer implements Scorer with the pairwise, team and race laws.
type EloScorer struct {
	observe func(model.Kind, float64)
}

// NewEloScorer creates a scorer with configuration options.
func NewEloScorer(opts ...Option) *EloScorer {
	s := &EloScorer{observe: func(model.Kind, float64) {}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the changes for c.
func (s *EloScorer) Score(ctx context.Context, c *model.Contest, ratings map[string]float64) ([]model.RatingChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("score contest %s: %w", c.ID, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var (
		changes []model.RatingChange
		err     error
	)
	switch c.Kind {
	case model.KindPairwise:
		changes, err = s.pairwise(c.Pairwise, ratings)
	case model.KindTeam:
		changes, err = s.team(c.Team, ratings)
	case model.KindRace:
		changes, err = s.race(c.Race, ratings)
	}
	if err != nil {
		return nil, fmt.Errorf("score contest %s: %w", c.ID, err)
	}

	for _, ch := range changes {
		s.observe(c.Kind, ch.Delta)
	}
	return changes, nil
}

func lookup(ratings map[string]float64, ids []string) ([]float64, error) {
	out := make([]float64, len(ids))
	for i, id := range ids {
		r, ok := ratings[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingRating, id)
		}
		out[i] = r
	}
	return out, nil
}

func change(id string, before, after float64) model.RatingChange {
	return model.RatingChange{CompetitorID: id, Before: before, After: after, Delta: after - before}
}

func (s *EloScorer) pairwise(p *model.PairwiseContest, ratings map[string]float64) ([]model.RatingChange, error) {
	rs, err := lookup(ratings, []string{p.A, p.B})
	if err != nil {
		return nil, err
	}
	a, b, err := elo.ApplyPairwiseResult(rs[0], rs[1], p.OutcomeA)
	if err != nil {
		return nil, err
	}
	return []model.RatingChange{change(p.A, rs[0], a), change(p.B, rs[1], b)}, nil
}

func (s *EloScorer) team(t *model.TeamContest, ratings map[string]float64) ([]model.RatingChange, error) {
	ra, err := lookup(ratings, t.TeamA)
	if err != nil {
		return nil, err
	}
	rb, err := lookup(ratings, t.TeamB)
	if err != nil {
		return nil, err
	}
	d, err := elo.ApplyTeamResult(ra, rb, t.OutcomeA)
	if err != nil {
		return nil, err
	}

	out := make([]model.RatingChange, 0, len(ra)+len(rb))
	for i, id := range t.TeamA {
		out = append(out, change(id, ra[i], ra[i]+d.A))
	}
	for i, id := range t.TeamB {
		out = append(out, change(id, rb[i], rb[i]+d.B))
	}
	return out, nil
}

func (s *EloScorer) race(r *model.RaceContest, ratings map[string]float64) ([]model.RatingChange, error) {
	ids := make([]string, len(r.Results))
	for i, f := range r.Results {
		ids[i] = f.CompetitorID
	}
	rs, err := lookup(ratings, ids)
	if err != nil {
		return nil, err
	}

	entrants := make([]elo.Entrant, len(r.Results))
	for i, f := range r.Results {
		entrants[i] = elo.Entrant{Rating: rs[i], Position: f.Position}
	}
	after, err := elo.ApplyRaceResult(entrants, len(entrants))
	if err != nil {
		return nil, err
	}

	out := make([]model.RatingChange, len(ids))
	for i, id := range ids {
		out[i] = change(id, rs[i], after[i])
	}
	return out, nil
}

// Check validates c against the rating laws without any ratings, so a
// contest that would fail in Score can be rejected at submission.
func Check(c *model.Contest) error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.Kind {
	case model.KindPairwise:
		if !c.Pairwise.OutcomeA.Valid() {
			return elo.ErrInvalidOutcome
		}
	case model.KindTeam:
		if len(c.Team.TeamA) == 0 || len(c.Team.TeamB) == 0 {
			return elo.ErrEmptyTeam
		}
		if !c.Team.OutcomeA.Valid() {
			return elo.ErrInvalidOutcome
		}
	case model.KindRace:
		entrants := make([]elo.Entrant, len(c.Race.Results))
		for i, f := range c.Race.Results {
			entrants[i] = elo.Entrant{Position: f.Position}
		}
		return elo.ValidateField(entrants, len(entrants))
	}
	return nil
}
