package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/sportselo/internal/adapters/repository"
	"github.com/okian/sportselo/internal/domain/elo"
	"github.com/okian/sportselo/internal/domain/model"
	"github.com/okian/sportselo/internal/domain/sports"
)

// Sports returns the registry in configuration order.
func (s *Service) Sports() []sports.Sport { return s.registry.All() }

func (s *Service) sport(id string) error {
	s.mu.RLock()
	ready := s.store != nil
	s.mu.RUnlock()
	if !ready {
		return ErrNotStarted
	}
	if _, ok := s.registry.Lookup(id); !ok {
		return fmt.Errorf("%w: %q", sports.ErrUnknownSport, id)
	}
	return nil
}

// Drivers returns one leaderboard page of a sport.
func (s *Service) Drivers(ctx context.Context, sport string, req repository.PageRequest) (repository.Page, error) {
	if err := s.sport(sport); err != nil {
		return repository.Page{}, err
	}
	req, err := req.Normalize(s.maxPageSize)
	if err != nil {
		return repository.Page{}, err
	}
	return s.store.Page(ctx, sport, req)
}

// Driver returns one competitor with its full history.
func (s *Service) Driver(ctx context.Context, sport, id string) (*model.Competitor, error) {
	if err := s.sport(sport); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, sport, id)
}

// Rank returns a competitor's 1-based position by current rating.
func (s *Service) Rank(ctx context.Context, sport, id string) (int, error) {
	if err := s.sport(sport); err != nil {
		return 0, err
	}
	return s.store.Rank(ctx, sport, id)
}

// Search returns up to the maximum page size of competitors matching q.
func (s *Service) Search(ctx context.Context, sport, q string) ([]*model.Competitor, error) {
	if err := s.sport(sport); err != nil {
		return nil, err
	}
	if strings.TrimSpace(q) == "" {
		return []*model.Competitor{}, nil
	}
	return s.store.Search(ctx, sport, q, s.maxPageSize)
}

// UpsertProfile registers a competitor or replaces the profile of a known
// one. A new competitor's history starts at the initial rating, dated at
// since, or now when since is zero. Ratings of known competitors are never
// touched.
func (s *Service) UpsertProfile(ctx context.Context, sport, id string, p model.Profile, since time.Time) (*model.Competitor, error) {
	if err := s.sport(sport); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: missing competitor id", model.ErrInvalidContest)
	}

	c, err := s.store.Get(ctx, sport, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if since.IsZero() {
			since = s.now().UTC()
		}
		c = model.NewCompetitor(id, sport, s.initialRating, since)
	case err != nil:
		return nil, err
	}
	c.Profile = p

	if err := s.store.Upsert(ctx, c); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, sport, id)
}

// PreviewPairwise applies the 1v1 law without touching any state.
func (s *Service) PreviewPairwise(ra, rb float64, outcome elo.Outcome) (elo.PairwiseBreakdown, error) {
	return elo.ExplainPairwise(ra, rb, outcome)
}

// PreviewTeam applies the team-average law without touching any state.
func (s *Service) PreviewTeam(teamA, teamB []float64, outcome elo.Outcome) (elo.TeamBreakdown, error) {
	return elo.ExplainTeam(teamA, teamB, outcome)
}

// PreviewRace applies the field-strength law without touching any state.
func (s *Service) PreviewRace(entrants []elo.Entrant) ([]elo.RaceBreakdown, error) {
	return elo.RaceBreakdowns(entrants, len(entrants))
}
