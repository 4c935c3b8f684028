package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/sportselo/internal/domain/elo"
)

// Kind identifies which rating law a contest is applied with.
type Kind string

// Contest kinds.
const (
	KindPairwise Kind = "pairwise"
	KindTeam     Kind = "team"
	KindRace     Kind = "race"
)

// PairwiseContest is a 1v1 result from A's point of view.
type PairwiseContest struct {
	A        string
	B        string
	OutcomeA elo.Outcome
}

// TeamContest is a two-team result from team A's point of view.
type TeamContest struct {
	TeamA    []string
	TeamB    []string
	OutcomeA elo.Outcome
}

// Finish is one classified entrant of a race.
type Finish struct {
	CompetitorID string
	Position     int
}

// RaceContest is a multi-entrant finishing order.
type RaceContest struct {
	Results []Finish
}

// Contest is a tagged union of the three contest payloads. Exactly the
// payload matching Kind is set.
type Contest struct {
	ID         string
	Sport      string
	Kind       Kind
	OccurredOn time.Time

	Pairwise *PairwiseContest
	Team     *TeamContest
	Race     *RaceContest
}

// CompetitorIDs returns every competitor involved, in payload order.
func (c *Contest) CompetitorIDs() []string {
	switch c.Kind {
	case KindPairwise:
		if c.Pairwise == nil {
			return nil
		}
		return []string{c.Pairwise.A, c.Pairwise.B}
	case KindTeam:
		if c.Team == nil {
			return nil
		}
		ids := make([]string, 0, len(c.Team.TeamA)+len(c.Team.TeamB))
		ids = append(ids, c.Team.TeamA...)
		return append(ids, c.Team.TeamB...)
	case KindRace:
		if c.Race == nil {
			return nil
		}
		ids := make([]string, len(c.Race.Results))
		for i, f := range c.Race.Results {
			ids[i] = f.CompetitorID
		}
		return ids
	}
	return nil
}

// Validate checks the structural shape of the contest. Rating-law checks
// (team size, positions, outcome domain) are left to the elo package so
// they are reported with its sentinel errors.
func (c *Contest) Validate() error {
	switch {
	case strings.TrimSpace(c.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidContest)
	case strings.TrimSpace(c.Sport) == "":
		return fmt.Errorf("%w: missing sport", ErrInvalidContest)
	case c.OccurredOn.IsZero():
		return fmt.Errorf("%w: missing occurredOn", ErrInvalidContest)
	}

	payloads := 0
	for _, set := range []bool{c.Pairwise != nil, c.Team != nil, c.Race != nil} {
		if set {
			payloads++
		}
	}
	if payloads != 1 {
		return fmt.Errorf("%w: exactly one payload must be set", ErrInvalidContest)
	}

	switch c.Kind {
	case KindPairwise:
		if c.Pairwise == nil {
			return fmt.Errorf("%w: pairwise payload missing", ErrInvalidContest)
		}
	case KindTeam:
		if c.Team == nil {
			return fmt.Errorf("%w: team payload missing", ErrInvalidContest)
		}
	case KindRace:
		if c.Race == nil {
			return fmt.Errorf("%w: race payload missing", ErrInvalidContest)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidContest, c.Kind)
	}

	seen := make(map[string]struct{})
	for _, id := range c.CompetitorIDs() {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty competitor id", ErrInvalidContest)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateCompetitor, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
