// Package api declares the rating service's HTTP contracts, route registration and middleware.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/sportselo/internal/domain/elo"
	"github.com/okian/sportselo/internal/domain/model"
)

// date accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (UTC midnight).
type date time.Time

func (d *date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = date(t.UTC())
			return nil
		}
	}
	return fmt.Errorf("invalid date %q; want RFC3339 or YYYY-MM-DD", s)
}

func (d *date) time() time.Time {
	if d == nil {
		return time.Time{}
	}
	return time.Time(*d)
}

// outcome accepts "win", "draw", "loss" or the numeric score 1, 0.5, 0.
// Numbers outside that set are passed through and rejected by the engine.
type outcome elo.Outcome

func (o *outcome) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := elo.ParseOutcome(strings.ToLower(s))
		if err != nil {
			return err
		}
		*o = outcome(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("outcome must be win, draw, loss or a number: %w", err)
	}
	*o = outcome(f)
	return nil
}

type pairwiseBody struct {
	A       string  `json:"a"`
	B       string  `json:"b"`
	Outcome outcome `json:"outcome"`
}

type teamBody struct {
	TeamA   []string `json:"teamA"`
	TeamB   []string `json:"teamB"`
	Outcome outcome  `json:"outcome"`
}

type finishBody struct {
	CompetitorID string `json:"competitorId"`
	Position     int    `json:"position"`
}

type raceBody struct {
	Results []finishBody `json:"results"`
}

// contestRequest is the body of POST /api/v1/{sport}/contests. Exactly the
// payload named by kind must be present.
type contestRequest struct {
	ID         string        `json:"id"`
	Kind       model.Kind    `json:"kind"`
	OccurredOn *date         `json:"occurredOn"`
	Pairwise   *pairwiseBody `json:"pairwise,omitempty"`
	Team       *teamBody     `json:"team,omitempty"`
	Race       *raceBody     `json:"race,omitempty"`
}

func (r *contestRequest) contest(sport string) model.Contest {
	c := model.Contest{
		ID:         strings.TrimSpace(r.ID),
		Sport:      sport,
		Kind:       r.Kind,
		OccurredOn: r.OccurredOn.time(),
	}
	if r.Pairwise != nil {
		c.Pairwise = &model.PairwiseContest{A: r.Pairwise.A, B: r.Pairwise.B, OutcomeA: elo.Outcome(r.Pairwise.Outcome)}
	}
	if r.Team != nil {
		c.Team = &model.TeamContest{TeamA: r.Team.TeamA, TeamB: r.Team.TeamB, OutcomeA: elo.Outcome(r.Team.Outcome)}
	}
	if r.Race != nil {
		results := make([]model.Finish, len(r.Race.Results))
		for i, f := range r.Race.Results {
			results[i] = model.Finish{CompetitorID: f.CompetitorID, Position: f.Position}
		}
		c.Race = &model.RaceContest{Results: results}
	}
	return c
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
