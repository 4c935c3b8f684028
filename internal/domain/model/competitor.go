// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// RatingPoint is one entry of a competitor's rating history.
type RatingPoint struct {
	Value      float64
	OccurredOn time.Time
}

// Profile holds descriptive, non-rating fields of a competitor.
type Profile struct {
	GivenName       string
	FamilyName      string
	Code            string
	PermanentNumber string
	Nationality     string
}

// FullName returns "Given Family", skipping empty parts.
func (p Profile) FullName() string {
	switch {
	case p.GivenName == "":
		return p.FamilyName
	case p.FamilyName == "":
		return p.GivenName
	}
	return p.GivenName + " " + p.FamilyName
}

// Competitor is a rated athlete. History is append-only and chronological;
// Highest and Lowest always bound every value in it.
type Competitor struct {
	ID    string
	Sport string
	Profile

	Rating  float64
	History []RatingPoint
	Highest RatingPoint
	Lowest  RatingPoint
}

// NewCompetitor creates a competitor whose history starts at initial.
func NewCompetitor(id, sport string, initial float64, ts time.Time) *Competitor {
	p := RatingPoint{Value: initial, OccurredOn: ts}
	return &Competitor{
		ID:      id,
		Sport:   sport,
		Rating:  initial,
		History: []RatingPoint{p},
		Highest: p,
		Lowest:  p,
	}
}

// Current returns the latest history point.
func (c *Competitor) Current() RatingPoint {
	if len(c.History) == 0 {
		return RatingPoint{Value: c.Rating}
	}
	return c.History[len(c.History)-1]
}

// Record appends value at ts and updates the running extremes. A point
// earlier than the last recorded one is rejected with ErrOutOfOrder and
// leaves c untouched. Ties on an extreme keep the earliest occurrence.
func (c *Competitor) Record(value float64, ts time.Time) error {
	if n := len(c.History); n > 0 && ts.Before(c.History[n-1].OccurredOn) {
		return fmt.Errorf("%w: %s at %s, last point at %s", ErrOutOfOrder,
			c.ID, ts.Format(time.RFC3339), c.History[n-1].OccurredOn.Format(time.RFC3339))
	}

	p := RatingPoint{Value: value, OccurredOn: ts}
	if len(c.History) == 0 {
		c.Highest, c.Lowest = p, p
	} else {
		if value > c.Highest.Value {
			c.Highest = p
		}
		if value < c.Lowest.Value {
			c.Lowest = p
		}
	}
	c.History = append(c.History, p)
	c.Rating = value
	return nil
}

// Clone returns a deep copy safe to hand across goroutines.
func (c *Competitor) Clone() *Competitor {
	out := *c
	out.History = make([]RatingPoint, len(c.History))
	copy(out.History, c.History)
	return &out
}
