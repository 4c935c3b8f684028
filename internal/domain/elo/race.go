package elo

import "math"

// Field-size scaled K for races: RaceBaseK + RaceFieldK/N.
const (
	RaceBaseK  = 30
	RaceFieldK = 70
)

// Entrant is one finisher of a race.
type Entrant struct {
	Rating   float64
	Position int
}

// RaceBreakdown carries every intermediate value of one entrant's update.
type RaceBreakdown struct {
	Before   float64
	SoF      float64
	Position int
	N        int
	Expected float64
	K        float64
	Score    float64
	Delta    float64
	After    float64
}

// StrengthOfField returns the mean pre-race rating.
func StrengthOfField(ratings []float64) float64 {
	m, _ := Mean(ratings)
	return m
}

// RaceKFactor returns 30 + 70/n.
func RaceKFactor(n int) (float64, error) {
	if n <= 1 {
		return 0, ErrFieldTooSmall
	}
	return RaceBaseK + RaceFieldK/float64(n), nil
}

// RaceScore returns 1 - (position-1)/(n-1): 1 for the winner, 0 for last.
func RaceScore(position, n int) (float64, error) {
	if n <= 1 {
		return 0, ErrFieldTooSmall
	}
	if position < 1 || position > n {
		return 0, ErrPositionOutOfRange
	}
	return 1 - float64(position-1)/float64(n-1), nil
}

// RaceExpected returns 1 / (1 + 10^((sof-before)/400)).
func RaceExpected(before, sof float64) float64 {
	return 1 / (1 + math.Pow(10, (sof-before)/Scale))
}

// RaceDelta computes one entrant's update against a given field strength.
func RaceDelta(before, sof float64, position, n int) (RaceBreakdown, error) {
	if err := checkRating(before, sof); err != nil {
		return RaceBreakdown{}, err
	}
	k, err := RaceKFactor(n)
	if err != nil {
		return RaceBreakdown{}, err
	}
	s, err := RaceScore(position, n)
	if err != nil {
		return RaceBreakdown{}, err
	}
	e := RaceExpected(before, sof)
	d := Delta(k, s, e)
	return RaceBreakdown{
		Before:   before,
		SoF:      sof,
		Position: position,
		N:        n,
		Expected: e,
		K:        k,
		Score:    s,
		Delta:    d,
		After:    before + d,
	}, nil
}

// ValidateField checks that entrants form a race of n finishers whose
// positions are a permutation of 1..n.
func ValidateField(entrants []Entrant, n int) error {
	if n <= 1 {
		return ErrFieldTooSmall
	}
	if len(entrants) != n {
		return ErrFieldSizeMismatch
	}
	seen := make([]bool, n+1)
	for _, e := range entrants {
		if err := checkRating(e.Rating); err != nil {
			return err
		}
		if e.Position < 1 || e.Position > n {
			return ErrPositionOutOfRange
		}
		if seen[e.Position] {
			return ErrDuplicatePosition
		}
		seen[e.Position] = true
	}
	return nil
}

// RaceBreakdowns validates the field and returns each entrant's update in
// input order. Every delta is measured against the same pre-race SoF.
func RaceBreakdowns(entrants []Entrant, n int) ([]RaceBreakdown, error) {
	if err := ValidateField(entrants, n); err != nil {
		return nil, err
	}
	ratings := make([]float64, len(entrants))
	for i, e := range entrants {
		ratings[i] = e.Rating
	}
	sof := StrengthOfField(ratings)

	out := make([]RaceBreakdown, len(entrants))
	for i, e := range entrants {
		b, err := RaceDelta(e.Rating, sof, e.Position, n)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// ApplyRaceResult returns the new rating of each entrant in input order.
func ApplyRaceResult(entrants []Entrant, n int) ([]float64, error) {
	bs, err := RaceBreakdowns(entrants, n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(bs))
	for i, b := range bs {
		out[i] = b.After
	}
	return out, nil
}
