// Package elo implements the rating update laws: pairwise and team-average
// Elo with a fixed K, and the field-strength law used for motorsport.
//
// Every function is pure. Callers own competitor state and persistence.
package elo

import (
	"fmt"
	"math"
)

const (
	// Scale is the rating gap at which the stronger side is ten times as
	// likely to win.
	Scale = 400
	// PairwiseK is the multiplier for 1v1 and team contests.
	PairwiseK = 32
)

// Outcome is the actual score of a side in a two-sided contest.
type Outcome float64

// Valid outcomes.
const (
	Loss Outcome = 0
	Draw Outcome = 0.5
	Win  Outcome = 1
)

// Valid reports whether o is one of Loss, Draw or Win.
func (o Outcome) Valid() bool {
	return o == Loss || o == Draw || o == Win
}

// Opposite returns the outcome of the other side.
func (o Outcome) Opposite() Outcome {
	return 1 - o
}

// ParseOutcome maps "win", "draw" and "loss" to an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "win":
		return Win, nil
	case "draw":
		return Draw, nil
	case "loss":
		return Loss, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Draw:
		return "draw"
	case Loss:
		return "loss"
	}
	return fmt.Sprintf("outcome(%g)", float64(o))
}

// Quantity returns 10^(r/400).
func Quantity(r float64) float64 {
	return math.Pow(10, r/Scale)
}

// Expected returns the expected score of a side rated ra against rb.
func Expected(ra, rb float64) float64 {
	qa, qb := Quantity(ra), Quantity(rb)
	return qa / (qa + qb)
}

// Delta returns k(s - e).
func Delta(k, s, e float64) float64 {
	return k * (s - e)
}

func checkRating(rs ...float64) error {
	for _, r := range rs {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return ErrInvalidRating
		}
	}
	return nil
}

// PairwiseDelta returns the change for side A. Side B changes by the
// negation.
func PairwiseDelta(ra, rb float64, sa Outcome) (float64, error) {
	if err := checkRating(ra, rb); err != nil {
		return 0, err
	}
	if !sa.Valid() {
		return 0, ErrInvalidOutcome
	}
	return Delta(PairwiseK, float64(sa), Expected(ra, rb)), nil
}

// ApplyPairwiseResult returns both sides' ratings after a 1v1 contest.
func ApplyPairwiseResult(ra, rb float64, sa Outcome) (newA, newB float64, err error) {
	d, err := PairwiseDelta(ra, rb, sa)
	if err != nil {
		return ra, rb, err
	}
	return ra + d, rb - d, nil
}

// TeamDelta is the change applied, undivided, to every member of a side.
type TeamDelta struct {
	A float64
	B float64
}

// Mean returns the arithmetic mean of ratings; ok is false when empty.
func Mean(ratings []float64) (mean float64, ok bool) {
	if len(ratings) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return sum / float64(len(ratings)), true
}

// ApplyTeamResult computes the per-member delta for a team contest using
// the mean rating of each side.
func ApplyTeamResult(teamA, teamB []float64, sa Outcome) (TeamDelta, error) {
	if err := checkRating(teamA...); err != nil {
		return TeamDelta{}, err
	}
	if err := checkRating(teamB...); err != nil {
		return TeamDelta{}, err
	}
	ra, okA := Mean(teamA)
	rb, okB := Mean(teamB)
	if !okA || !okB {
		return TeamDelta{}, ErrEmptyTeam
	}
	d, err := PairwiseDelta(ra, rb, sa)
	if err != nil {
		return TeamDelta{}, err
	}
	return TeamDelta{A: d, B: -d}, nil
}
