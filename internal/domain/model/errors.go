package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrOutOfOrder          = errors.New("rating point precedes competitor history")
	ErrInvalidContest      = errors.New("invalid contest")
	ErrDuplicateCompetitor = errors.New("competitor appears more than once in contest")
)
