package elo

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every input error the engine returns.
var ErrValidation = errors.New("rating validation failed")

// Sentinel kinds for engine errors. Each wraps ErrValidation.
var (
	ErrInvalidRating      = fmt.Errorf("%w: rating must be a finite number", ErrValidation)
	ErrInvalidOutcome     = fmt.Errorf("%w: outcome must be 0, 0.5 or 1", ErrValidation)
	ErrEmptyTeam          = fmt.Errorf("%w: team has no members", ErrValidation)
	ErrFieldTooSmall      = fmt.Errorf("%w: race needs at least two entrants", ErrValidation)
	ErrFieldSizeMismatch  = fmt.Errorf("%w: field size does not match entrants", ErrValidation)
	ErrPositionOutOfRange = fmt.Errorf("%w: position out of range", ErrValidation)
	ErrDuplicatePosition  = fmt.Errorf("%w: duplicate finishing position", ErrValidation)
)
