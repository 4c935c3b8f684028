package sports

import "errors"

// Sentinel errors for sport lookups.
var (
	ErrUnknownSport    = errors.New("unknown sport")
	ErrInactiveSport   = errors.New("sport is not active")
	ErrKindNotAccepted = errors.New("contest kind not accepted by sport")
	ErrInvalidRegistry = errors.New("invalid sports registry")
)
