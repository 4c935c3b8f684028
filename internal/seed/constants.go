package seed

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DrainPollInterval = 250 * time.Millisecond
	MaxBackoff        = time.Second
	InitialBackoff    = 50 * time.Millisecond
	VerifyPageSize    = 100
	// RatingTolerance absorbs the API's one-decimal rounding.
	RatingTolerance = 0.051
)
