package model

import "time"

// Ack acknowledges a submitted contest.
type Ack struct {
	ContestID string `json:"contestId"`
	Duplicate bool   `json:"duplicate"`
}

// RatingChange is one competitor's movement in a single contest.
type RatingChange struct {
	CompetitorID string  `json:"competitorId"`
	Before       float64 `json:"before"`
	After        float64 `json:"after"`
	Delta        float64 `json:"delta"`
}

// RatingsUpdated is emitted after a contest has been persisted.
type RatingsUpdated struct {
	ContestID  string         `json:"contestId"`
	Sport      string         `json:"sport"`
	Kind       Kind           `json:"kind"`
	OccurredOn time.Time      `json:"occurredOn"`
	Changes    []RatingChange `json:"changes"`
}
