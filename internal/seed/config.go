// Package seed generates a synthetic motorsport season, submits it to a
// running rating service over HTTP and verifies the resulting ratings.
package seed

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Sport       string        // Sport id races are submitted under
	Drivers     int           // Number of drivers to register
	Races       int           // Number of races in the season
	FieldSize   int           // Entrants per race; 0 enters every driver
	Workers     int           // Concurrent HTTP workers for registration and reads
	Timeout     time.Duration // HTTP request timeout
	Wait        time.Duration // Maximum wait for the service to apply every race
	SeasonStart time.Time     // Date of the first race
	Seed        uint64        // Random seed; equal seeds give equal seasons
	OutputFile  string        // Where the generated season is written; empty skips
	Verbose     bool          // Log every request failure
}

// Driver is one generated competitor.
type Driver struct {
	ID         string `json:"id"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	Code       string `json:"code"`
}

// Race is one generated contest. Order lists driver ids from winner to last.
type Race struct {
	ID         string    `json:"id"`
	OccurredOn time.Time `json:"occurredOn"`
	Order      []string  `json:"order"`
}

// Season is everything a run submits.
type Season struct {
	Sport   string   `json:"sport"`
	Drivers []Driver `json:"drivers"`
	Races   []Race   `json:"races"`
}

// Stats holds run statistics.
type Stats struct {
	DriversRegistered int
	RacesSubmitted    int
	RacesAccepted     int
	RacesDuplicate    int
	RacesFailed       int
	Retries           int
	DriversVerified   int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
