// Package api declares the rating service's HTTP contracts, route registration and middleware.
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/sportselo/internal/domain/model"
)

// Display precision of ratings and of probabilities in responses.
const (
	ratingPlaces      = 1
	probabilityPlaces = 4
)

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func rating(v float64) float64 { return round(v, ratingPlaces) }

func probability(v float64) float64 { return round(v, probabilityPlaces) }

type fullName struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
}

type ratingPoint struct {
	Value      float64   `json:"value"`
	OccurredOn time.Time `json:"occurredOn"`
}

func point(p model.RatingPoint) ratingPoint {
	return ratingPoint{Value: rating(p.Value), OccurredOn: p.OccurredOn}
}

// driverSummary is one leaderboard or search row.
type driverSummary struct {
	ID           string    `json:"id"`
	FullName     fullName  `json:"fullName"`
	Code         string    `json:"code,omitempty"`
	CurrentElo   float64   `json:"currentElo"`
	HighestElo   float64   `json:"highestElo"`
	LowestElo    float64   `json:"lowestElo"`
	LastRaceDate time.Time `json:"lastRaceDate"`
}

func summary(c *model.Competitor) driverSummary {
	return driverSummary{
		ID:           c.ID,
		FullName:     fullName{GivenName: c.GivenName, FamilyName: c.FamilyName},
		Code:         c.Code,
		CurrentElo:   rating(c.Rating),
		HighestElo:   rating(c.Highest.Value),
		LowestElo:    rating(c.Lowest.Value),
		LastRaceDate: c.Current().OccurredOn,
	}
}

func summaries(cs []*model.Competitor) []driverSummary {
	out := make([]driverSummary, len(cs))
	for i, c := range cs {
		out[i] = summary(c)
	}
	return out
}

type driversPage struct {
	Drivers       []driverSummary `json:"drivers"`
	Page          int             `json:"page"`
	PageSize      int             `json:"pageSize"`
	TotalElements int             `json:"totalElements"`
	TotalPages    int             `json:"totalPages"`
}

// driverDetail is the full record of one competitor.
type driverDetail struct {
	ID              string        `json:"id"`
	FullName        fullName      `json:"fullName"`
	Code            string        `json:"code"`
	PermanentNumber string        `json:"permanentNumber"`
	Nationality     string        `json:"nationality"`
	Rank            int           `json:"rank"`
	CurrentElo      ratingPoint   `json:"currentElo"`
	HighestElo      ratingPoint   `json:"highestElo"`
	LowestElo       ratingPoint   `json:"lowestElo"`
	EloRecord       []ratingPoint `json:"eloRecord"`
}

func detail(c *model.Competitor) driverDetail {
	record := make([]ratingPoint, len(c.History))
	for i, p := range c.History {
		record[i] = point(p)
	}
	return driverDetail{
		ID:              c.ID,
		FullName:        fullName{GivenName: c.GivenName, FamilyName: c.FamilyName},
		Code:            c.Code,
		PermanentNumber: c.PermanentNumber,
		Nationality:     c.Nationality,
		CurrentElo:      point(c.Current()),
		HighestElo:      point(c.Highest),
		LowestElo:       point(c.Lowest),
		EloRecord:       record,
	}
}

// profileRequest is the body of PUT /api/v1/{sport}/drivers/{id}.
type profileRequest struct {
	GivenName       string `json:"givenName"`
	FamilyName      string `json:"familyName"`
	Code            string `json:"code"`
	PermanentNumber string `json:"permanentNumber"`
	Nationality     string `json:"nationality"`
	// RegisteredOn dates the initial rating of a new competitor.
	RegisteredOn *date `json:"registeredOn,omitempty"`
}

func (p profileRequest) profile() model.Profile {
	return model.Profile{
		GivenName:       p.GivenName,
		FamilyName:      p.FamilyName,
		Code:            p.Code,
		PermanentNumber: p.PermanentNumber,
		Nationality:     p.Nationality,
	}
}
