package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/sportselo/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrInvalidConfig is returned by Run for unusable settings.
var ErrInvalidConfig = errors.New("invalid seed config")

type statsView struct {
	Started       bool    `json:"started"`
	InitialRating float64 `json:"initialRating"`
	QueueLength   int     `json:"queueLength"`
	InFlight      int     `json:"inFlight"`
	Pending       int     `json:"pending"`
}

type profileBody struct {
	GivenName    string `json:"givenName"`
	FamilyName   string `json:"familyName"`
	Code         string `json:"code"`
	RegisteredOn string `json:"registeredOn"`
}

type finishBody struct {
	CompetitorID string `json:"competitorId"`
	Position     int    `json:"position"`
}

type contestBody struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	OccurredOn time.Time `json:"occurredOn"`
	Race       struct {
		Results []finishBody `json:"results"`
	} `json:"race"`
}

// Validate reports settings Run cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Sport == "":
		return fmt.Errorf("%w: sport is required", ErrInvalidConfig)
	case c.Drivers < 2:
		return fmt.Errorf("%w: at least 2 drivers are required", ErrInvalidConfig)
	case c.Races < 1:
		return fmt.Errorf("%w: at least 1 race is required", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	return nil
}

// Run generates a season, submits it and verifies the service's ratings.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("seed")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting season seed",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("sport", cfg.Sport),
		logger.Int("drivers", cfg.Drivers),
		logger.Int("races", cfg.Races),
		logger.Int("fieldSize", cfg.FieldSize),
		logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	var st statsView
	if err := client.getJSON(ctx, "/stats", &st); err != nil {
		return stats, fmt.Errorf("failed to read service stats: %w", err)
	}

	// Step 2: Generate the season
	season := Generate(cfg)
	if cfg.OutputFile != "" {
		if err := saveSeason(cfg.OutputFile, season); err != nil {
			log.Warn(ctx, "failed to save season", logger.Error(err))
		} else {
			log.Info(ctx, "season saved to file", logger.String("filename", cfg.OutputFile))
		}
	}

	// Step 3: Register drivers concurrently
	if err := registerDrivers(ctx, client, cfg, season, stats); err != nil {
		return stats, fmt.Errorf("driver registration failed: %w", err)
	}

	// Step 4: Submit races in date order
	if err := submitRaces(ctx, client, cfg, season, stats); err != nil {
		return stats, fmt.Errorf("race submission failed: %w", err)
	}

	// Step 5: Wait for processing
	if err := waitForDrain(ctx, client, cfg.Wait); err != nil {
		return stats, fmt.Errorf("service did not drain: %w", err)
	}

	// Step 6: Verify results
	exp, err := Replay(season, st.InitialRating)
	if err != nil {
		return stats, fmt.Errorf("replay failed: %w", err)
	}
	verified, err := verifyResults(ctx, client, cfg, season, exp)
	stats.DriversVerified = verified
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	if err != nil {
		return stats, err
	}

	log.Info(ctx, "season seeded and verified")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	status, _, err := client.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	return nil
}

func registerDrivers(ctx context.Context, client *HTTPClient, cfg *Config, season Season, stats *Stats) error {
	since := registeredOn(cfg).Format(time.DateOnly)
	failed := forEach(ctx, cfg, len(season.Drivers), func(ctx context.Context, i int) error {
		d := season.Drivers[i]
		body := profileBody{GivenName: d.GivenName, FamilyName: d.FamilyName, Code: d.Code, RegisteredOn: since}
		status, resp, err := client.do(ctx, http.MethodPut, "/api/v1/"+cfg.Sport+"/drivers/"+url.PathEscape(d.ID), body)
		if err != nil {
			return err
		}
		if status/100 != 2 {
			return fmt.Errorf("register %s: status %d: %s", d.ID, status, resp)
		}
		return nil
	})
	stats.DriversRegistered = len(season.Drivers) - int(failed)
	logger.Get().Info(ctx, "drivers registered",
		logger.Int("registered", stats.DriversRegistered),
		logger.Int("failed", int(failed)))
	if failed > 0 {
		return fmt.Errorf("%d drivers could not be registered", failed)
	}
	return ctx.Err()
}

// submitRaces posts one race at a time. Consecutive races share drivers, so
// they must reach the service in date order.
func submitRaces(ctx context.Context, client *HTTPClient, cfg *Config, season Season, stats *Stats) error {
	for _, race := range season.Races {
		body := contestBody{ID: race.ID, Kind: "race", OccurredOn: race.OccurredOn}
		body.Race.Results = make([]finishBody, len(race.Order))
		for i, id := range race.Order {
			body.Race.Results[i] = finishBody{CompetitorID: id, Position: i + 1}
		}

		stats.RacesSubmitted++
		status, err := postWithRetry(ctx, client, "/api/v1/"+cfg.Sport+"/contests", body, stats)
		switch {
		case err != nil:
			stats.RacesFailed++
			return fmt.Errorf("race %s: %w", race.ID, err)
		case status == http.StatusAccepted:
			stats.RacesAccepted++
		case status == http.StatusOK:
			stats.RacesDuplicate++
		default:
			stats.RacesFailed++
			if cfg.Verbose {
				logger.Get().Warn(ctx, "race rejected", logger.String("race", race.ID), logger.Int("status", status))
			}
		}
	}
	logger.Get().Info(ctx, "races submitted",
		logger.Int("accepted", stats.RacesAccepted),
		logger.Int("duplicate", stats.RacesDuplicate),
		logger.Int("failed", stats.RacesFailed))
	if stats.RacesFailed > 0 {
		return fmt.Errorf("%d races rejected", stats.RacesFailed)
	}
	return nil
}

// postWithRetry retries while the service reports backpressure.
func postWithRetry(ctx context.Context, client *HTTPClient, path string, body any, stats *Stats) (int, error) {
	backoff := InitialBackoff
	for {
		status, _, err := client.do(ctx, http.MethodPost, path, body)
		if err != nil || status != http.StatusTooManyRequests {
			return status, err
		}
		stats.Retries++
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MaxBackoff)
	}
}

// waitForDrain polls /stats until the service reports no queued, pending or
// in-flight contests on two consecutive polls.
func waitForDrain(ctx context.Context, client *HTTPClient, limit time.Duration) error {
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}
	logger.Get().Info(ctx, "waiting for races to be processed")

	ticker := time.NewTicker(DrainPollInterval)
	defer ticker.Stop()
	idle := 0
	for {
		var st statsView
		if err := client.getJSON(ctx, "/stats", &st); err != nil {
			return err
		}
		if st.QueueLength == 0 && st.InFlight == 0 && st.Pending == 0 {
			idle++
			if idle >= 2 {
				return nil
			}
		} else {
			idle = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// saveSeason writes the generated season as indented JSON.
func saveSeason(filename string, season Season) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(season, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal season: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var racesPerSecond float64
	if stats.Duration > 0 {
		racesPerSecond = float64(stats.RacesSubmitted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("driversRegistered", stats.DriversRegistered),
		logger.Int("racesSubmitted", stats.RacesSubmitted),
		logger.Int("racesAccepted", stats.RacesAccepted),
		logger.Int("racesDuplicate", stats.RacesDuplicate),
		logger.Int("racesFailed", stats.RacesFailed),
		logger.Int("retries", stats.Retries),
		logger.Int("driversVerified", stats.DriversVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("racesPerSecond", racesPerSecond))
}
