package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/sportselo/internal/seed"
)

// Default configuration constants.
const (
	defaultDrivers    = 20
	defaultRaces      = 22
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultWait       = time.Minute
	defaultRunTimeout = 10 * time.Minute
	defaultStart      = "2024-03-02"
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sport      = flag.String("sport", "formula-one", "Sport id to seed")
		drivers    = flag.Int("drivers", defaultDrivers, "Number of drivers")
		races      = flag.Int("races", defaultRaces, "Number of races")
		field      = flag.Int("field", 0, "Entrants per race, 0 enters every driver")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait       = flag.Duration("wait", defaultWait, "Maximum wait for the service to apply all races")
		start      = flag.String("start", defaultStart, "Date of the first race, YYYY-MM-DD")
		seedValue  = flag.Uint64("seed", 1, "Random seed")
		outputFile = flag.String("output", "", "File the generated season is written to")
		logFile    = flag.String("log", "", "Log file for run output")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	seasonStart, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		_, _ = os.Stderr.WriteString("invalid -start: " + err.Error() + "\n")
		os.Exit(2)
	}

	closer, err := seed.SetupLogging(*logFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &seed.Config{
		BaseURL:     *baseURL,
		Sport:       *sport,
		Drivers:     *drivers,
		Races:       *races,
		FieldSize:   *field,
		Workers:     *workers,
		Timeout:     *timeout,
		Wait:        *wait,
		SeasonStart: seasonStart,
		Seed:        *seedValue,
		OutputFile:  *outputFile,
		Verbose:     *verbose,
	}

	if _, err := seed.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Seed failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
