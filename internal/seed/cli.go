package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/sportselo/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging initializes the global logger on stdout and, when logFile is
// set, on that file too. The returned closer releases the file.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		if err := logger.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return io.NopCloser(nil), nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWith(io.MultiWriter(os.Stdout, file), logger.FormatText); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Season Seed Tool
================

Generates a synthetic motorsport season, submits it to a running rating
service and verifies the resulting ratings against a local replay.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sport string
        Sport id to seed (default "formula-one")
  -drivers int
        Number of drivers (default 20)
  -races int
        Number of races (default 22)
  -field int
        Entrants per race, 0 enters every driver (default 0)
  -workers int
        Concurrent workers for registration and verification (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -wait duration
        Maximum wait for the service to apply all races (default 1m)
  -start string
        Date of the first race, YYYY-MM-DD (default "2024-03-02")
  -seed uint
        Random seed (default 1)
  -output string
        File the generated season is written to
  -log string
        Log file for run output
  -verbose
        Log every failed request
  -help
        Show this help message

Examples:
  go run ./cmd/seed -drivers 30 -races 10 -field 20
  go run ./cmd/seed -url http://localhost:8080 -output season.json
`)
}
