// Package archive appends every applied rating change to ClickHouse for
// offline analysis.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/okian/sportselo/internal/domain/model"
	"github.com/okian/sportselo/pkg/metrics"
)

const createTable = `
CREATE TABLE IF NOT EXISTS rating_changes (
	contest_id    String,
	sport         LowCardinality(String),
	kind          LowCardinality(String),
	occurred_on   DateTime64(3, 'UTC'),
	competitor_id String,
	before        Float64,
	after         Float64,
	delta         Float64
) ENGINE = MergeTree
ORDER BY (sport, competitor_id, occurred_on)`

const insertChanges = `INSERT INTO rating_changes (contest_id, sport, kind, occurred_on, competitor_id, before, after, delta)`

// Config selects the ClickHouse server.
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseSink writes RatingsUpdated events as one row per change.
type ClickHouseSink struct {
	conn driver.Conn
}

// NewClickHouseSink connects, pings and creates the table when missing.
func NewClickHouseSink(ctx context.Context, cfg Config) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := conn.Exec(ctx, createTable); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create rating_changes: %w", err)
	}
	return &ClickHouseSink{conn: conn}, nil
}

// Rows flattens ev into insert rows in column order.
func Rows(ev model.RatingsUpdated) [][]any {
	out := make([][]any, 0, len(ev.Changes))
	for _, ch := range ev.Changes {
		out = append(out, []any{
			ev.ContestID, ev.Sport, string(ev.Kind), ev.OccurredOn.UTC(),
			ch.CompetitorID, ch.Before, ch.After, ch.Delta,
		})
	}
	return out
}

// Publish inserts the event's changes in one batch.
func (s *ClickHouseSink) Publish(ctx context.Context, ev model.RatingsUpdated) error {
	rows := Rows(ev)
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, insertChanges)
	if err != nil {
		metrics.RecordErrorByComponent("archive", "prepare")
		return fmt.Errorf("prepare rating_changes batch: %w", err)
	}
	for _, r := range rows {
		if err := batch.Append(r...); err != nil {
			_ = batch.Abort()
			metrics.RecordErrorByComponent("archive", "append")
			return fmt.Errorf("append rating change: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		metrics.RecordErrorByComponent("archive", "send")
		return fmt.Errorf("send rating_changes batch: %w", err)
	}
	return nil
}

// Close closes the ClickHouse connection.
func (s *ClickHouseSink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
