package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/okian/sportselo/internal/domain/model"
	"github.com/okian/sportselo/pkg/metrics"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Times are stored as unix nanoseconds so both dialects scan them the same way.
const schema = `
CREATE TABLE IF NOT EXISTS competitors (
	sport            TEXT NOT NULL,
	id               TEXT NOT NULL,
	given_name       TEXT NOT NULL DEFAULT '',
	family_name      TEXT NOT NULL DEFAULT '',
	code             TEXT NOT NULL DEFAULT '',
	permanent_number TEXT NOT NULL DEFAULT '',
	nationality      TEXT NOT NULL DEFAULT '',
	rating           DOUBLE PRECISION NOT NULL,
	last_on          BIGINT NOT NULL,
	highest          DOUBLE PRECISION NOT NULL,
	highest_on       BIGINT NOT NULL,
	lowest           DOUBLE PRECISION NOT NULL,
	lowest_on        BIGINT NOT NULL,
	points           INTEGER NOT NULL,
	PRIMARY KEY (sport, id)
);
CREATE TABLE IF NOT EXISTS rating_history (
	sport         TEXT NOT NULL,
	competitor_id TEXT NOT NULL,
	seq           INTEGER NOT NULL,
	value         DOUBLE PRECISION NOT NULL,
	occurred_on   BIGINT NOT NULL,
	PRIMARY KEY (sport, competitor_id, seq)
);
CREATE INDEX IF NOT EXISTS competitors_rating ON competitors (sport, rating);
CREATE INDEX IF NOT EXISTS competitors_highest ON competitors (sport, highest);
CREATE INDEX IF NOT EXISTS competitors_lowest ON competitors (sport, lowest);
`

const competitorColumns = `id, sport, given_name, family_name, code, permanent_number, nationality,
	rating, last_on, highest, highest_on, lowest, lowest_on, points`

var sortColumns = map[SortKey]string{
	SortCurrent: "rating",
	SortHighest: "highest",
	SortLowest:  "lowest",
	SortID:      "id",
}

// SQLStore is a database/sql Store for sqlite3 and postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens dsn with driver and creates the schema when missing.
func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One connection keeps ":memory:" databases shared and serialises writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

// row is a competitor row without its history.
type row struct {
	c      model.Competitor
	lastOn int64
	points int
}

func scanRow(sc scanner) (*row, error) {
	var (
		r                   row
		highestOn, lowestOn int64
	)
	err := sc.Scan(&r.c.ID, &r.c.Sport, &r.c.GivenName, &r.c.FamilyName, &r.c.Code,
		&r.c.PermanentNumber, &r.c.Nationality, &r.c.Rating, &r.lastOn,
		&r.c.Highest.Value, &highestOn, &r.c.Lowest.Value, &lowestOn, &r.points)
	if err != nil {
		return nil, err
	}
	r.c.Highest.OccurredOn = fromNanos(highestOn)
	r.c.Lowest.OccurredOn = fromNanos(lowestOn)
	return &r, nil
}

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func (s *SQLStore) loadRow(ctx context.Context, q querier, sport, id string) (*row, error) {
	query := `SELECT ` + competitorColumns + ` FROM competitors WHERE sport = ? AND id = ?`
	r, err := scanRow(q.QueryRowContext(ctx, s.rebind(query), sport, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, sport, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s/%s: %w", sport, id, err)
	}
	return r, nil
}

func (s *SQLStore) loadHistory(ctx context.Context, q querier, sport, id string) ([]model.RatingPoint, error) {
	rows, err := q.QueryContext(ctx, s.rebind(
		`SELECT value, occurred_on FROM rating_history WHERE sport = ? AND competitor_id = ? ORDER BY seq`),
		sport, id)
	if err != nil {
		return nil, fmt.Errorf("history %s/%s: %w", sport, id, err)
	}
	defer rows.Close()

	var out []model.RatingPoint
	for rows.Next() {
		var (
			p  model.RatingPoint
			on int64
		)
		if err := rows.Scan(&p.Value, &on); err != nil {
			return nil, fmt.Errorf("history %s/%s: %w", sport, id, err)
		}
		p.OccurredOn = fromNanos(on)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, sport, id string) (*model.Competitor, error) {
	defer observe("get", time.Now())

	r, err := s.loadRow(ctx, s.db, sport, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordErrorByComponent("repository", "not_found")
		}
		return nil, err
	}
	c := r.c
	if c.History, err = s.loadHistory(ctx, s.db, sport, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetMany implements Store.
func (s *SQLStore) GetMany(ctx context.Context, sport string, ids []string) (map[string]*model.Competitor, error) {
	defer observe("get_many", time.Now())

	out := make(map[string]*model.Competitor, len(ids))
	for _, id := range ids {
		c, err := s.Get(ctx, sport, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, nil
}

func (s *SQLStore) insert(ctx context.Context, tx *sql.Tx, c *model.Competitor) error {
	cur := c.Current()
	_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO competitors (`+competitorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.Sport, c.GivenName, c.FamilyName, c.Code, c.PermanentNumber, c.Nationality,
		c.Rating, toNanos(cur.OccurredOn), c.Highest.Value, toNanos(c.Highest.OccurredOn),
		c.Lowest.Value, toNanos(c.Lowest.OccurredOn), len(c.History))
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", c.Sport, c.ID, err)
	}
	for i, p := range c.History {
		if err := s.insertPoint(ctx, tx, c.Sport, c.ID, i+1, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) insertPoint(ctx context.Context, tx *sql.Tx, sport, id string, seq int, p model.RatingPoint) error {
	_, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO rating_history (sport, competitor_id, seq, value, occurred_on) VALUES (?, ?, ?, ?, ?)`),
		sport, id, seq, p.Value, toNanos(p.OccurredOn))
	if err != nil {
		return fmt.Errorf("insert history %s/%s: %w", sport, id, err)
	}
	return nil
}

// Upsert implements Store.
func (s *SQLStore) Upsert(ctx context.Context, c *model.Competitor) error {
	defer observe("upsert", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = s.loadRow(ctx, tx, c.Sport, c.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		if err := s.insert(ctx, tx, c); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE competitors SET given_name = ?, family_name = ?,
			code = ?, permanent_number = ?, nationality = ? WHERE sport = ? AND id = ?`),
			c.GivenName, c.FamilyName, c.Code, c.PermanentNumber, c.Nationality, c.Sport, c.ID)
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", c.Sport, c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ApplyUpdates implements Store inside one transaction.
func (s *SQLStore) ApplyUpdates(ctx context.Context, sport string, updates []Update) error {
	defer observe("apply", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	staged := make(map[string]*row, len(updates))
	for _, u := range updates {
		id := u.Competitor.ID
		r, ok := staged[id]
		if !ok {
			r, err = s.loadRow(ctx, tx, sport, id)
			if errors.Is(err, ErrNotFound) {
				c := u.Competitor.Clone()
				c.Sport = sport
				if err := s.insert(ctx, tx, c); err != nil {
					return err
				}
				r = &row{c: *c, lastOn: toNanos(c.Current().OccurredOn), points: len(c.History)}
			} else if err != nil {
				return err
			}
			staged[id] = r
		}

		// Record only needs the last point to enforce ordering.
		r.c.History = []model.RatingPoint{{Value: r.c.Rating, OccurredOn: fromNanos(r.lastOn)}}
		if err := r.c.Record(u.Value, u.OccurredOn); err != nil {
			metrics.RecordErrorByComponent("repository", "out_of_order")
			return err
		}
		r.points++
		r.lastOn = toNanos(u.OccurredOn)

		if err := s.insertPoint(ctx, tx, sport, id, r.points, model.RatingPoint{Value: u.Value, OccurredOn: u.OccurredOn}); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE competitors SET rating = ?, last_on = ?,
			highest = ?, highest_on = ?, lowest = ?, lowest_on = ?, points = ? WHERE sport = ? AND id = ?`),
			r.c.Rating, r.lastOn, r.c.Highest.Value, toNanos(r.c.Highest.OccurredOn),
			r.c.Lowest.Value, toNanos(r.c.Lowest.OccurredOn), r.points, sport, id)
		if err != nil {
			return fmt.Errorf("update rating %s/%s: %w", sport, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Page implements Store. Rows carry only their latest history point.
func (s *SQLStore) Page(ctx context.Context, sport string, req PageRequest) (Page, error) {
	defer observe("page", time.Now())

	req, err := req.Normalize(0)
	if err != nil {
		return Page{}, err
	}
	total, err := s.Count(ctx, sport)
	if err != nil {
		return Page{}, err
	}
	p := newPage(req, total)

	col := sortColumns[req.SortBy]
	order := col + " DESC, id ASC"
	switch {
	case req.SortBy == SortID:
		order = "id " + strings.ToUpper(string(req.SortOrder))
	case req.SortOrder == Asc:
		order = col + " ASC, id DESC"
	}

	query := `SELECT ` + competitorColumns + ` FROM competitors WHERE sport = ? ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), sport, req.PageSize, req.Page*req.PageSize)
	if err != nil {
		return Page{}, fmt.Errorf("page %s: %w", sport, err)
	}
	if p.Competitors, err = collect(rows); err != nil {
		return Page{}, fmt.Errorf("page %s: %w", sport, err)
	}
	return p, nil
}

func collect(rows *sql.Rows) ([]*model.Competitor, error) {
	defer rows.Close()
	out := []*model.Competitor{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		c := r.c
		c.History = []model.RatingPoint{{Value: c.Rating, OccurredOn: fromNanos(r.lastOn)}}
		out = append(out, &c)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search implements Store.
func (s *SQLStore) Search(ctx context.Context, sport, q string, limit int) ([]*model.Competitor, error) {
	defer observe("search", time.Now())

	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" || limit <= 0 {
		return []*model.Competitor{}, nil
	}
	pattern := "%" + likeEscaper.Replace(q) + "%"

	query := `SELECT ` + competitorColumns + ` FROM competitors WHERE sport = ? AND (
		LOWER(given_name) LIKE ? ESCAPE '\' OR
		LOWER(family_name) LIKE ? ESCAPE '\' OR
		LOWER(given_name || ' ' || family_name) LIKE ? ESCAPE '\' OR
		LOWER(code) LIKE ? ESCAPE '\')
		ORDER BY rating DESC, id ASC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), sport, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", sport, err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", sport, err)
	}
	return out, nil
}

// Rank implements Store. Ties on rating are broken by id, as in Page.
func (s *SQLStore) Rank(ctx context.Context, sport, id string) (int, error) {
	defer observe("rank", time.Now())

	r, err := s.loadRow(ctx, s.db, sport, id)
	if err != nil {
		return 0, err
	}
	var ahead int
	query := `SELECT COUNT(*) FROM competitors WHERE sport = ? AND (rating > ? OR (rating = ? AND id < ?))`
	err = s.db.QueryRowContext(ctx, s.rebind(query), sport, r.c.Rating, r.c.Rating, id).Scan(&ahead)
	if err != nil {
		return 0, fmt.Errorf("rank %s/%s: %w", sport, id, err)
	}
	return ahead + 1, nil
}

// Count implements Store.
func (s *SQLStore) Count(ctx context.Context, sport string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM competitors WHERE sport = ?`), sport).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", sport, err)
	}
	metrics.UpdateCompetitorsTotal(sport, n)
	return n, nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
