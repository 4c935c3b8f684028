package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/sportselo/internal/domain/model"
	"github.com/okian/sportselo/pkg/metrics"
)

const defaultMetricsUpdateInterval = 5 * time.Second

// sportIndex holds one sport's competitors plus an order-statistic tree
// per sort key. The id tree uses a constant score so it orders by id alone.
type sportIndex struct {
	byID    map[string]*model.Competitor
	current treap
	highest treap
	lowest  treap
	ids     treap
}

func newSportIndex() *sportIndex {
	return &sportIndex{byID: make(map[string]*model.Competitor)}
}

func (x *sportIndex) add(c *model.Competitor) {
	x.byID[c.ID] = c
	x.current.insert(c.ID, c.Rating)
	x.highest.insert(c.ID, c.Highest.Value)
	x.lowest.insert(c.ID, c.Lowest.Value)
	x.ids.insert(c.ID, 0)
}

func (x *sportIndex) drop(c *model.Competitor) {
	delete(x.byID, c.ID)
	x.current.remove(c.ID, c.Rating)
	x.highest.remove(c.ID, c.Highest.Value)
	x.lowest.remove(c.ID, c.Lowest.Value)
	x.ids.remove(c.ID, 0)
}

func (x *sportIndex) tree(k SortKey) *treap {
	switch k {
	case SortCurrent:
		return &x.current
	case SortLowest:
		return &x.lowest
	case SortID:
		return &x.ids
	default:
		return &x.highest
	}
}

// MemoryStore is an in-memory Store. Reads return copies; stored
// competitors are never handed out.
type MemoryStore struct {
	mu     sync.RWMutex
	sports map[string]*sportIndex
	closed bool

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a memory store with configuration options.
// Background metrics stop when ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sports:                make(map[string]*sportIndex),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, sport, id string) (*model.Competitor, error) {
	defer observe("get", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx, ok := s.sports[sport]; ok {
		if c, ok := idx.byID[id]; ok {
			return c.Clone(), nil
		}
	}
	metrics.RecordErrorByComponent("repository", "not_found")
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, sport, id)
}

// GetMany implements Store.
func (s *MemoryStore) GetMany(_ context.Context, sport string, ids []string) (map[string]*model.Competitor, error) {
	defer observe("get_many", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*model.Competitor, len(ids))
	idx, ok := s.sports[sport]
	if !ok {
		return out, nil
	}
	for _, id := range ids {
		if c, ok := idx.byID[id]; ok {
			out[id] = c.Clone()
		}
	}
	return out, nil
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, c *model.Competitor) error {
	defer observe("upsert", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	idx := s.index(c.Sport)
	if old, ok := idx.byID[c.ID]; ok {
		next := old.Clone()
		next.Profile = c.Profile
		idx.byID[c.ID] = next
		return nil
	}
	idx.add(c.Clone())
	return nil
}

// ApplyUpdates implements Store. Updates are staged on copies and only
// swapped in once every one of them has been recorded.
func (s *MemoryStore) ApplyUpdates(_ context.Context, sport string, updates []Update) error {
	defer observe("apply", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	idx := s.index(sport)
	staged := make(map[string]*model.Competitor, len(updates))
	order := make([]string, 0, len(updates))
	for _, u := range updates {
		id := u.Competitor.ID
		next, ok := staged[id]
		if !ok {
			if old, known := idx.byID[id]; known {
				next = old.Clone()
			} else {
				next = u.Competitor.Clone()
				next.Sport = sport
			}
			staged[id] = next
			order = append(order, id)
		}
		if err := next.Record(u.Value, u.OccurredOn); err != nil {
			metrics.RecordErrorByComponent("repository", "out_of_order")
			return err
		}
	}

	for _, id := range order {
		if old, ok := idx.byID[id]; ok {
			idx.drop(old)
		}
		idx.add(staged[id])
	}
	return nil
}

// Page implements Store.
func (s *MemoryStore) Page(_ context.Context, sport string, req PageRequest) (Page, error) {
	defer observe("page", time.Now())

	req, err := req.Normalize(0)
	if err != nil {
		return Page{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.sports[sport]
	if !ok {
		return newPage(req, 0), nil
	}

	t := idx.tree(req.SortBy)
	// The id tree is ascending, every other tree descending.
	reverse := req.SortOrder == Asc
	if req.SortBy == SortID {
		reverse = req.SortOrder == Desc
	}

	p := newPage(req, t.len())
	ids := t.window(req.Page*req.PageSize, req.PageSize, reverse)
	p.Competitors = make([]*model.Competitor, len(ids))
	for i, id := range ids {
		p.Competitors[i] = idx.byID[id].Clone()
	}
	return p, nil
}

// Search implements Store. Matches are returned by current rating, best first.
func (s *MemoryStore) Search(_ context.Context, sport, q string, limit int) ([]*model.Competitor, error) {
	defer observe("search", time.Now())

	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" || limit <= 0 {
		return []*model.Competitor{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Competitor{}
	idx, ok := s.sports[sport]
	if !ok {
		return out, nil
	}
	idx.current.walk(func(id string) bool {
		c := idx.byID[id]
		if Matches(c, q) {
			out = append(out, c.Clone())
		}
		return len(out) < limit
	})
	return out, nil
}

// Matches reports whether the lower-cased query q occurs in c's given
// name, family name, full name or code.
func Matches(c *model.Competitor, q string) bool {
	for _, field := range []string{c.GivenName, c.FamilyName, c.FullName(), c.Code} {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Rank implements Store.
func (s *MemoryStore) Rank(_ context.Context, sport, id string) (int, error) {
	defer observe("rank", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx, ok := s.sports[sport]; ok {
		if c, ok := idx.byID[id]; ok {
			return idx.current.rank(c.ID, c.Rating) + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: %s/%s", ErrNotFound, sport, id)
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context, sport string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.sports[sport]; ok {
		return len(idx.byID), nil
	}
	return 0, nil
}

// Close stops background work. Further writes fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.stopChan)
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// index returns the sport's index, creating it. Callers hold the write lock.
func (s *MemoryStore) index(sport string) *sportIndex {
	idx, ok := s.sports[sport]
	if !ok {
		idx = newSportIndex()
		s.sports[sport] = idx
	}
	return idx
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sport, idx := range s.sports {
		metrics.UpdateCompetitorsTotal(sport, len(idx.byID))
	}
}
