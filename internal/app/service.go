// Package service wires the rating engine to storage, the contest queue
// and event publishing, and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/sportselo/internal/adapters/mq/queue"
	workerpool "github.com/okian/sportselo/internal/adapters/mq/worker"
	"github.com/okian/sportselo/internal/adapters/pubsub"
	"github.com/okian/sportselo/internal/adapters/repository"
	"github.com/okian/sportselo/internal/domain/dedupe"
	"github.com/okian/sportselo/internal/domain/model"
	"github.com/okian/sportselo/internal/domain/scoring"
	"github.com/okian/sportselo/internal/domain/sports"
	"github.com/okian/sportselo/pkg/logger"
	"github.com/okian/sportselo/pkg/metrics"
)

// Defaults used when no option overrides them.
const (
	DefaultInitialRating = 1500
	DefaultQueueSize     = 10_000
	DefaultDedupeSize    = 100_000
	DefaultMaxPageSize   = 100
)

// Service implements contest submission, application and leaderboard reads.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry  *sports.Registry
	store     repository.Store
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	scorer    scoring.Scorer
	publisher pubsub.Publisher
	pool      *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	initialRating float64
	maxPageSize   int

	started bool
	logger  logger.Logger
	now     func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued contests.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many contest ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithInitialRating sets the rating unseen competitors start from.
func WithInitialRating(r float64) Option {
	return func(s *Service) {
		if r > 0 {
			s.initialRating = r
		}
	}
}

// WithMaxPageSize caps leaderboard and search page sizes.
func WithMaxPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

// WithStore sets the competitor store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRegistry sets the sports registry.
func WithRegistry(r *sports.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithPublisher sets where RatingsUpdated events go. The service closes it on Stop.
func WithPublisher(p pubsub.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used to date new profiles.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU() * 2,
		queueSize:     DefaultQueueSize,
		dedupeSize:    DefaultDedupeSize,
		initialRating: DefaultInitialRating,
		maxPageSize:   DefaultMaxPageSize,
		publisher:     pubsub.Noop{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		// The built-in list is known to be valid.
		s.registry, _ = sports.NewRegistry(sports.Defaults())
	}
	return s
}

// Start builds the pipeline and launches the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting rating service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using in-memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.scorer = scoring.NewEloScorer(scoring.WithDeltaObserver(func(k model.Kind, d float64) {
		metrics.ObserveRatingDelta(string(k), d)
	}))

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s,
		workerpool.WithLogger(s.logger.Named("worker-pool")))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Float64("initialRating", s.initialRating),
	)
	return nil
}

// Stop drains the queue, waits for in-flight contests and closes the
// store and publisher. Contests still queued when ctx expires are lost.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping rating service...")

	var firstErr error
	if err := s.pool.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn(ctx, "error closing publisher", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "error closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
	return firstErr
}

// Registry returns the sports registry in use.
func (s *Service) Registry() *sports.Registry { return s.registry }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"initialRating": s.initialRating,
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len(ctx)
	stats["queueLength"] = queueLen
	stats["inFlight"] = s.pool.InFlight()
	stats["pending"] = s.pool.Pending()
	stats["dedupeEntries"] = s.deduper.Size()

	competitors := make(map[string]int)
	for _, sp := range s.registry.All() {
		n, err := s.store.Count(ctx, sp.ID)
		if err != nil {
			s.logger.Warn(ctx, "error counting competitors", logger.String("sport", sp.ID), logger.Error(err))
			continue
		}
		competitors[sp.ID] = n
		metrics.UpdateCompetitorsTotal(sp.ID, n)
	}
	stats["competitors"] = competitors

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateWorkerCount(s.workerCount)
	return stats
}
