// Package worker applies queued contests concurrently while keeping every
// competitor's contests in submission order.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sportselo/internal/domain/model"
	"github.com/okian/sportselo/pkg/logger"
	"github.com/okian/sportselo/pkg/metrics"
)

// Default pool configuration constants.
const (
	defaultWorkerMultiplier = 2
	defaultPendingPerWorker = 64
	metricsUpdateInterval   = 5 * time.Second
)

// Applier rates one contest.
type Applier interface {
	Apply(ctx context.Context, c model.Contest) error
}

// Queue defines how the pool receives contests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Contest
}

// InMemoryWorker applies the contests the sequencer hands it.
type InMemoryWorker struct {
	applier  Applier
	ready    <-chan model.Contest
	finished chan<- model.Contest
	logger   logger.Logger
}

// Run applies contests until ready is closed. Failures are logged and
// counted, never retried.
func (w *InMemoryWorker) Run(ctx context.Context) {
	for c := range w.ready {
		if err := w.apply(ctx, c); err != nil {
			w.logger.Error(ctx, "error applying contest",
				logger.String("contest_id", c.ID),
				logger.String("kind", string(c.Kind)),
				logger.Error(err),
			)
		}
		w.finished <- c
	}
}

func (w *InMemoryWorker) apply(ctx context.Context, c model.Contest) error { //nolint:gocritic // hugeParam: contests travel by value
	start := time.Now()
	defer func() {
		metrics.RecordApplyLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.applier.Apply(ctx, c); err != nil {
		metrics.RecordErrorByComponent("worker", "apply_error")
		return fmt.Errorf("apply contest %s: %w", c.ID, err)
	}
	return nil
}

// Pool runs a sequencer in front of N workers. A contest is handed to a
// worker only when none of its competitors is held by an in-flight contest
// and no earlier pending contest involves them.
type Pool struct {
	queue      Queue
	applier    Applier
	workers    []*InMemoryWorker
	maxPending int

	ready    chan model.Contest
	finished chan model.Contest

	inFlight atomic.Int64
	pending  atomic.Int64

	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once

	logger logger.Logger
}

// NewPool creates a worker pool. workerCount < 1 selects a CPU-based default.
func NewPool(workerCount int, queue Queue, applier Applier, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		queue:      queue,
		applier:    applier,
		maxPending: workerCount * defaultPendingPerWorker,
		ready:      make(chan model.Contest, workerCount),
		finished:   make(chan model.Contest, workerCount),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.workers = make([]*InMemoryWorker, workerCount)
	for i := range p.workers {
		p.workers[i] = &InMemoryWorker{
			applier:  applier,
			ready:    p.ready,
			finished: p.finished,
			logger:   p.logger.Named("worker-" + strconv.Itoa(i)),
		}
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches the sequencer and the workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	go p.sequence(ctx)
	go p.startMetricsUpdater(ctx)
}

// InFlight returns the number of contests currently being applied.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }

// Pending returns the number of dequeued contests waiting on a competitor.
func (p *Pool) Pending() int { return int(p.pending.Load()) }

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// sequence owns the pending list and the busy set; nothing else touches them.
func (p *Pool) sequence(ctx context.Context) {
	defer func() {
		close(p.ready)
		p.wg.Wait()
		close(p.done)
	}()

	var (
		pending []model.Contest
		busy    = make(map[string]struct{})
		in      = p.queue.Dequeue(ctx)
		drained bool
	)

	dispatch := func() {
		blocked := make(map[string]struct{})
		kept := pending[:0]
		for _, c := range pending {
			ids := c.CompetitorIDs()
			free := int(p.inFlight.Load()) < len(p.workers)
			for _, id := range ids {
				if _, ok := busy[id]; ok {
					free = false
				}
				if _, ok := blocked[id]; ok {
					free = false
				}
			}
			if !free {
				for _, id := range ids {
					blocked[id] = struct{}{}
				}
				kept = append(kept, c)
				continue
			}
			for _, id := range ids {
				busy[id] = struct{}{}
			}
			p.inFlight.Add(1)
			p.ready <- c
		}
		for i := len(kept); i < len(pending); i++ {
			pending[i] = model.Contest{}
		}
		pending = kept
		p.pending.Store(int64(len(pending)))
	}

	for {
		if drained && len(pending) == 0 && p.inFlight.Load() == 0 {
			return
		}

		src := in
		if drained || len(pending) >= p.maxPending {
			src = nil
		}

		select {
		case <-ctx.Done():
			return
		case c, ok := <-src:
			if !ok {
				drained = true
				continue
			}
			pending = append(pending, c)
			dispatch()
		case c := <-p.finished:
			for _, id := range c.CompetitorIDs() {
				delete(busy, id)
			}
			p.inFlight.Add(-1)
			dispatch()
		}
	}
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			metrics.UpdateWorkerInFlight(p.InFlight())
			metrics.UpdateWorkerPending(p.Pending())
		}
	}
}

// Shutdown closes the queue and waits until every accepted contest has
// been applied or ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.once.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(err))
			}
		}
	})

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out",
			logger.Int("in_flight", p.InFlight()),
			logger.Int("pending", p.Pending()),
		)
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once the pool has stopped.
func (p *Pool) Done() <-chan struct{} { return p.done }
