package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/sportselo/internal/adapters/repository"
	"github.com/okian/sportselo/internal/domain/model"
	"github.com/okian/sportselo/internal/domain/scoring"
	"github.com/okian/sportselo/internal/domain/sports"
	"github.com/okian/sportselo/pkg/logger"
	"github.com/okian/sportselo/pkg/metrics"
)

// Submit validates c and queues it for rating. A contest id that was seen
// before is acknowledged as a duplicate and not queued again.
func (s *Service) Submit(ctx context.Context, c model.Contest) (model.Ack, error) { //nolint:gocritic // hugeParam: contests travel by value
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.Ack{}, ErrNotStarted
	}

	kind := string(c.Kind)
	if _, err := s.registry.Check(c.Sport, c.Kind); err != nil {
		metrics.RecordContestRejected(kind, rejectReason(err))
		return model.Ack{}, err
	}
	if err := scoring.Check(&c); err != nil {
		metrics.RecordContestRejected(kind, "invalid")
		return model.Ack{}, err
	}

	ack := model.Ack{ContestID: c.ID}
	if s.deduper.SeenAndRecord(ctx, c.ID) {
		metrics.RecordContestDuplicate()
		s.logger.Debug(ctx, "duplicate contest, skipping", logger.String("contest_id", c.ID))
		ack.Duplicate = true
		return ack, nil
	}

	if err := s.checkChronology(ctx, &c); err != nil {
		s.deduper.Unrecord(ctx, c.ID)
		metrics.RecordContestRejected(kind, "out_of_order")
		return model.Ack{}, err
	}

	if !s.queue.Enqueue(ctx, c) {
		s.deduper.Unrecord(ctx, c.ID)
		metrics.RecordContestRejected(kind, "backpressure")
		return model.Ack{}, ErrBackpressure
	}

	metrics.RecordContestSubmitted(kind)
	metrics.UpdateQueueSize(s.queue.Len(ctx))
	s.logger.Debug(ctx, "contest queued",
		logger.String("contest_id", c.ID),
		logger.String("sport", c.Sport),
		logger.String("kind", kind),
	)
	return ack, nil
}

// checkChronology rejects c when it is dated before the latest stored point
// of any of its competitors. Contests still queued are not considered; Apply
// catches those.
func (s *Service) checkChronology(ctx context.Context, c *model.Contest) error {
	known, err := s.store.GetMany(ctx, c.Sport, c.CompetitorIDs())
	if err != nil {
		return fmt.Errorf("load competitors: %w", err)
	}
	for id, comp := range known {
		if last := comp.Current().OccurredOn; c.OccurredOn.Before(last) {
			return fmt.Errorf("%w: contest %s dated %s, %s last rated %s", model.ErrOutOfOrder,
				c.ID, c.OccurredOn.Format(time.RFC3339), id, last.Format(time.RFC3339))
		}
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, sports.ErrUnknownSport):
		return "unknown_sport"
	case errors.Is(err, sports.ErrInactiveSport):
		return "inactive_sport"
	case errors.Is(err, sports.ErrKindNotAccepted):
		return "kind_mismatch"
	}
	return "invalid"
}

// Apply rates c and persists every resulting rating in one store call.
// Competitors the store does not know start at the initial rating, dated
// at the contest. Callers must apply contests sharing a competitor in
// submission order; the worker pool does. A contest that fails leaves no
// trace: its id is forgotten so it can be submitted again.
func (s *Service) Apply(ctx context.Context, c model.Contest) error { //nolint:gocritic // hugeParam: contests travel by value
	if err := s.apply(ctx, c); err != nil {
		s.deduper.Unrecord(ctx, c.ID)
		metrics.RecordContestRejected(string(c.Kind), "apply_failed")
		return err
	}
	return nil
}

func (s *Service) apply(ctx context.Context, c model.Contest) error { //nolint:gocritic // hugeParam: contests travel by value
	start := time.Now()
	ids := c.CompetitorIDs()

	known, err := s.store.GetMany(ctx, c.Sport, ids)
	if err != nil {
		return fmt.Errorf("load competitors: %w", err)
	}

	competitors := make(map[string]*model.Competitor, len(ids))
	ratings := make(map[string]float64, len(ids))
	for _, id := range ids {
		comp, ok := known[id]
		if !ok {
			comp = model.NewCompetitor(id, c.Sport, s.initialRating, c.OccurredOn)
		}
		competitors[id] = comp
		ratings[id] = comp.Rating
	}

	changes, err := s.scorer.Score(ctx, &c, ratings)
	if err != nil {
		return err
	}

	updates := make([]repository.Update, len(changes))
	for i, ch := range changes {
		updates[i] = repository.Update{
			Competitor: competitors[ch.CompetitorID],
			Value:      ch.After,
			OccurredOn: c.OccurredOn,
		}
	}
	if err := s.store.ApplyUpdates(ctx, c.Sport, updates); err != nil {
		return fmt.Errorf("persist ratings: %w", err)
	}
	metrics.RecordContestApplied(string(c.Kind))

	ev := model.RatingsUpdated{
		ContestID:  c.ID,
		Sport:      c.Sport,
		Kind:       c.Kind,
		OccurredOn: c.OccurredOn,
		Changes:    changes,
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn(ctx, "error publishing ratings update",
			logger.String("contest_id", c.ID),
			logger.Error(err),
		)
	}

	s.logger.Debug(ctx, "contest applied",
		logger.String("contest_id", c.ID),
		logger.Int("competitors", len(changes)),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}
