package pubsub

import (
	"context"
	"errors"

	"github.com/okian/sportselo/internal/domain/model"
)

// Fanout publishes every event to each publisher in turn.
type Fanout []Publisher

// Publish implements Publisher. Every publisher is attempted; failures are joined.
func (f Fanout) Publish(ctx context.Context, ev model.RatingsUpdated) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Publisher.
func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
