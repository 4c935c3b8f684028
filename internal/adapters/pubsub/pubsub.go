// Package pubsub broadcasts rating updates to downstream consumers.
package pubsub

import (
	"context"

	"github.com/okian/sportselo/internal/domain/model"
)

// DefaultSubjectPrefix is prepended to the sport id to form a subject.
const DefaultSubjectPrefix = "sportselo.ratings"

// Publisher emits RatingsUpdated events.
type Publisher interface {
	Publish(ctx context.Context, ev model.RatingsUpdated) error
	Close() error
}

// Subject returns the subject events for sport are published on.
func Subject(prefix, sport string) string {
	return prefix + "." + sport
}

// Noop discards every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, model.RatingsUpdated) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }
