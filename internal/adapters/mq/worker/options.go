package worker

import "github.com/okian/sportselo/pkg/logger"

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithMaxPending bounds how many dequeued contests may wait on busy
// competitors before the pool stops reading from the queue.
func WithMaxPending(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxPending = n
		}
	}
}

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
