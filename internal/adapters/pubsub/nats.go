package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/okian/sportselo/internal/domain/model"
	"github.com/okian/sportselo/pkg/logger"
	"github.com/okian/sportselo/pkg/metrics"
)

// Option applies a configuration option to the NATSPublisher.
type Option func(*NATSPublisher)

// WithSubjectPrefix overrides DefaultSubjectPrefix.
func WithSubjectPrefix(prefix string) Option {
	return func(p *NATSPublisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// NATSPublisher publishes JSON encoded events on core NATS.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	logger logger.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to url.
func NewNATSPublisher(url string, opts ...Option) (*NATSPublisher, error) {
	p := &NATSPublisher{
		prefix: DefaultSubjectPrefix,
		logger: logger.Get().Named("nats"),
	}
	for _, opt := range opts {
		opt(p)
	}

	nc, err := nats.Connect(url,
		nats.Name("sportselo"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.Warn(context.Background(), "nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			p.logger.Info(context.Background(), "nats reconnected", logger.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	p.nc = nc
	return p, nil
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, ev model.RatingsUpdated) error {
	data, err := json.Marshal(ev)
	if err != nil {
		metrics.RecordEventPublished("error")
		return fmt.Errorf("marshal ratings event %s: %w", ev.ContestID, err)
	}

	subject := Subject(p.prefix, ev.Sport)
	if err := p.nc.Publish(subject, data); err != nil {
		metrics.RecordEventPublished("error")
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	metrics.RecordEventPublished("ok")
	p.logger.Debug(ctx, "published ratings event",
		logger.String("subject", subject),
		logger.String("contest_id", ev.ContestID),
		logger.Int("changes", len(ev.Changes)),
	)
	return nil
}

// Subscribe delivers decoded events for sport ("*" for every sport) to fn.
func (p *NATSPublisher) Subscribe(sport string, fn func(model.RatingsUpdated)) (*nats.Subscription, error) {
	subject := Subject(p.prefix, sport)
	sub, err := p.nc.Subscribe(subject, func(msg *nats.Msg) {
		var ev model.RatingsUpdated
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			p.logger.Error(context.Background(), "failed to decode ratings event",
				logger.String("subject", msg.Subject), logger.Error(err))
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, p.nc.Flush()
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
