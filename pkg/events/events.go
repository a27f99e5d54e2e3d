// Package events publishes finished verdicts for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/0x-stone/clauseguard/pkg/engine"
)

// DefaultSubject is the subject verdict events are published on.
const DefaultSubject = "clauseguard.verdicts"

// VerdictEvent is the payload of a published verdict.
type VerdictEvent struct {
	RunID      string          `json:"run_id"`
	URL        string          `json:"url"`
	AnalyzedAt time.Time       `json:"analyzed_at"`
	Verdict    *engine.Verdict `json:"verdict"`
}

// Publisher sends verdict events.
type Publisher interface {
	PublishVerdict(ctx context.Context, ev VerdictEvent) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

var _ Publisher = Noop{}

// PublishVerdict implements Publisher.
func (Noop) PublishVerdict(context.Context, VerdictEvent) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }

// NATSPublisher publishes verdict events as JSON on a NATS subject.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to url. An empty subject selects DefaultSubject.
func NewNATSPublisher(url, subject string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subject == "" {
		subject = DefaultSubject
	}
	nc, err := nats.Connect(url,
		nats.Name("clauseguard"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc, subject: subject, logger: logger}, nil
}

// PublishVerdict implements Publisher.
func (p *NATSPublisher) PublishVerdict(ctx context.Context, ev VerdictEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal verdict event: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.nc.Drain()
}
