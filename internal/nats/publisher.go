package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/Mirai3103/fib-api/internal/logging"
	"github.com/Mirai3103/fib-api/internal/models"
)

const (
	DefaultResultSubject = "fib.result"
)

var log = logging.For("nats")

// Publisher emits result events. It satisfies core.ResultPublisher.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher publishes on subject, or DefaultResultSubject when empty.
func NewPublisher(nc *nats.Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultResultSubject
	}
	return &Publisher{nc: nc, subject: subject}
}

// PublishResult sends event as JSON. It returns early if ctx is already done.
func (p *Publisher) PublishResult(ctx context.Context, event models.ResultEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling result event: %w", err)
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing result event to %s: %w", p.subject, err)
	}
	log.Debugf("Published result for n=%d (%d digits) to %s", event.N, event.Digits, p.subject)
	return nil
}
