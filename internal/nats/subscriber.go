package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sourcegraph/conc"

	"github.com/Mirai3103/fib-api/internal/models"
)

const (
	DefaultRequestSubject = "fib.request"
	DefaultQueueGroup     = "fib-api-group"
	defaultReplyTimeout   = 5 * time.Second
	drainPollInterval     = 10 * time.Millisecond
)

// RequestProcessor handles one request. *worker.JobHandler implements it.
type RequestProcessor interface {
	Handle(ctx context.Context, req models.FibRequest) (models.FibResult, error)
}

// Subscriber answers Fibonacci requests sent with NATS request/reply.
type Subscriber struct {
	nc           *nats.Conn
	handler      RequestProcessor
	subject      string
	queueGroup   string
	replyTimeout time.Duration
	inFlight     conc.WaitGroup
}

// NewSubscriber creates a Subscriber; empty subject, queue group or a
// non-positive timeout fall back to the defaults.
func NewSubscriber(nc *nats.Conn, handler RequestProcessor, subject, queueGroup string, replyTimeout time.Duration) *Subscriber {
	if subject == "" {
		subject = DefaultRequestSubject
	}
	if queueGroup == "" {
		queueGroup = DefaultQueueGroup
	}
	if replyTimeout <= 0 {
		replyTimeout = defaultReplyTimeout
	}
	return &Subscriber{
		nc:           nc,
		handler:      handler,
		subject:      subject,
		queueGroup:   queueGroup,
		replyTimeout: replyTimeout,
	}
}

// Subscribe joins the queue group. Each message is answered on its own goroutine.
func (s *Subscriber) Subscribe() (*nats.Subscription, error) {
	subscription, err := s.nc.QueueSubscribe(s.subject, s.queueGroup, func(msg *nats.Msg) {
		s.inFlight.Go(func() { s.reply(msg) })
	})
	if err != nil {
		log.Errorf("Error subscribing to NATS subject %s: %v", s.subject, err)
		return nil, err
	}

	log.Infof("Subscribed to NATS subject: %s, queue group: %s", s.subject, s.queueGroup)
	return subscription, nil
}

// Drain stops sub from taking new requests, lets the queued ones be
// dispatched and then waits until every reply has been sent.
func (s *Subscriber) Drain(ctx context.Context, sub *nats.Subscription) error {
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("draining subscription on %s: %w", s.subject, err)
	}
	if err := waitUntil(ctx, func() bool { return !sub.IsValid() }); err != nil {
		return fmt.Errorf("waiting for subscription on %s to drain: %w", s.subject, err)
	}

	// No callback can run any more, so nothing is added to inFlight.
	s.inFlight.Wait()
	return nil
}

func (s *Subscriber) reply(msg *nats.Msg) {
	if msg.Reply == "" {
		log.Warnf("Dropping message on %s without a reply subject", msg.Subject)
		return
	}

	// An undecodable payload is treated like an unparseable path.
	var req models.FibRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Debugf("Error unmarshalling request: %v. Message data: %s", err, string(msg.Data))
			req = models.FibRequest{}
		}
	}
	req.Source = models.SourceNATS

	ctx, cancel := context.WithTimeout(context.Background(), s.replyTimeout)
	defer cancel()

	var body any
	result, err := s.handler.Handle(ctx, req)
	if err != nil {
		log.Warnf("Request on %s failed: %v", msg.Subject, err)
		body = models.ErrorResponse{Error: err.Error()}
	} else {
		body = result
	}

	data, err := json.Marshal(body)
	if err != nil {
		log.Errorf("Error marshalling reply: %v", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		log.Errorf("Error replying on %s: %v", msg.Reply, err)
	}
}
