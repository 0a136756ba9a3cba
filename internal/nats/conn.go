package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Mirai3103/fib-api/internal/config"
)

// Connect dials the server in cfg with reconnect handling and logging hooks.
func Connect(cfg config.NATSConfig) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("fib-api"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(time.Duration(cfg.ReconnectWaitSec)*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warnf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed.")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", cfg.URL, err)
	}
	return nc, nil
}

// DrainConn flushes pending publishes and closes nc, waiting until it is closed.
func DrainConn(ctx context.Context, nc *nats.Conn) error {
	if err := nc.Drain(); err != nil {
		return fmt.Errorf("draining NATS connection: %w", err)
	}
	if err := waitUntil(ctx, nc.IsClosed); err != nil {
		nc.Close()
		return fmt.Errorf("waiting for NATS connection to drain: %w", err)
	}
	return nil
}

func waitUntil(ctx context.Context, done func() bool) error {
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for !done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
