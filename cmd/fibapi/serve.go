package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	appConfig "github.com/Mirai3103/fib-api/internal/config"
	"github.com/Mirai3103/fib-api/internal/core"
	"github.com/Mirai3103/fib-api/internal/httpapi"
	"github.com/Mirai3103/fib-api/internal/logging"
	"github.com/Mirai3103/fib-api/internal/metrics"
	natsClient "github.com/Mirai3103/fib-api/internal/nats"
	"github.com/Mirai3103/fib-api/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service (and the NATS responder when enabled)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := appConfig.LoadConfig(configPaths()...)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := logging.Setup(cfg.Log, cmd.ErrOrStderr()); err != nil {
				return err
			}
			cfg.OnLogLevelChange(logging.SetLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			return svc.run(ctx)
		},
	}
}

// service is the wired HTTP server plus the optional NATS responder.
type service struct {
	server     *httpapi.Server
	nc         *natsgo.Conn
	sub        *natsgo.Subscription
	subscriber *natsClient.Subscriber
}

// newService connects, subscribes and binds the HTTP listener.
func newService(cfg *appConfig.Config) (*service, error) {
	logrus.Info("Starting fib-api...")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := &service{}
	var publisher core.ResultPublisher
	if cfg.NATS.Enabled {
		nc, err := natsClient.Connect(cfg.NATS)
		if err != nil {
			return nil, err
		}
		logrus.Infof("Connected to NATS server: %s", cfg.NATS.URL)
		svc.nc = nc
		publisher = natsClient.NewPublisher(nc, cfg.NATS.ResultSubject)
	}

	runner := core.NewRunner(publisher, &cfg.Fib, m)
	jobHandler := worker.NewJobHandler(runner, &cfg.Runner, m)
	logrus.Infof("Ceiling is %d", runner.Ceiling())

	if svc.nc != nil {
		svc.subscriber = natsClient.NewSubscriber(svc.nc, jobHandler, cfg.NATS.RequestSubject, cfg.NATS.QueueGroup,
			time.Duration(cfg.NATS.ReplyTimeoutSec)*time.Second)
		sub, err := svc.subscriber.Subscribe()
		if err != nil {
			svc.nc.Close()
			return nil, fmt.Errorf("setting up NATS subscription: %w", err)
		}
		svc.sub = sub
	}

	svc.server = httpapi.NewServer(cfg.HTTP, httpapi.NewRouter(jobHandler, reg))
	if err := svc.server.Listen(); err != nil {
		if svc.nc != nil {
			svc.nc.Close()
		}
		return nil, err
	}
	return svc, nil
}

// run serves until ctx ends or the HTTP server fails, then shuts down:
// HTTP first, then the NATS subscription, then the connection.
func (s *service) run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.server.Start() }()

	var serveErr error
	select {
	case err := <-errCh:
		if err != nil {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logrus.Info("Shutting down fib-api...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var errs []error
	if serveErr == nil {
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	} else {
		errs = append(errs, serveErr)
	}
	if err := s.stopNATS(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *service) stopNATS(ctx context.Context) error {
	if s.nc == nil {
		return nil
	}
	if s.sub != nil {
		if err := s.subscriber.Drain(ctx, s.sub); err != nil {
			logrus.Warnf("Error draining subscription: %v", err)
		}
	}
	return natsClient.DrainConn(ctx, s.nc)
}
