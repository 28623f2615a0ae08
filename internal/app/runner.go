package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/dig"

	"service-delivery/internal/jobs"
	"service-delivery/internal/logx"
	"service-delivery/internal/service/delivery"
	"service-delivery/internal/transport/kafka"
	"service-delivery/internal/transport/mqtt"
)

const shutdownTimeout = 15 * time.Second

// Runner runs the service using a DI container
type Runner struct {
	runFn func(*dig.Container) error
	exit  func(int)
}

// NewRunner returns a new Runner
func NewRunner() *Runner {
	return &Runner{runFn: run, exit: os.Exit}
}

// MustRun runs the service and exits the process on an unexpected error.
func MustRun(container *dig.Container) {
	NewRunner().MustRun(container)
}

// MustRun starts the service using the provided DI container
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}

	logger := logx.Nop()
	_ = container.Invoke(func(l logx.Logger) { logger = l })

	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutdown requested, exiting")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Info("startup aborted: startup timeout exceeded")
	default:
		logger.Error("run error", logx.Err(err))
		r.exit(1)
	}
}

type runIn struct {
	dig.In

	Ctx         context.Context
	Logger      logx.Logger
	Server      *http.Server
	Debug       *http.Server `name:"debug_server" optional:"true"`
	Storage     *storage
	Coordinator *delivery.Coordinator
	Relay       *kafka.Relay
	Consumer    *kafka.Consumer
	GPS         *mqtt.Listener
	Janitor     *jobs.Janitor
}

func run(container *dig.Container) error {
	return container.Invoke(appRun)
}

// appRun starts components in order storage, relay, janitor, GPS, consumer,
// servers and stops them in reverse.
func appRun(in runIn) error {
	logger := in.Logger
	defer in.Storage.Close()

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	relayDone := goRun("event relay", logger, func() error { return in.Relay.Run(relayCtx) })

	if err := in.Janitor.Start(); err != nil {
		stopRelay()
		<-relayDone
		return err
	}

	if err := in.GPS.Start(in.Ctx); err != nil {
		// GPS по MQTT не критичен, HTTP ingress продолжает работать
		logger.Error("mqtt listener start failed", logx.Err(err))
	}

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	consumerDone := goRun("kafka consumer", logger, func() error { return in.Consumer.Run(consumerCtx) })

	// SSE streams never go idle; closing the hub releases them so Shutdown can finish.
	in.Server.RegisterOnShutdown(in.Coordinator.Shutdown)

	serverErr := make(chan error, 2)
	startServer(in.Server, "http", logger, serverErr)
	if in.Debug != nil {
		startServer(in.Debug, "debug", logger, serverErr)
	}

	var runErr error
	select {
	case <-in.Ctx.Done():
		logger.Info("shutting down service-delivery...")
		runErr = in.Ctx.Err()
	case err := <-serverErr:
		logger.Error("server failed, shutting down", logx.Err(err))
		runErr = err
	}

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if in.Debug != nil {
		gracefulShutdown(shCtx, in.Debug, logger)
	}
	gracefulShutdown(shCtx, in.Server, logger)

	stopConsumer()
	waitDone(shCtx, consumerDone, "kafka consumer", logger)
	if err := in.Consumer.Close(); err != nil {
		logger.Error("kafka consumer close error", logx.Err(err))
	}

	in.GPS.Stop()
	in.Janitor.Stop(shCtx)
	in.Coordinator.Shutdown()

	stopRelay()
	waitDone(shCtx, relayDone, "event relay", logger)
	if err := in.Relay.Close(); err != nil {
		logger.Error("event relay close error", logx.Err(err))
	}

	logger.Info("service-delivery stopped")
	return runErr
}

func startServer(server *http.Server, name string, logger logx.Logger, errCh chan<- error) {
	go func() {
		logger.Info("listening", logx.String("server", name), logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
}

func gracefulShutdown(ctx context.Context, srv *http.Server, logger logx.Logger) {
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown error", logx.String("addr", srv.Addr), logx.Err(err))
		if err := srv.Close(); err != nil {
			logger.Error("server close error", logx.Err(err))
		}
	}
}

func goRun(name string, logger logx.Logger, fn func() error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("background worker stopped", logx.String("worker", name), logx.Err(err))
		}
	}()
	return done
}

func waitDone(ctx context.Context, done <-chan struct{}, name string, logger logx.Logger) {
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("worker did not stop in time", logx.String("worker", name))
	}
}
