package app

import (
	"context"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-delivery/internal/config"
	"service-delivery/internal/logx"
	"service-delivery/internal/realtime"
	"service-delivery/internal/service/delivery"
	"service-delivery/internal/service/orders"
	"service-delivery/internal/validation"
)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect  dbConnectFunc
	loadConfig func() (*config.Config, error)
	logFatalf  func(string, ...interface{})
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect:  connectPostgres,
		loadConfig: config.Load,
		logFatalf:  log.Fatalf,
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(fn dbConnectFunc) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithConfig makes the container use cfg instead of reading the environment.
func (b *ContainerBuilder) WithConfig(cfg *config.Config) *ContainerBuilder {
	if cfg != nil {
		b.loadConfig = func() (*config.Config, error) { return cfg, nil }
	}
	return b
}

// WithRegistry registers the service metrics in reg instead of the default registry.
func (b *ContainerBuilder) WithRegistry(reg *prometheus.Registry) *ContainerBuilder {
	if reg != nil {
		b.registerer = reg
		b.gatherer = reg
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns a new dig container
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx, b.loadConfig); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerMetrics(container, b.registerer, b.gatherer); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if err := registerStorage(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerTransport(container); err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns a new dig container
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context, loadConfig func() (*config.Config, error)) error {
	return provideAll(container,
		func() context.Context { return ctx },
		loadConfig,
		NewLogger,
	)
}

type hubIn struct {
	dig.In

	Config      *config.Config
	Logger      logx.Logger
	Published   *prometheus.CounterVec `name:"realtime_events_published_total"`
	Dropped     prometheus.Counter     `name:"realtime_events_dropped_total"`
	Subscribers prometheus.Gauge       `name:"realtime_subscribers"`
}

func newHub(in hubIn) *realtime.Hub {
	return realtime.NewHub(in.Config.Delivery.SubscriberBuffer, in.Logger, realtime.WithMetrics(realtime.Metrics{
		Published:   in.Published,
		Dropped:     in.Dropped,
		Subscribers: in.Subscribers,
	}))
}

type coordinatorIn struct {
	dig.In

	Config   *config.Config
	Logger   logx.Logger
	Storage  *storage
	Hub      *realtime.Hub
	Codes    *validation.Generator
	Commands *prometheus.CounterVec `name:"delivery_commands_total"`
	Expired  prometheus.Counter     `name:"tracking_sessions_expired_total"`
}

func newCoordinator(in coordinatorIn) *delivery.Coordinator {
	return delivery.NewCoordinator(in.Storage.store, in.Hub, in.Codes,
		delivery.Config{
			TrackingMaxDuration: in.Config.Delivery.TrackingMaxDuration,
			OperationTimeout:    in.Config.Delivery.OperationTimeout,
		},
		in.Logger,
		delivery.WithMetrics(in.Commands, in.Expired),
	)
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		newHub,
		func(cfg *config.Config) *validation.Generator {
			return validation.NewGenerator(cfg.Delivery.CodePrefix, cfg.Delivery.CodeLength)
		},
		newCoordinator,
		func(c *delivery.Coordinator, logger logx.Logger) *orders.Processor {
			return orders.NewProcessor(c, logger)
		},
	)
}
