package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.ApiService/health"
	mqtbus "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Bus"
	config "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Config"
	mqtcontrol "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Control"
	mqtingestor "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Ingestor"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
	metrics "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Metrics"
	implementation "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Repository/Implementation"
	interfaces "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Repository/Interfaces"
	migrations "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Repository/Migrations"
)

// attemptTimeout bounds a single store connection attempt inside the retry budget
const attemptTimeout = 5 * time.Second

// Container manages dependencies and their lifecycle
type Container struct {
	config   *config.Config
	logger   *logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	store     interfaces.TelemetryStore
	bus       *mqtbus.PahoClient
	ingestor  *mqtingestor.Service
	publisher *mqtcontrol.Publisher
	checker   *health.HealthChecker

	// Mutex for thread-safe access
	mu sync.Mutex

	// Cleanup functions, run in reverse order
	cleanupFuncs []func(ctx context.Context) error
}

// NewContainer loads configuration and creates a new dependency container
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return New(cfg, logger.NewLogger(&cfg.Logging)), nil
}

// New creates a container from an already loaded configuration
func New(cfg *config.Config, log *logger.Logger) *Container {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Container{
		config:   cfg,
		logger:   log,
		registry: registry,
		metrics:  metrics.NewMetrics(registry),
	}
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetGatherer returns the registry served on /metrics
func (c *Container) GetGatherer() prometheus.Gatherer {
	return c.registry
}

// GetStore returns the telemetry store, connecting on first use. Connection
// attempts are retried with exponential backoff within DB_CONNECT_TIMEOUT.
func (c *Container) GetStore(ctx context.Context) (interfaces.TelemetryStore, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		return c.store, nil
	}

	storeLog := c.logger.WithComponent("store")
	connect := func() (interfaces.TelemetryStore, error) {
		switch c.config.Storage.Driver {
		case config.StorageDriverMongo:
			return c.connectMongo(ctx)
		case config.StorageDriverPostgres:
			return c.connectPostgres(ctx)
		default:
			return nil, backoff.Permanent(fmt.Errorf("unsupported storage driver %q", c.config.Storage.Driver))
		}
	}

	store, err := backoff.Retry(ctx, connect,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(c.config.Storage.ConnectTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			storeLog.Logger.Warn().Err(err).Dur("retry_in", next).Msg("Store connection failed, retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s store: %w", c.config.Storage.Driver, err)
	}

	c.store = store
	c.cleanupFuncs = append(c.cleanupFuncs, store.Close)
	storeLog.Logger.Info().Str("driver", c.config.Storage.Driver).Msg("Store connected")
	return c.store, nil
}

func (c *Container) connectPostgres(ctx context.Context) (interfaces.TelemetryStore, error) {
	db, err := implementation.OpenPostgres(ctx, c.config, attemptTimeout)
	if err != nil {
		return nil, err
	}
	if err := migrations.Apply(ctx, c.config.GetDatabaseDSN(), c.logger.WithComponent("migrations")); err != nil {
		db.Close()
		return nil, backoff.Permanent(err)
	}
	return implementation.NewPostgresTelemetryStore(db), nil
}

func (c *Container) connectMongo(ctx context.Context) (interfaces.TelemetryStore, error) {
	client, err := implementation.ConnectMongo(ctx, c.config.Storage.Mongo.URI, attemptTimeout)
	if err != nil {
		return nil, err
	}
	store := implementation.NewMongoTelemetryStore(client, c.config.Storage.Mongo.Database)
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

// GetBus returns the MQTT client. It is not connected until ConnectBus.
func (c *Container) GetBus() *mqtbus.PahoClient {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bus == nil {
		mqttCfg := c.config.MQTT
		mqttCfg.ClientID = fmt.Sprintf("%s-%s", mqttCfg.ClientID, uuid.NewString()[:8])
		c.bus = mqtbus.NewPahoClient(mqttCfg, c.config.GetMQTTBrokerURL(), c.logger)
	}
	return c.bus
}

// ConnectBus dials the broker and registers its disconnect for shutdown. The
// disconnect is registered first so a connect still retrying after ctx ends is
// stopped on shutdown.
func (c *Container) ConnectBus(ctx context.Context) error {
	bus := c.GetBus()
	c.AddCleanupFunc(func(context.Context) error {
		bus.Disconnect(250 * time.Millisecond)
		return nil
	})
	return bus.Connect(ctx)
}

// GetIngestor returns the ingestion service
func (c *Container) GetIngestor(ctx context.Context) (*mqtingestor.Service, error) {
	store, err := c.GetStore(ctx)
	if err != nil {
		return nil, err
	}
	bus := c.GetBus()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ingestor == nil {
		buffer := mqtingestor.NewChannelBuffer()
		dispatcher := mqtingestor.NewDispatcher(c.config.MQTT.TopicPrefix, buffer, c.logger, c.metrics)
		flusher := mqtingestor.NewFlusher(buffer, store, store, c.config.Flush, c.logger, c.metrics)
		c.ingestor = mqtingestor.NewService(bus, dispatcher, flusher, c.config.Flush.OnShutdown, c.logger)
	}
	return c.ingestor, nil
}

// GetPublisher returns the control publisher
func (c *Container) GetPublisher(ctx context.Context) (*mqtcontrol.Publisher, error) {
	store, err := c.GetStore(ctx)
	if err != nil {
		return nil, err
	}
	bus := c.GetBus()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.publisher == nil {
		c.publisher = mqtcontrol.NewPublisher(bus, store, c.config.MQTT.TopicPrefix, c.logger, c.metrics)
	}
	return c.publisher, nil
}

// GetHealthChecker returns the health checker
func (c *Container) GetHealthChecker(ctx context.Context) (*health.HealthChecker, error) {
	store, err := c.GetStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get store for health checker: %w", err)
	}
	bus := c.GetBus()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.checker == nil {
		c.checker = health.NewHealthChecker(store, bus, health.ServiceVersion)
	}
	return c.checker, nil
}

// Shutdown gracefully shuts down the container and all its dependencies
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}

// AddCleanupFunc adds a cleanup function
func (c *Container) AddCleanupFunc(fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
