// Package container wires the application together: database, repositories,
// identity directory, delivery hub, dispatcher, metrics, and services.
// Components initialize in dependency order and tear down in reverse.
package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/minhvu/order-approval/internal/application/dispatcher"
	"github.com/minhvu/order-approval/internal/application/port"
	"github.com/minhvu/order-approval/internal/application/service"
	"github.com/minhvu/order-approval/internal/config"
	"github.com/minhvu/order-approval/internal/domain/event"
	"github.com/minhvu/order-approval/internal/domain/permission"
	"github.com/minhvu/order-approval/internal/infrastructure/delivery"
	"github.com/minhvu/order-approval/internal/infrastructure/identity"
	"github.com/minhvu/order-approval/internal/infrastructure/persistence/repository"
	"github.com/minhvu/order-approval/internal/infrastructure/persistence/sqlite"
	"github.com/minhvu/order-approval/internal/observability"
	"github.com/minhvu/order-approval/pkg/database"
)

// RepositoryBundle groups all repositories for convenient access
type RepositoryBundle struct {
	Order        port.OrderRepository
	History      port.HistoryRepository
	Notification port.NotificationRepository
}

// ServiceBundle groups all application services
type ServiceBundle struct {
	Order        service.OrderService
	Notification service.NotificationService
	Metrics      service.MetricsService
}

// Container manages all application dependencies and their lifecycle
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure
	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle
	directory    *identity.Directory
	hub          *delivery.Hub

	// Application
	dispatcher dispatcher.Dispatcher
	metrics    *observability.Metrics
	services   *ServiceBundle

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// NewContainer creates a container from configuration. Components are not
// initialized until Start is called.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database, migrations, repositories
// 2. Identity directory
// 3. Delivery hub and metrics
// 4. Dispatcher and services, with fan-out subscriptions
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initIdentity(); err != nil {
		return fmt.Errorf("failed to initialize identity directory: %w", err)
	}
	c.logger.Info("Identity directory initialized")

	c.initDelivery()
	c.logger.Info("Delivery hub initialized")

	c.initServices()
	c.logger.Info("Services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close shuts components down in reverse order
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	var errs []error

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}
	if c.hub != nil {
		if err := c.hub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close delivery hub: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready reports whether all components are initialized
func (c *Container) Ready() bool {
	return c.ready.Load()
}

func (c *Container) initDatabase() error {
	db, err := database.New(database.Config{
		Path:            c.config.Database.Path,
		MaxOpenConns:    c.config.Database.MaxOpenConns,
		MaxIdleConns:    c.config.Database.MaxIdleConns,
		ConnMaxLifetime: c.config.Database.ConnMaxLifetime,
	}, c.logger)
	if err != nil {
		return err
	}
	c.db = db

	migrator := database.NewMigrator(db, c.logger)
	if err := migrator.Run(); err != nil {
		_ = db.Close()
		return fmt.Errorf("run migrations: %w", err)
	}

	c.txManager = sqlite.NewDB(db.DB, c.logger)
	c.repositories = &RepositoryBundle{
		Order:        repository.NewOrderRepository(db.DB, c.logger),
		History:      repository.NewHistoryRepository(db.DB, c.logger),
		Notification: repository.NewNotificationRepository(db.DB, c.logger),
	}
	return nil
}

func (c *Container) initIdentity() error {
	users := make([]identity.User, 0, len(c.config.Identity.Users))
	for _, u := range c.config.Identity.Users {
		role, err := permission.ParseRole(u.Role)
		if err != nil {
			return fmt.Errorf("user %s: %w", u.ID, err)
		}
		users = append(users, identity.User{ID: u.ID, Name: u.Name, Role: role})
	}

	directory, err := identity.NewDirectory(users)
	if err != nil {
		return err
	}
	c.directory = directory
	return nil
}

func (c *Container) initDelivery() {
	c.hub = delivery.NewHub(c.directory, c.config.Delivery.WriteTimeout, c.logger)
	c.metrics = observability.NewMetrics(prometheus.DefaultRegisterer)
}

func (c *Container) initServices() {
	svcLogger := &zapLoggerAdapter{logger: c.logger}
	c.dispatcher = dispatcher.NewDispatcher(svcLogger)

	gate := permission.NewGate()

	orderService := service.NewOrderService(
		c.repositories.Order,
		c.repositories.History,
		c.directory,
		gate,
		c.txManager,
		c.dispatcher,
		c.metrics,
		svcLogger,
	)

	notificationService := service.NewNotificationService(
		c.repositories.Notification,
		c.repositories.Order,
		c.directory,
		c.hub,
		c.metrics,
		svcLogger,
	)

	metricsService := service.NewMetricsService(
		c.repositories.Order,
		c.directory,
		c.config.Dashboard.PrioritySize,
		svcLogger,
	)

	c.dispatcher.SubscribeNamed(event.TypeOrderCreated, "notification-fanout", notificationService.HandleLifecycleEvent)
	c.dispatcher.SubscribeNamed(event.TypeOrderTransitioned, "notification-fanout", notificationService.HandleLifecycleEvent)

	c.services = &ServiceBundle{
		Order:        orderService,
		Notification: notificationService,
		Metrics:      metricsService,
	}
}

// Services returns all application services
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Repositories returns all repositories
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Hub returns the delivery hub
func (c *Container) Hub() *delivery.Hub {
	return c.hub
}

// Dispatcher returns the event dispatcher
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Metrics returns the metrics collectors
func (c *Container) Metrics() *observability.Metrics {
	return c.metrics
}

// Logger returns the container's logger
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// LoggerAdapter returns the key-value logging adapter over the container's
// zap logger
func (c *Container) LoggerAdapter() service.Logger {
	return &zapLoggerAdapter{logger: c.logger}
}

// zapLoggerAdapter adapts zap.Logger to the key-value Logger interfaces used
// by the application layer
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
