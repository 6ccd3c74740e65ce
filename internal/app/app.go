// Package app wires the store, cache, event client and product service into a
// Fiber application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"catalog/internal/cache"
	"catalog/internal/config"
	"catalog/internal/dto"
	"catalog/internal/handlers"
	"catalog/internal/metrics"
	"catalog/internal/middleware"
	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type statser interface {
	Stats() cache.StatsSnapshot
}

// App is a fully wired catalog service.
type App struct {
	Fiber   *fiber.App
	Service *services.ProductService

	logger   *slog.Logger
	registry *prometheus.Registry
	store    repositories.ProductRepository
	cache    cache.Cache
	events   *rabbitmq.Client

	stopConsumer context.CancelFunc
	closers      []func() error
}

// New builds the App described by cfg. Resources opened before a failure are
// released before the error is returned.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if a.store, err = a.openStore(ctx, cfg); err != nil {
		return nil, err
	}
	if a.cache, err = a.openCache(ctx, cfg); err != nil {
		return nil, err
	}

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithMetrics(metrics.New(a.registry)),
		services.WithInvalidateOnCreate(cfg.CacheInvalidateOnCreate),
	}
	if cfg.RabbitMQURL != "" {
		a.events, err = rabbitmq.NewClient(rabbitmq.Config{
			URL:    cfg.RabbitMQURL,
			Queue:  cfg.RabbitMQQueue,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.events.Close)
		opts = append(opts, services.WithPublisher(a.events))
	} else {
		logger.Info("RabbitMQ URL not set, product events disabled")
	}

	a.Service = services.NewProductService(a.store, a.cache, opts...)

	if a.events != nil {
		consumerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.stopConsumer = cancel
		if err = a.events.ConsumeProductEvents(consumerCtx, a.HandleProductEvent); err != nil {
			return nil, err
		}
	}

	a.Fiber = a.newFiber()
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Config) (repositories.ProductRepository, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverMemory:
		a.logger.Info("Using in-memory product store")
		return repositories.NewInMemoryProductRepository(), nil
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	repo := repositories.NewGORMProductRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	a.logger.Info("Connected to product store", slog.String("driver", cfg.DBDriver))
	return repo, nil
}

func (a *App) openCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		a.logger.Info("REDIS_ADDR not set, using in-process cache", slog.Duration("ttl", cfg.CacheTTL))
		return cache.NewMemoryCache(cfg.CacheTTL), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	rc := cache.NewRedisCache(client, cfg.CachePrefix, cfg.CacheTTL)
	a.closers = append(a.closers, rc.Close)

	if err := rc.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.logger.Info("Connected to Redis", slog.String("addr", cfg.RedisAddr))
	return rc, nil
}

// HandleProductEvent reacts to product events received from the broker. A
// product.created event drops the cached product list.
func (a *App) HandleProductEvent(ctx context.Context, event rabbitmq.ProductEvent) error {
	switch event.EventType {
	case rabbitmq.EventProductCreated:
		a.Service.InvalidateListCache(ctx)
	default:
		a.logger.DebugContext(ctx, "Ignoring product event", slog.String("event_type", event.EventType))
	}
	return nil
}

func (a *App) newFiber() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: a.errorHandler,
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	// Outside recover so recovered panics still get an access log record.
	app.Use(middleware.RequestLogger(a.logger))
	app.Use(fiberrecover.New())

	handlers.NewProductHandler(a.Service, a.logger).RegisterRoutes(app)

	app.Get("/health", a.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	return app
}

// errorHandler renders errors no handler turned into a response, such as
// unknown routes and recovered panics.
func (a *App) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code = ferr.Code
		message = ferr.Message
	} else {
		a.logger.ErrorContext(c.UserContext(), "Unhandled request error", slog.String("error", err.Error()))
	}
	return c.Status(code).JSON(dto.Failure(dto.ErrorDTO{ErrorMessage: message}))
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true

	if p, ok := a.store.(pinger); ok {
		if err := p.Ping(c.UserContext()); err != nil {
			healthy = false
			checks["store"] = err.Error()
		} else {
			checks["store"] = "ok"
		}
	}
	if p, ok := a.cache.(pinger); ok {
		if err := p.Ping(c.UserContext()); err != nil {
			healthy = false
			checks["cache"] = err.Error()
		} else {
			checks["cache"] = "ok"
		}
	}
	if st, ok := a.cache.(statser); ok {
		checks["cache_stats"] = st.Stats()
	}

	status, code := "healthy", fiber.StatusOK
	if !healthy {
		status, code = "unhealthy", fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
		"checks": checks,
	})
}

// Shutdown stops the HTTP server and then releases every resource.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Fiber != nil {
		if err := a.Fiber.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("fiber shutdown: %w", err))
		}
	}
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close stops the event consumer and closes the cache, broker and database
// connections in reverse order of opening.
func (a *App) Close() error {
	if a.stopConsumer != nil {
		a.stopConsumer()
		a.stopConsumer = nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
