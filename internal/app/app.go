// Package app assembles the HTTP application from configuration, storage
// and the optional event broker.
package app

import (
	"errors"

	"propverse/internal/apperr"
	"propverse/internal/config"
	"propverse/internal/handlers"
	"propverse/internal/middleware"
	"propverse/internal/models"
	"propverse/internal/services"
	"propverse/pkg/logger"
	"propverse/pkg/metrics"
	"propverse/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Broker is the part of the RabbitMQ client the app depends on.
type Broker interface {
	services.EventPublisher
	ConsumePropertyEvents(handler func(rabbitmq.PropertyEvent) error) error
	IsConnected() bool
}

// App is a fully wired server.
type App struct {
	Fiber   *fiber.App
	Auth    *services.AuthService
	Metrics *metrics.Metrics
}

// New wires services, middleware and routes over storage. broker may be nil,
// in which case no events are published or consumed.
func New(cfg *config.Config, log *zap.Logger, storage *Storage, broker Broker) (*App, error) {
	m := metrics.New(cfg.MetricsPrefix)

	var publisher services.EventPublisher
	var brokerUp func() bool
	if broker != nil {
		publisher = broker
		brokerUp = broker.IsConnected
	}

	authService := services.NewAuthService(storage.Users, cfg.JWT.Secret, cfg.JWT.Expiration, log)
	propertyService := services.NewPropertyService(storage.Properties, storage.Amenities, storage.Users, publisher, log)

	if cfg.SeedAmenities {
		if _, err := propertyService.SeedAmenities(models.DefaultAmenities()); err != nil {
			return nil, err
		}
	}

	if broker != nil && cfg.Events.Consume {
		err := broker.ConsumePropertyEvents(func(event rabbitmq.PropertyEvent) error {
			m.EventConsumed(event.Event)
			log.Info("property event received",
				zap.String("event", event.Event),
				zap.Uint("property_id", event.PropertyID),
				zap.Uint("owner_id", event.OwnerID),
				zap.Time("occurred_at", event.OccurredAt))
			return nil
		})
		if err != nil {
			log.Error("failed to start property event consumer", zap.Error(err))
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "propverse",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.Middleware(log))
	app.Use(m.Middleware())

	app.Get("/metrics", m.Handler())

	guard := middleware.NewGuard(authService, m, log).Handler()
	api := app.Group("/api")
	handlers.NewHealthHandler(storage.Name, brokerUp).RegisterRoutes(api)
	handlers.NewAuthHandler(authService, guard, log).RegisterRoutes(api)
	handlers.NewPropertyHandler(propertyService, guard).RegisterRoutes(api)

	return &App{Fiber: app, Auth: authService, Metrics: m}, nil
}

// errorHandler renders errors that escape the handlers (unknown routes,
// recovered panics) with the same envelope as everything else.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error":   true,
				"message": fe.Message,
			})
		}
		log.Error("unhandled error", zap.String("path", utils.CopyString(c.Path())), zap.Error(err))
		return apperr.Respond(c, err)
	}
}
