package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"propverse/internal/app"
	"propverse/internal/config"
	"propverse/pkg/logger"
	"propverse/pkg/rabbitmq"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: "propverse"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting propverse", cfg.LogFields()...)
	if cfg.JWT.DevSecret {
		log.Warn("JWT_SECRET is not set, signing tokens with the development secret")
	}

	storage, err := app.OpenStorage(cfg.Storage, cfg.Env, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Error("error closing storage", zap.Error(err))
		}
	}()

	client := connectBroker(cfg.Events, log)
	var broker app.Broker
	if client != nil {
		broker = client
		defer func() {
			if err := client.Close(); err != nil {
				log.Error("error closing RabbitMQ client", zap.Error(err))
			}
		}()
	}

	server, err := app.New(cfg, log, storage, broker)
	if err != nil {
		return err
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Port))
		listenErr <- server.Fiber.Listen(cfg.Port)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	if err := server.Fiber.Shutdown(); err != nil {
		log.Error("error during Fiber shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
	return nil
}

// connectBroker returns nil when events are disabled or the broker is
// unreachable; the API keeps serving without events in both cases.
func connectBroker(cfg config.EventsConfig, log *zap.Logger) *rabbitmq.Client {
	if cfg.RabbitMQURL == "" {
		log.Info("RABBITMQ_URL not set, property events disabled")
		return nil
	}
	client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
	if err != nil {
		log.Error("failed to initialize RabbitMQ client, property events disabled", zap.Error(err))
		return nil
	}
	return client
}
