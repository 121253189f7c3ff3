// Package bootstrap wires configuration into the studio components shared by
// the service and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/pixeldojo-studio/internal/config"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/backend"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/controller"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/events"
	"github.com/cuongbtq/pixeldojo-studio/shared/logger"
	"github.com/cuongbtq/pixeldojo-studio/shared/rabbitmq"
	"github.com/cuongbtq/pixeldojo-studio/shared/telemetry"
)

// Studio bundles the generation client with the resources it owns
type Studio struct {
	Controller *controller.Controller
	Backend    *backend.Client

	rabbit   *rabbitmq.Client
	shutdown telemetry.ShutdownFunc
}

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(loggerConfig(cfg))
}

func loggerConfig(cfg *config.LoggingConfig) *logger.Config {
	return &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		NoColor:      cfg.NoColor,
	}
}

// InitTracer installs the stdout tracer when telemetry is enabled
func InitTracer(ctx context.Context, cfg *config.Config) (telemetry.ShutdownFunc, error) {
	if !cfg.Telemetry.Enabled {
		return telemetry.Noop, nil
	}

	return telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		PrettyPrint:    cfg.Telemetry.PrettyPrint,
	})
}

// InitRabbitMQ initializes the RabbitMQ client
func InitRabbitMQ(cfg *config.EventsConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// InitBackend initializes the generation API client
func InitBackend(cfg *config.BackendConfig, logger *slog.Logger) (*backend.Client, error) {
	return backend.NewClient(backend.Options{
		BaseURL:         cfg.BaseURL,
		RequestTimeout:  cfg.RequestTimeout,
		DownloadTimeout: cfg.DownloadTimeout,
		Logger:          logger,
	})
}

// NewStudio builds the tracer, event publisher, backend client and controller
func NewStudio(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Studio, error) {
	shutdown, err := InitTracer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	s := &Studio{shutdown: shutdown}

	client, err := InitBackend(&cfg.Backend, log.Component("backend"))
	if err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("failed to initialize backend client: %w", err)
	}
	s.Backend = client

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.Enabled {
		rabbitClient, err := InitRabbitMQ(&cfg.Events, log.Component("rabbitmq"))
		if err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		s.rabbit = rabbitClient
		publisher = events.NewAMQPPublisher(rabbitClient, log.Component("events"))

		log.Info("RabbitMQ connection established",
			slog.String("exchange", cfg.Events.Exchange.Name),
		)
	}

	s.Controller = controller.New(&controller.Config{
		Backend:         client,
		Publisher:       publisher,
		Logger:          log.Component("controller"),
		PollInterval:    cfg.Poll.Interval,
		MaxPollFailures: cfg.Poll.MaxConsecutiveFailures,
		MaxPollDuration: cfg.Poll.MaxDuration,
		PublishTimeout:  cfg.Events.Publish.Timeout,
		SampleImagePath: cfg.Studio.SampleImagePath,
	})

	return s, nil
}

// Close stops the controller, then flushes events and spans. Safe to call twice.
func (s *Studio) Close(ctx context.Context) error {
	if s.Controller != nil {
		s.Controller.Close()
	}

	var errs []error
	if s.rabbit != nil {
		if err := s.rabbit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close RabbitMQ: %w", err))
		}
		s.rabbit = nil
	}
	if s.shutdown != nil {
		if err := s.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
		}
		s.shutdown = nil
	}
	return errors.Join(errs...)
}
