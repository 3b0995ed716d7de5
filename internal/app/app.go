// Package app wires a service's stores, coordinator, relay, consumers and ops server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	httpapp "github.com/tumbleweedd/food_ordering_system/internal/app/http"
	"github.com/tumbleweedd/food_ordering_system/internal/config"
	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	outBoxRepository "github.com/tumbleweedd/food_ordering_system/internal/repository/outBox"
	"github.com/tumbleweedd/food_ordering_system/internal/repository/transaction"
	"github.com/tumbleweedd/food_ordering_system/internal/services/outBox/guard"
	"github.com/tumbleweedd/food_ordering_system/internal/services/outBox/send"
	"github.com/tumbleweedd/food_ordering_system/pkg/brokers/kafka/consumer"
	"github.com/tumbleweedd/food_ordering_system/pkg/brokers/kafka/producer"
	"github.com/tumbleweedd/food_ordering_system/pkg/databases/postgres"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	log logger.Logger
	cfg *config.Config

	db         *postgres.PgDB
	producer   *producer.Producer
	outBox     *outBoxRepository.Repository
	tx         *transaction.Manager
	guard      *guard.Guard
	HTTPServer *httpapp.App
	Relay      *send.Service
	consumers  []*consumer.Consumer
}

// Topics routes every outbound message type to its Kafka topic.
func Topics(cfg config.TopicsConfig) map[models.MessageType]string {
	return map[models.MessageType]string{
		models.OrderCreateMessage:      cfg.OrderCreateRequest,
		models.PaymentRequestMessage:   cfg.PaymentRequest,
		models.PaymentResponseMessage:  cfg.PaymentResponse,
		models.ApprovalRequestMessage:  cfg.RestaurantApprovalRequest,
		models.ApprovalResponseMessage: cfg.RestaurantApprovalResponse,
	}
}

func newApp(ctx context.Context, log logger.Logger, cfg *config.Config, outbound []models.MessageType) (*App, error) {
	db, err := postgres.NewPostgresDB(ctx, log, postgres.DSN(
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.DbName, cfg.Postgres.Pwd, cfg.Postgres.SslMode,
	))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	syncProducer, err := producer.NewSyncProducer(cfg.Kafka.BrokerList)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	kafkaProducer := producer.New(log, syncProducer, Topics(cfg.Kafka.Topics), cfg.Breaker)
	outBox := outBoxRepository.New(log, db.GetDB())

	relay := send.New(log, outBox, outBox, kafkaProducer, outbound,
		send.WithInterval(cfg.Outbox.Interval),
		send.WithPublishTimeout(cfg.Outbox.PublishTimeout),
		send.WithBatchSize(cfg.Outbox.BatchSize),
	)

	return &App{
		log:        log,
		cfg:        cfg,
		db:         db,
		producer:   kafkaProducer,
		outBox:     outBox,
		tx:         transaction.New(log, db.GetDB()),
		guard:      guard.New(log, outBox, kafkaProducer),
		HTTPServer: httpapp.NewApp(log, db, cfg.HTTP.Port),
		Relay:      relay,
	}, nil
}

func (a *App) listen(topic string, handler consumer.Handler) {
	a.consumers = append(a.consumers, consumer.New(a.log, consumer.Config{
		Brokers:      a.cfg.Kafka.BrokerList,
		GroupID:      a.cfg.Kafka.ConsumerGroup,
		Topic:        topic,
		DLQPrefix:    a.cfg.Kafka.DLQPrefix,
		MaxRetries:   a.cfg.Kafka.MaxRetries,
		RetryBackoff: a.cfg.Kafka.RetryBackoff,
	}, handler, internalErrors.IsFatal))
}

// Run blocks until ctx is cancelled or one of the workers fails.
func (a *App) Run(ctx context.Context) error {
	const op = "app.Run"

	g, ctx := errgroup.WithContext(ctx)

	g.Go(a.HTTPServer.Run)

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return a.HTTPServer.Stop(shutdownCtx)
	})

	g.Go(func() error {
		return a.Relay.Run(ctx)
	})

	for _, c := range a.consumers {
		c := c
		g.Go(func() error {
			return c.Run(ctx)
		})
	}

	a.log.Info(op, logger.Int("consumers", len(a.consumers)))

	if err := g.Wait(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Stop releases the broker and database connections. Call it after Run returns.
func (a *App) Stop() error {
	const op = "app.Stop"

	var errs []error

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info(op, logger.String("status", "stopped"))

	return nil
}

// NewRelayApp builds only the outbox side of a service, for draining its STARTED rows once.
func NewRelayApp(ctx context.Context, log logger.Logger, cfg *config.Config, outbound []models.MessageType) (*App, error) {
	return newApp(ctx, log, cfg, outbound)
}
