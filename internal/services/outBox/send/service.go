// Package send is the outbox relay: it publishes STARTED rows and marks them COMPLETED.
package send

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

const (
	defaultInterval       = time.Second
	defaultPublishTimeout = 3 * time.Second
	defaultBatchSize      = 100
)

type outBoxGetter interface {
	FindByOutboxStatus(ctx context.Context, status models.OutboxStatus, msgType models.MessageType, limit int) ([]models.OutboxMessage, error)
}

type outBoxUpdater interface {
	UpdateStatus(ctx context.Context, msg *models.OutboxMessage, status models.OutboxStatus) error
}

type publisher interface {
	Publish(ctx context.Context, msg *models.OutboxMessage) error
}

type Option func(*Service)

func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithPublishTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.publishTimeout = timeout
		}
	}
}

func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

type Service struct {
	log          logger.Logger
	getter       outBoxGetter
	updater      outBoxUpdater
	publisher    publisher
	messageTypes []models.MessageType

	interval       time.Duration
	publishTimeout time.Duration
	batchSize      int
}

func New(
	log logger.Logger,
	getter outBoxGetter,
	updater outBoxUpdater,
	publisher publisher,
	messageTypes []models.MessageType,
	opts ...Option,
) *Service {
	s := &Service{
		log:            log,
		getter:         getter,
		updater:        updater,
		publisher:      publisher,
		messageTypes:   messageTypes,
		interval:       defaultInterval,
		publishTimeout: defaultPublishTimeout,
		batchSize:      defaultBatchSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run calls Send on every tick until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	const op = "services.outBox.send.Run"

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info(op, logger.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info(op, logger.String("status", "stopped"))
			return nil
		case <-ticker.C:
			if err := s.Send(ctx); err != nil && ctx.Err() == nil {
				s.log.Error(op, logger.String("error", err.Error()))
			}
		}
	}
}

// Send publishes one batch of STARTED rows for every message type of the service.
func (s *Service) Send(ctx context.Context) error {
	var errs []error
	for _, msgType := range s.messageTypes {
		if err := s.sendType(ctx, msgType); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Service) sendType(ctx context.Context, msgType models.MessageType) error {
	const op = "services.outBox.send.Send"

	messages, err := s.getter.FindByOutboxStatus(ctx, models.OutboxStatusStarted, msgType, s.batchSize)
	if err != nil {
		return fmt.Errorf("%s: fetch %s messages: %w", op, msgType, err)
	}

	for i := range messages {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.sendMessage(ctx, &messages[i])
	}

	return nil
}

func (s *Service) sendMessage(ctx context.Context, msg *models.OutboxMessage) {
	const op = "services.outBox.send.sendMessage"

	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	err := s.publisher.Publish(publishCtx, msg)
	cancel()

	status := models.OutboxStatusCompleted
	if err != nil {
		if !errors.Is(err, internalErrors.ErrPublishPermanent) {
			s.log.Warn(op,
				logger.String("outbox_id", msg.ID.String()),
				logger.String("type", string(msg.Type)),
				logger.String("error", err.Error()),
			)
			relayMessages.WithLabelValues(string(msg.Type), resultRetry).Inc()
			return
		}

		s.log.Error(op,
			logger.String("outbox_id", msg.ID.String()),
			logger.String("type", string(msg.Type)),
			logger.String("error", err.Error()),
		)
		status = models.OutboxStatusFailed
	}

	if err = s.updater.UpdateStatus(ctx, msg, status); err != nil {
		if errors.Is(err, internalErrors.ErrOutboxStale) {
			s.log.Info(op,
				logger.String("outbox_id", msg.ID.String()),
				logger.String("type", string(msg.Type)),
				logger.String("result", resultStale),
			)
			relayMessages.WithLabelValues(string(msg.Type), resultStale).Inc()
			return
		}

		s.log.Error(op, logger.String("outbox_id", msg.ID.String()), logger.String("error", err.Error()))
		relayMessages.WithLabelValues(string(msg.Type), resultRetry).Inc()
		return
	}

	if status == models.OutboxStatusFailed {
		relayMessages.WithLabelValues(string(msg.Type), resultFailed).Inc()
		return
	}

	relayMessages.WithLabelValues(string(msg.Type), resultCompleted).Inc()
}
