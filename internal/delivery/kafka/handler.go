// Package listener turns inbound Kafka messages into coordinator calls.
package listener

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type base struct {
	log      logger.Logger
	validate *validator.Validate
}

func newBase(log logger.Logger) base {
	return base{
		log:      log,
		validate: validator.New(),
	}
}

func (b base) envelope(msg kafka.Message) (models.Envelope, error) {
	envelope, err := models.DecodeEnvelope(msg.Value)
	if err != nil {
		return models.Envelope{}, err
	}

	if err = b.check(envelope); err != nil {
		return models.Envelope{}, err
	}

	return envelope, nil
}

func (b base) check(v any) error {
	if err := b.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", internalErrors.ErrInvalidMessage, err)
	}

	return nil
}

// done swallows optimistic-lock conflicts: the concurrent handler that won already moved the saga.
func (b base) done(ctx context.Context, op string, envelope models.Envelope, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, internalErrors.ErrOutboxStale) {
		b.log.InfoContext(ctx, op,
			logger.String("saga_id", envelope.SagaID.String()),
			logger.String("type", string(envelope.Type)),
			logger.String("status", "stale"),
		)
		return nil
	}

	b.log.ErrorContext(ctx, op,
		logger.String("saga_id", envelope.SagaID.String()),
		logger.String("type", string(envelope.Type)),
		logger.String("error", err.Error()),
	)

	return err
}
