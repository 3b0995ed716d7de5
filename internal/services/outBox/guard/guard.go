// Package guard keeps a redelivered inbound message from running a saga step twice.
package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type Result int

const (
	// Proceed means no outbox row exists for the step yet.
	Proceed Result = iota
	// Replayed means the step already completed and its message was published again.
	Replayed
	// Pending means the step is written and waits for the relay.
	Pending
	// Abandoned means the relay gave up on the step's message.
	Abandoned
)

func (r Result) String() string {
	switch r {
	case Proceed:
		return "proceed"
	case Replayed:
		return "replayed"
	case Pending:
		return "pending"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

type outBoxFinder interface {
	Find(ctx context.Context, sagaID uuid.UUID, msgType models.MessageType, sagaStatus models.SagaStatus) (*models.OutboxMessage, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *models.OutboxMessage) error
}

type Guard struct {
	log       logger.Logger
	finder    outBoxFinder
	publisher publisher
}

func New(log logger.Logger, finder outBoxFinder, publisher publisher) *Guard {
	return &Guard{
		log:       log,
		finder:    finder,
		publisher: publisher,
	}
}

// Check looks for the outbox row a step with the given saga status would write.
func (g *Guard) Check(
	ctx context.Context,
	sagaID uuid.UUID,
	msgType models.MessageType,
	sagaStatus models.SagaStatus,
) (Result, error) {
	const op = "services.outBox.guard.Check"

	msg, err := g.finder.Find(ctx, sagaID, msgType, sagaStatus)
	if err != nil {
		if errors.Is(err, internalErrors.ErrOutboxNotFound) {
			return Proceed, nil
		}

		return Proceed, fmt.Errorf("%s: find outbox message: %w", op, err)
	}

	switch msg.OutboxStatus {
	case models.OutboxStatusCompleted:
		if err = g.publisher.Publish(ctx, msg); err != nil {
			g.log.Error(op, logger.String("saga_id", sagaID.String()), logger.String("error", err.Error()))
			return Replayed, fmt.Errorf("%s: replay outbox message %s: %w", op, msg.ID, err)
		}

		g.log.Info(op,
			logger.String("saga_id", sagaID.String()),
			logger.String("type", string(msgType)),
			logger.String("result", Replayed.String()),
		)

		return Replayed, nil
	case models.OutboxStatusFailed:
		g.log.Warn(op,
			logger.String("saga_id", sagaID.String()),
			logger.String("type", string(msgType)),
			logger.String("result", Abandoned.String()),
		)

		return Abandoned, nil
	default:
		g.log.Debug(op,
			logger.String("saga_id", sagaID.String()),
			logger.String("type", string(msgType)),
			logger.String("result", Pending.String()),
		)

		return Pending, nil
	}
}
