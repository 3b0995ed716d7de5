package outBox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/internal/repository/transaction"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

const columns = `id, saga_id, created_at, processed_at, type, payload, saga_status, domain_status, outbox_status, version`

type Repository struct {
	db *sqlx.DB

	log logger.Logger
	now func() time.Time
}

func New(log logger.Logger, db *sqlx.DB) *Repository {
	return &Repository{db: db, log: log, now: time.Now}
}

func (or *Repository) Save(ctx context.Context, msg *models.OutboxMessage) error {
	const op = "repository.outBox.Save"

	const query = `INSERT INTO "outbox" (` + columns + `) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10)`

	if _, err := transaction.Querier(ctx, or.db).ExecContext(ctx, query,
		msg.ID,
		msg.SagaID,
		msg.CreatedAt,
		msg.ProcessedAt,
		msg.Type,
		string(msg.Payload),
		msg.SagaStatus,
		msg.DomainStatus,
		msg.OutboxStatus,
		msg.Version,
	); err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: outbox insert error: %w", op, err)
	}

	return nil
}

// Find returns the newest row of the saga leg that is in the given saga status.
func (or *Repository) Find(
	ctx context.Context,
	sagaID uuid.UUID,
	msgType models.MessageType,
	sagaStatus models.SagaStatus,
) (*models.OutboxMessage, error) {
	const op = "repository.outBox.Find"

	const query = `SELECT ` + columns + ` FROM "outbox"
					WHERE saga_id = $1 AND type = $2 AND saga_status = $3
					ORDER BY created_at DESC
					LIMIT 1`

	return or.get(ctx, op, query, sagaID, msgType, sagaStatus)
}

// Latest returns the newest row of the saga leg, its saga status is the current status of the leg.
func (or *Repository) Latest(ctx context.Context, sagaID uuid.UUID, msgType models.MessageType) (*models.OutboxMessage, error) {
	const op = "repository.outBox.Latest"

	const query = `SELECT ` + columns + ` FROM "outbox"
					WHERE saga_id = $1 AND type = $2
					ORDER BY created_at DESC
					LIMIT 1`

	return or.get(ctx, op, query, sagaID, msgType)
}

func (or *Repository) FindByOutboxStatus(
	ctx context.Context,
	status models.OutboxStatus,
	msgType models.MessageType,
	limit int,
) ([]models.OutboxMessage, error) {
	const op = "repository.outBox.FindByOutboxStatus"

	const query = `SELECT ` + columns + ` FROM "outbox"
					WHERE outbox_status = $1 AND type = $2
					ORDER BY created_at
					LIMIT $3`

	var messages []models.OutboxMessage
	if err := sqlx.SelectContext(ctx, transaction.Querier(ctx, or.db), &messages, query, status, msgType, limit); err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: select outbox: %w", op, err)
	}

	return messages, nil
}

// Update writes the mutable columns of msg if nobody changed the row since msg was read.
// On success msg.Version is incremented, a stale version returns ErrOutboxStale.
func (or *Repository) Update(ctx context.Context, msg *models.OutboxMessage) error {
	const op = "repository.outBox.Update"

	const query = `UPDATE "outbox"
					SET saga_status = $1, domain_status = $2, outbox_status = $3, processed_at = $4, version = version + 1
					WHERE id = $5 AND version = $6`

	res, err := transaction.Querier(ctx, or.db).ExecContext(ctx, query,
		msg.SagaStatus,
		msg.DomainStatus,
		msg.OutboxStatus,
		msg.ProcessedAt,
		msg.ID,
		msg.Version,
	)
	if err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: outbox update error: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}

	if affected == 0 {
		or.log.Info(op,
			logger.String("outbox_id", msg.ID.String()),
			logger.Int("version", msg.Version),
			logger.String("result", "stale"),
		)
		return fmt.Errorf("%s: id %s version %d: %w", op, msg.ID, msg.Version, internalErrors.ErrOutboxStale)
	}

	msg.Version++

	return nil
}

// UpdateStatus moves msg to a new outbox status and stamps processed_at.
func (or *Repository) UpdateStatus(ctx context.Context, msg *models.OutboxMessage, status models.OutboxStatus) error {
	const op = "repository.outBox.UpdateStatus"

	if !msg.OutboxStatus.CanTransitionTo(status) {
		return fmt.Errorf("%s: %s -> %s: %w", op, msg.OutboxStatus, status, internalErrors.ErrOutboxInvalidTransition)
	}

	prevStatus, prevProcessedAt := msg.OutboxStatus, msg.ProcessedAt

	processedAt := or.now()
	msg.OutboxStatus = status
	msg.ProcessedAt = &processedAt

	if err := or.Update(ctx, msg); err != nil {
		msg.OutboxStatus, msg.ProcessedAt = prevStatus, prevProcessedAt
		return err
	}

	return nil
}

func (or *Repository) get(ctx context.Context, op, query string, args ...any) (*models.OutboxMessage, error) {
	var msg models.OutboxMessage
	if err := sqlx.GetContext(ctx, transaction.Querier(ctx, or.db), &msg, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internalErrors.ErrOutboxNotFound
		}

		or.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: select outbox: %w", op, err)
	}

	return &msg, nil
}
