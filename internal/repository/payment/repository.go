package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/internal/repository/transaction"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type Repository struct {
	log logger.Logger
	db  *sqlx.DB
}

func NewPaymentRepository(log logger.Logger, db *sqlx.DB) *Repository {
	return &Repository{
		log: log,
		db:  db,
	}
}

func (pr *Repository) SavePayment(ctx context.Context, payment *models.Payment) error {
	const op = "repository.payment.SavePayment"

	const query = `INSERT INTO "payment" (uuid, order_uuid, customer_uuid, price, status, created_at)
					VALUES ($1, $2, $3, $4, $5, $6)
					ON CONFLICT (uuid) DO UPDATE SET status = EXCLUDED.status`

	if _, err := transaction.Querier(ctx, pr.db).ExecContext(ctx, query,
		payment.PaymentUUID,
		payment.OrderUUID,
		payment.CustomerUUID,
		payment.Price,
		payment.Status,
		payment.CreatedAt,
	); err != nil {
		pr.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return nil
}

// PaymentByOrder returns the latest payment made for the order.
func (pr *Repository) PaymentByOrder(ctx context.Context, orderUUID uuid.UUID) (*models.Payment, error) {
	const op = "repository.payment.PaymentByOrder"

	const query = `SELECT uuid, order_uuid, customer_uuid, price, status, created_at
					FROM "payment"
					WHERE order_uuid = $1
					ORDER BY created_at DESC
					LIMIT 1`

	var payment models.Payment
	if err := sqlx.GetContext(ctx, transaction.Querier(ctx, pr.db), &payment, query, orderUUID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: order %s: %w", op, orderUUID, internalErrors.ErrPaymentNotFound)
		}

		pr.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: select payment: %w", op, err)
	}

	return &payment, nil
}

// CreditEntry locks the customer's credit row until the surrounding transaction ends.
func (pr *Repository) CreditEntry(ctx context.Context, customerUUID uuid.UUID) (*models.CreditEntry, error) {
	const op = "repository.payment.CreditEntry"

	const query = `SELECT uuid, customer_uuid, total_credit_amount
					FROM "credit_entry"
					WHERE customer_uuid = $1
					FOR UPDATE`

	var entry models.CreditEntry
	if err := sqlx.GetContext(ctx, transaction.Querier(ctx, pr.db), &entry, query, customerUUID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: customer %s: %w", op, customerUUID, internalErrors.ErrCreditEntryNotFound)
		}

		pr.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: select credit entry: %w", op, err)
	}

	return &entry, nil
}

func (pr *Repository) SaveCreditEntry(ctx context.Context, entry *models.CreditEntry) error {
	const op = "repository.payment.SaveCreditEntry"

	const query = `UPDATE "credit_entry" SET total_credit_amount = $1 WHERE uuid = $2`

	if _, err := transaction.Querier(ctx, pr.db).ExecContext(ctx, query, entry.TotalCreditAmount, entry.CreditEntryUUID); err != nil {
		pr.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return nil
}

func (pr *Repository) CreditHistories(ctx context.Context, customerUUID uuid.UUID) ([]models.CreditHistory, error) {
	const op = "repository.payment.CreditHistories"

	const query = `SELECT uuid, customer_uuid, amount, type
					FROM "credit_history"
					WHERE customer_uuid = $1`

	var histories []models.CreditHistory
	if err := sqlx.SelectContext(ctx, transaction.Querier(ctx, pr.db), &histories, query, customerUUID); err != nil {
		pr.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: select credit history: %w", op, err)
	}

	if len(histories) == 0 {
		return nil, fmt.Errorf("%s: customer %s: %w", op, customerUUID, internalErrors.ErrCreditHistoryEmpty)
	}

	return histories, nil
}

func (pr *Repository) SaveCreditHistory(ctx context.Context, history *models.CreditHistory) error {
	const op = "repository.payment.SaveCreditHistory"

	const query = `INSERT INTO "credit_history" (uuid, customer_uuid, amount, type) VALUES ($1, $2, $3, $4)`

	if _, err := transaction.Querier(ctx, pr.db).ExecContext(ctx, query,
		history.CreditHistoryUUID,
		history.CustomerUUID,
		history.Amount,
		history.Type,
	); err != nil {
		pr.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return nil
}
