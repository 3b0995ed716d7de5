package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/internal/repository/transaction"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type Repository struct {
	log logger.Logger
	db  *sqlx.DB
}

func NewOrderRepository(log logger.Logger, db *sqlx.DB) *Repository {
	return &Repository{
		log: log,
		db:  db,
	}
}

func (or *Repository) Create(ctx context.Context, order *models.Order) error {
	const op = "repository.order.Create"

	q := transaction.Querier(ctx, or.db)

	const orderQuery = `INSERT INTO "order" (uuid, customer_uuid, restaurant_uuid, tracking_uuid, price, status, failure_messages, created_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := q.ExecContext(ctx, orderQuery,
		order.OrderUUID,
		order.CustomerUUID,
		order.RestaurantUUID,
		order.TrackingUUID,
		order.Price,
		order.Status,
		pq.Array(order.FailureMessages),
		order.CreatedAt,
	); err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: order execute statement: %w", op, err)
	}

	if len(order.Items) == 0 {
		return nil
	}

	const orderItemsQuery = `INSERT INTO "order_items" (order_uuid, product_uuid, quantity, price, sub_total) VALUES %s`
	values := make([]any, 0, len(order.Items)*5)
	placeholders := make([]string, 0, len(order.Items))

	for i, item := range order.Items {
		values = append(values, order.OrderUUID, item.ProductUUID, item.Quantity, item.Price, item.SubTotal)

		argId := i * 5

		placeholders = append(placeholders,
			fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", argId+1, argId+2, argId+3, argId+4, argId+5))
	}

	fullQuery := fmt.Sprintf(orderItemsQuery, strings.Join(placeholders, ","))

	if _, err := q.ExecContext(ctx, fullQuery, values...); err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: order_items execute statement: %w", op, err)
	}

	return nil
}

// Update persists the saga-owned fields of the order.
func (or *Repository) Update(ctx context.Context, order *models.Order) error {
	const op = "repository.order.Update"

	const query = `UPDATE "order" SET status = $1, failure_messages = $2 WHERE uuid = $3`

	res, err := transaction.Querier(ctx, or.db).ExecContext(ctx, query,
		order.Status,
		pq.Array(order.FailureMessages),
		order.OrderUUID,
	)
	if err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}

	if affected == 0 {
		return fmt.Errorf("%s: %s: %w", op, order.OrderUUID, internalErrors.ErrOrderNotFound)
	}

	return nil
}

func (or *Repository) Order(ctx context.Context, orderUUID uuid.UUID) (*models.Order, error) {
	const op = "repository.order.Order"

	q := transaction.Querier(ctx, or.db)

	const orderQuery = `SELECT o.uuid, o.customer_uuid, o.restaurant_uuid, o.tracking_uuid, o.price, o.status, o.failure_messages, o.created_at
							FROM "order" o
							WHERE o.uuid = $1`

	var order models.Order
	if err := q.QueryRowxContext(ctx, orderQuery, orderUUID).Scan(
		&order.OrderUUID,
		&order.CustomerUUID,
		&order.RestaurantUUID,
		&order.TrackingUUID,
		&order.Price,
		&order.Status,
		pq.Array(&order.FailureMessages),
		&order.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %s: %w", op, orderUUID, internalErrors.ErrOrderNotFound)
		}

		or.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: scan order: %w", op, err)
	}

	const orderItemsQuery = `SELECT oi.order_uuid, oi.product_uuid, oi.quantity, oi.price, oi.sub_total
								FROM "order_items" oi
								WHERE oi.order_uuid = $1`

	if err := sqlx.SelectContext(ctx, q, &order.Items, orderItemsQuery, orderUUID); err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: select order_items: %w", op, err)
	}

	return &order, nil
}
