package restaurant

import (
	"context"
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

func NewRestaurantRepository(log logger.Logger, db *sqlx.DB) *Repository {
	return &Repository{
		log: log,
		db:  db,
	}
}

type restaurantProductRow struct {
	RestaurantUUID   uuid.UUID `db:"restaurant_uuid"`
	RestaurantActive bool      `db:"restaurant_active"`
	models.Product
}

// Restaurant loads the restaurant together with its whole product catalogue.
func (rr *Repository) Restaurant(ctx context.Context, restaurantUUID uuid.UUID) (*models.Restaurant, error) {
	const op = "repository.restaurant.Restaurant"

	const query = `SELECT r.uuid AS restaurant_uuid, r.active AS restaurant_active,
						p.uuid, p.name, p.price, p.available
					FROM "restaurant" r
					JOIN "restaurant_products" rp ON rp.restaurant_uuid = r.uuid
					JOIN "product" p ON p.uuid = rp.product_uuid
					WHERE r.uuid = $1`

	var rows []restaurantProductRow
	if err := sqlx.SelectContext(ctx, transaction.Querier(ctx, rr.db), &rows, query, restaurantUUID); err != nil {
		rr.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: select restaurant: %w", op, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %s: %w", op, restaurantUUID, internalErrors.ErrRestaurantNotFound)
	}

	restaurant := &models.Restaurant{
		RestaurantUUID: rows[0].RestaurantUUID,
		Active:         rows[0].RestaurantActive,
		Products:       make(map[uuid.UUID]models.Product, len(rows)),
	}

	for _, row := range rows {
		restaurant.Products[row.ProductUUID] = row.Product
	}

	return restaurant, nil
}

func (rr *Repository) SaveApproval(ctx context.Context, approval *models.OrderApproval) error {
	const op = "repository.restaurant.SaveApproval"

	const query = `INSERT INTO "order_approval" (uuid, restaurant_uuid, order_uuid, status) VALUES ($1, $2, $3, $4)`

	if _, err := transaction.Querier(ctx, rr.db).ExecContext(ctx, query,
		approval.OrderApprovalUUID,
		approval.RestaurantUUID,
		approval.OrderUUID,
		approval.Status,
	); err != nil {
		rr.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return nil
}
