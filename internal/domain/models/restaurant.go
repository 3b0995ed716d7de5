package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderApprovalStatus string

const (
	OrderApprovalStatusApproved OrderApprovalStatus = "APPROVED"
	OrderApprovalStatusRejected OrderApprovalStatus = "REJECTED"
)

// RestaurantOrderStatus is the order status the restaurant service expects to receive.
type RestaurantOrderStatus string

const RestaurantOrderStatusPaid RestaurantOrderStatus = "PAID"

type Restaurant struct {
	RestaurantUUID uuid.UUID `db:"uuid"`
	Active         bool      `db:"active"`
	Products       map[uuid.UUID]Product
}

type Product struct {
	ProductUUID uuid.UUID       `db:"uuid"`
	Name        string          `db:"name"`
	Price       decimal.Decimal `db:"price"`
	Available   bool            `db:"available"`
}

type OrderApproval struct {
	OrderApprovalUUID uuid.UUID           `db:"uuid"`
	RestaurantUUID    uuid.UUID           `db:"restaurant_uuid"`
	OrderUUID         uuid.UUID           `db:"order_uuid"`
	Status            OrderApprovalStatus `db:"status"`
}

// ValidateApproval collects the reasons a paid order cannot be accepted by the restaurant.
func ValidateApproval(restaurant *Restaurant, req *ApprovalRequest) []string {
	var failureMessages []string

	if !restaurant.Active {
		failureMessages = append(failureMessages,
			fmt.Sprintf("Restaurant with id %s is currently not active!", restaurant.RestaurantUUID))
	}

	if req.RestaurantOrderStatus != RestaurantOrderStatusPaid {
		failureMessages = append(failureMessages,
			fmt.Sprintf("Payment is not completed for order: %s", req.OrderID))
	}

	total := decimal.Zero
	for _, p := range req.Products {
		product, ok := restaurant.Products[p.ID]
		if !ok || !product.Available {
			failureMessages = append(failureMessages, fmt.Sprintf("Product with id %s is not available", p.ID))
			continue
		}

		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}

	if !total.Equal(req.Price) {
		failureMessages = append(failureMessages, fmt.Sprintf("Price total is not correct for order: %s", req.OrderID))
	}

	return failureMessages
}
