package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusApproved   OrderStatus = "APPROVED"
	OrderStatusCancelling OrderStatus = "CANCELLING"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

type Order struct {
	OrderUUID       uuid.UUID       `db:"uuid"`
	CustomerUUID    uuid.UUID       `db:"customer_uuid"`
	RestaurantUUID  uuid.UUID       `db:"restaurant_uuid"`
	TrackingUUID    uuid.UUID       `db:"tracking_uuid"`
	Price           decimal.Decimal `db:"price"`
	Status          OrderStatus     `db:"status"`
	FailureMessages []string        `db:"-"`
	CreatedAt       time.Time       `db:"created_at"`
	Items           []OrderItem     `db:"-"`
}

type OrderItem struct {
	OrderUUID   uuid.UUID       `db:"order_uuid"`
	ProductUUID uuid.UUID       `db:"product_uuid"`
	Quantity    int             `db:"quantity"`
	Price       decimal.Decimal `db:"price"`
	SubTotal    decimal.Decimal `db:"sub_total"`
}

// Validate checks the order price against its items before the saga starts.
func (o *Order) Validate() error {
	if !o.Price.IsPositive() {
		return fmt.Errorf("%w: total price must be greater than zero", internalErrors.ErrOrderDomain)
	}

	if len(o.Items) == 0 {
		return fmt.Errorf("%w: order has no items", internalErrors.ErrOrderDomain)
	}

	itemsTotal := decimal.Zero
	for _, item := range o.Items {
		if !item.Price.IsPositive() || item.Quantity <= 0 {
			return fmt.Errorf("%w: order item price is not valid for product %s",
				internalErrors.ErrOrderDomain, item.ProductUUID)
		}

		if !item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Equal(item.SubTotal) {
			return fmt.Errorf("%w: order item subtotal %s is not valid for product %s",
				internalErrors.ErrOrderDomain, item.SubTotal, item.ProductUUID)
		}

		itemsTotal = itemsTotal.Add(item.SubTotal)
	}

	if !itemsTotal.Equal(o.Price) {
		return fmt.Errorf("%w: total price %s is not equal to order items total %s",
			internalErrors.ErrOrderDomain, o.Price, itemsTotal)
	}

	return nil
}

func (o *Order) AddFailureMessages(messages []string) {
	for _, msg := range messages {
		if msg != "" {
			o.FailureMessages = append(o.FailureMessages, msg)
		}
	}
}
