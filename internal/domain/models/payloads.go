package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentRequestPayload struct {
	OrderID            uuid.UUID          `json:"orderId" validate:"required"`
	CustomerID         uuid.UUID          `json:"customerId" validate:"required"`
	Price              decimal.Decimal    `json:"price"`
	CreatedAt          time.Time          `json:"createdAt"`
	PaymentOrderStatus PaymentOrderStatus `json:"paymentOrderStatus" validate:"oneof=PENDING CANCELLED"`
}

type ApprovalProduct struct {
	ID       uuid.UUID `json:"id" validate:"required"`
	Quantity int       `json:"quantity" validate:"gt=0"`
}

type ApprovalRequestPayload struct {
	OrderID               uuid.UUID             `json:"orderId" validate:"required"`
	RestaurantID          uuid.UUID             `json:"restaurantId" validate:"required"`
	Price                 decimal.Decimal       `json:"price"`
	Products              []ApprovalProduct     `json:"products" validate:"required,dive"`
	CreatedAt             time.Time             `json:"createdAt"`
	RestaurantOrderStatus RestaurantOrderStatus `json:"restaurantOrderStatus" validate:"required"`
}

type PaymentResponsePayload struct {
	PaymentID       uuid.UUID       `json:"paymentId" validate:"required"`
	CustomerID      uuid.UUID       `json:"customerId" validate:"required"`
	OrderID         uuid.UUID       `json:"orderId" validate:"required"`
	Price           decimal.Decimal `json:"price"`
	CreatedAt       time.Time       `json:"createdAt"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" validate:"oneof=COMPLETED CANCELLED FAILED"`
	FailureMessages []string        `json:"failureMessages"`
}

type ApprovalResponsePayload struct {
	OrderApprovalID     uuid.UUID           `json:"orderApprovalId" validate:"required"`
	RestaurantID        uuid.UUID           `json:"restaurantId" validate:"required"`
	OrderID             uuid.UUID           `json:"orderId" validate:"required"`
	CreatedAt           time.Time           `json:"createdAt"`
	OrderApprovalStatus OrderApprovalStatus `json:"orderApprovalStatus" validate:"oneof=APPROVED REJECTED"`
	FailureMessages     []string            `json:"failureMessages"`
}

type CreateOrderItem struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	Price     decimal.Decimal `json:"price"`
	SubTotal  decimal.Decimal `json:"subTotal"`
}

type CreateOrderCommand struct {
	OrderID      uuid.UUID         `json:"orderId" validate:"required"`
	CustomerID   uuid.UUID         `json:"customerId" validate:"required"`
	RestaurantID uuid.UUID         `json:"restaurantId" validate:"required"`
	Price        decimal.Decimal   `json:"price"`
	Items        []CreateOrderItem `json:"items" validate:"required,dive"`
}

func (c *CreateOrderCommand) ToOrder(now time.Time) *Order {
	items := make([]OrderItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, OrderItem{
			OrderUUID:   c.OrderID,
			ProductUUID: item.ProductID,
			Quantity:    item.Quantity,
			Price:       item.Price,
			SubTotal:    item.SubTotal,
		})
	}

	return &Order{
		OrderUUID:      c.OrderID,
		CustomerUUID:   c.CustomerID,
		RestaurantUUID: c.RestaurantID,
		TrackingUUID:   uuid.New(),
		Price:          c.Price,
		CreatedAt:      now,
		Items:          items,
	}
}

func NewPaymentRequestPayload(order *Order, status PaymentOrderStatus, now time.Time) PaymentRequestPayload {
	return PaymentRequestPayload{
		OrderID:            order.OrderUUID,
		CustomerID:         order.CustomerUUID,
		Price:              order.Price,
		CreatedAt:          now,
		PaymentOrderStatus: status,
	}
}

func NewApprovalRequestPayload(order *Order, now time.Time) ApprovalRequestPayload {
	products := make([]ApprovalProduct, 0, len(order.Items))
	for _, item := range order.Items {
		products = append(products, ApprovalProduct{ID: item.ProductUUID, Quantity: item.Quantity})
	}

	return ApprovalRequestPayload{
		OrderID:               order.OrderUUID,
		RestaurantID:          order.RestaurantUUID,
		Price:                 order.Price,
		Products:              products,
		CreatedAt:             now,
		RestaurantOrderStatus: RestaurantOrderStatusPaid,
	}
}

func NewPaymentResponsePayload(payment *Payment, failureMessages []string) PaymentResponsePayload {
	return PaymentResponsePayload{
		PaymentID:       payment.PaymentUUID,
		CustomerID:      payment.CustomerUUID,
		OrderID:         payment.OrderUUID,
		Price:           payment.Price,
		CreatedAt:       payment.CreatedAt,
		PaymentStatus:   payment.Status,
		FailureMessages: failureMessages,
	}
}

func NewApprovalResponsePayload(approval *OrderApproval, failureMessages []string, now time.Time) ApprovalResponsePayload {
	return ApprovalResponsePayload{
		OrderApprovalID:     approval.OrderApprovalUUID,
		RestaurantID:        approval.RestaurantUUID,
		OrderID:             approval.OrderUUID,
		CreatedAt:           now,
		OrderApprovalStatus: approval.Status,
		FailureMessages:     failureMessages,
	}
}
