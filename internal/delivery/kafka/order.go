package listener

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type orderSaga interface {
	Create(ctx context.Context, cmd *models.CreateOrderCommand) error
	HandlePaymentResponse(ctx context.Context, resp *models.PaymentResponse) error
	HandleApprovalResponse(ctx context.Context, resp *models.ApprovalResponse) error
}

type OrderHandler struct {
	base

	orderSaga orderSaga
}

func NewOrderHandler(log logger.Logger, orderSaga orderSaga) *OrderHandler {
	return &OrderHandler{
		base:      newBase(log),
		orderSaga: orderSaga,
	}
}

func (h *OrderHandler) CreateOrder(ctx context.Context, msg kafka.Message) error {
	const op = "delivery.kafka.OrderHandler.CreateOrder"

	envelope, err := h.envelope(msg)
	if err != nil {
		return err
	}

	cmd, err := envelope.CreateOrderCommand()
	if err != nil {
		return err
	}

	if err = h.check(cmd); err != nil {
		return err
	}

	return h.done(ctx, op, envelope, h.orderSaga.Create(ctx, cmd))
}

func (h *OrderHandler) PaymentResponse(ctx context.Context, msg kafka.Message) error {
	const op = "delivery.kafka.OrderHandler.PaymentResponse"

	envelope, err := h.envelope(msg)
	if err != nil {
		return err
	}

	resp, err := envelope.PaymentResponse()
	if err != nil {
		return err
	}

	if err = h.check(resp.PaymentResponsePayload); err != nil {
		return err
	}

	return h.done(ctx, op, envelope, h.orderSaga.HandlePaymentResponse(ctx, resp))
}

func (h *OrderHandler) ApprovalResponse(ctx context.Context, msg kafka.Message) error {
	const op = "delivery.kafka.OrderHandler.ApprovalResponse"

	envelope, err := h.envelope(msg)
	if err != nil {
		return err
	}

	resp, err := envelope.ApprovalResponse()
	if err != nil {
		return err
	}

	if err = h.check(resp.ApprovalResponsePayload); err != nil {
		return err
	}

	return h.done(ctx, op, envelope, h.orderSaga.HandleApprovalResponse(ctx, resp))
}
