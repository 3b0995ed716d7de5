package listener

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type paymentProcessor interface {
	HandlePaymentRequest(ctx context.Context, req *models.PaymentRequest) error
}

type PaymentHandler struct {
	base

	processor paymentProcessor
}

func NewPaymentHandler(log logger.Logger, processor paymentProcessor) *PaymentHandler {
	return &PaymentHandler{
		base:      newBase(log),
		processor: processor,
	}
}

func (h *PaymentHandler) PaymentRequest(ctx context.Context, msg kafka.Message) error {
	const op = "delivery.kafka.PaymentHandler.PaymentRequest"

	envelope, err := h.envelope(msg)
	if err != nil {
		return err
	}

	req, err := envelope.PaymentRequest()
	if err != nil {
		return err
	}

	if err = h.check(req.PaymentRequestPayload); err != nil {
		return err
	}

	return h.done(ctx, op, envelope, h.processor.HandlePaymentRequest(ctx, req))
}
