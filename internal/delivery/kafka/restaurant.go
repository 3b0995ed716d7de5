package listener

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type approvalProcessor interface {
	HandleApprovalRequest(ctx context.Context, req *models.ApprovalRequest) error
}

type RestaurantHandler struct {
	base

	processor approvalProcessor
}

func NewRestaurantHandler(log logger.Logger, processor approvalProcessor) *RestaurantHandler {
	return &RestaurantHandler{
		base:      newBase(log),
		processor: processor,
	}
}

func (h *RestaurantHandler) ApprovalRequest(ctx context.Context, msg kafka.Message) error {
	const op = "delivery.kafka.RestaurantHandler.ApprovalRequest"

	envelope, err := h.envelope(msg)
	if err != nil {
		return err
	}

	req, err := envelope.ApprovalRequest()
	if err != nil {
		return err
	}

	if err = h.check(req.ApprovalRequestPayload); err != nil {
		return err
	}

	return h.done(ctx, op, envelope, h.processor.HandleApprovalRequest(ctx, req))
}
