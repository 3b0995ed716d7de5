package app

import (
	"context"

	"github.com/tumbleweedd/food_ordering_system/internal/config"
	listener "github.com/tumbleweedd/food_ordering_system/internal/delivery/kafka"
	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	orderRepository "github.com/tumbleweedd/food_ordering_system/internal/repository/order"
	"github.com/tumbleweedd/food_ordering_system/internal/services/order/orchestrator"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

var OrderOutbound = []models.MessageType{models.PaymentRequestMessage, models.ApprovalRequestMessage}

func NewOrderApp(ctx context.Context, log logger.Logger, cfg *config.Config) (*App, error) {
	a, err := newApp(ctx, log, cfg, OrderOutbound)
	if err != nil {
		return nil, err
	}

	orders := orderRepository.NewOrderRepository(log, a.db.GetDB())
	orderSaga := orchestrator.New(log, a.tx, orders, a.outBox, a.guard)
	handler := listener.NewOrderHandler(log, orderSaga)

	a.listen(cfg.Kafka.Topics.OrderCreateRequest, handler.CreateOrder)
	a.listen(cfg.Kafka.Topics.PaymentResponse, handler.PaymentResponse)
	a.listen(cfg.Kafka.Topics.RestaurantApprovalResponse, handler.ApprovalResponse)

	return a, nil
}
