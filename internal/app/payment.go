package app

import (
	"context"

	"github.com/tumbleweedd/food_ordering_system/internal/config"
	listener "github.com/tumbleweedd/food_ordering_system/internal/delivery/kafka"
	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	paymentRepository "github.com/tumbleweedd/food_ordering_system/internal/repository/payment"
	"github.com/tumbleweedd/food_ordering_system/internal/services/payment/process"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

var PaymentOutbound = []models.MessageType{models.PaymentResponseMessage}

func NewPaymentApp(ctx context.Context, log logger.Logger, cfg *config.Config) (*App, error) {
	a, err := newApp(ctx, log, cfg, PaymentOutbound)
	if err != nil {
		return nil, err
	}

	payments := paymentRepository.NewPaymentRepository(log, a.db.GetDB())
	handler := listener.NewPaymentHandler(log, process.New(log, a.tx, payments, a.outBox, a.guard))

	a.listen(cfg.Kafka.Topics.PaymentRequest, handler.PaymentRequest)

	return a, nil
}
