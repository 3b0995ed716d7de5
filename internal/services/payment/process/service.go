// Package process handles payment requests of the order saga: it debits or refunds customer credit
// and answers with a payment response through the outbox.
package process

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/internal/services/outBox/guard"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type unitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type paymentStore interface {
	SavePayment(ctx context.Context, payment *models.Payment) error
	PaymentByOrder(ctx context.Context, orderUUID uuid.UUID) (*models.Payment, error)
	CreditEntry(ctx context.Context, customerUUID uuid.UUID) (*models.CreditEntry, error)
	SaveCreditEntry(ctx context.Context, entry *models.CreditEntry) error
	CreditHistories(ctx context.Context, customerUUID uuid.UUID) ([]models.CreditHistory, error)
	SaveCreditHistory(ctx context.Context, history *models.CreditHistory) error
}

type outBoxSaver interface {
	Save(ctx context.Context, msg *models.OutboxMessage) error
}

type idempotencyGuard interface {
	Check(ctx context.Context, sagaID uuid.UUID, msgType models.MessageType, sagaStatus models.SagaStatus) (guard.Result, error)
}

type Service struct {
	log      logger.Logger
	tx       unitOfWork
	payments paymentStore
	outBox   outBoxSaver
	guard    idempotencyGuard

	now func() time.Time
}

func New(
	log logger.Logger,
	tx unitOfWork,
	payments paymentStore,
	outBox outBoxSaver,
	guard idempotencyGuard,
) *Service {
	return &Service{
		log:      log,
		tx:       tx,
		payments: payments,
		outBox:   outBox,
		guard:    guard,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) HandlePaymentRequest(ctx context.Context, req *models.PaymentRequest) error {
	const op = "services.payment.process.HandlePaymentRequest"

	var err error
	switch req.PaymentOrderStatus {
	case models.PaymentOrderStatusPending:
		err = s.tx.Do(ctx, func(ctx context.Context) error { return s.complete(ctx, req) })
	case models.PaymentOrderStatusCancelled:
		err = s.tx.Do(ctx, func(ctx context.Context) error { return s.cancel(ctx, req) })
	default:
		err = fmt.Errorf("%w: unknown payment order status %q", internalErrors.ErrInvalidMessage, req.PaymentOrderStatus)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) complete(ctx context.Context, req *models.PaymentRequest) error {
	const op = "services.payment.process.complete"

	proceed, err := s.proceed(ctx, op, req.SagaID, models.SagaStatusStarted)
	if err != nil || !proceed {
		return err
	}

	payment := &models.Payment{
		OrderUUID:    req.OrderID,
		CustomerUUID: req.CustomerID,
		Price:        req.Price,
	}

	entry, histories, err := s.credit(ctx, req.CustomerID)
	if err != nil {
		return err
	}

	history, failureMessages := models.InitiatePayment(payment, entry, histories, s.now())

	if err = s.persist(ctx, payment, entry, history); err != nil {
		return err
	}

	s.log.Info(op,
		logger.String("order_id", req.OrderID.String()),
		logger.String("status", string(payment.Status)),
		logger.Int("failures", len(failureMessages)),
	)

	return s.respond(ctx, req.SagaID, payment, failureMessages, models.SagaStatusStarted)
}

func (s *Service) cancel(ctx context.Context, req *models.PaymentRequest) error {
	const op = "services.payment.process.cancel"

	proceed, err := s.proceed(ctx, op, req.SagaID, models.SagaStatusCompensating)
	if err != nil || !proceed {
		return err
	}

	payment, err := s.payments.PaymentByOrder(ctx, req.OrderID)
	if err != nil {
		return err
	}

	entry, histories, err := s.credit(ctx, payment.CustomerUUID)
	if err != nil {
		return err
	}

	history, failureMessages := models.CancelPayment(payment, entry, histories)

	if err = s.persist(ctx, payment, entry, history); err != nil {
		return err
	}

	s.log.Info(op,
		logger.String("order_id", req.OrderID.String()),
		logger.String("status", string(payment.Status)),
		logger.Int("failures", len(failureMessages)),
	)

	return s.respond(ctx, req.SagaID, payment, failureMessages, models.SagaStatusCompensating)
}

func (s *Service) proceed(ctx context.Context, op string, sagaID uuid.UUID, sagaStatus models.SagaStatus) (bool, error) {
	result, err := s.guard.Check(ctx, sagaID, models.PaymentResponseMessage, sagaStatus)
	if err != nil {
		return false, err
	}

	if result != guard.Proceed {
		s.log.Info(op, logger.String("saga_id", sagaID.String()), logger.String("guard", result.String()))
		return false, nil
	}

	return true, nil
}

func (s *Service) credit(ctx context.Context, customerUUID uuid.UUID) (*models.CreditEntry, []models.CreditHistory, error) {
	entry, err := s.payments.CreditEntry(ctx, customerUUID)
	if err != nil {
		return nil, nil, err
	}

	histories, err := s.payments.CreditHistories(ctx, customerUUID)
	if err != nil {
		return nil, nil, err
	}

	return entry, histories, nil
}

// persist writes the payment. Credit changes are written only when the payment went through.
func (s *Service) persist(ctx context.Context, payment *models.Payment, entry *models.CreditEntry, history *models.CreditHistory) error {
	if err := s.payments.SavePayment(ctx, payment); err != nil {
		return err
	}

	if history == nil {
		return nil
	}

	if err := s.payments.SaveCreditEntry(ctx, entry); err != nil {
		return err
	}

	return s.payments.SaveCreditHistory(ctx, history)
}

func (s *Service) respond(
	ctx context.Context,
	sagaID uuid.UUID,
	payment *models.Payment,
	failureMessages []string,
	sagaStatus models.SagaStatus,
) error {
	payload := models.NewPaymentResponsePayload(payment, failureMessages)

	msg, err := models.NewOutboxMessage(sagaID, models.PaymentResponseMessage, payload, sagaStatus, string(payment.Status), s.now())
	if err != nil {
		return fmt.Errorf("marshal payment response: %w", err)
	}

	return s.outBox.Save(ctx, msg)
}
