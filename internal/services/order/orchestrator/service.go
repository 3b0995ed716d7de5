// Package orchestrator drives the two legs of the order saga: order <-> payment and order <-> restaurant.
// Every inbound message is handled in one unit of work that writes the order and its outbox rows together.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/internal/saga"
	"github.com/tumbleweedd/food_ordering_system/internal/services/outBox/guard"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

// maxStaleAttempts bounds how often a unit of work is re-run after losing a version check on an outbox row.
const maxStaleAttempts = 3

type unitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type orderStore interface {
	Create(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, order *models.Order) error
	Order(ctx context.Context, orderUUID uuid.UUID) (*models.Order, error)
}

type outBoxStore interface {
	Save(ctx context.Context, msg *models.OutboxMessage) error
	Latest(ctx context.Context, sagaID uuid.UUID, msgType models.MessageType) (*models.OutboxMessage, error)
	Update(ctx context.Context, msg *models.OutboxMessage) error
}

type idempotencyGuard interface {
	Check(ctx context.Context, sagaID uuid.UUID, msgType models.MessageType, sagaStatus models.SagaStatus) (guard.Result, error)
}

type Service struct {
	log    logger.Logger
	tx     unitOfWork
	orders orderStore
	outBox outBoxStore
	guard  idempotencyGuard

	now func() time.Time
}

func New(
	log logger.Logger,
	tx unitOfWork,
	orders orderStore,
	outBox outBoxStore,
	guard idempotencyGuard,
) *Service {
	return &Service{
		log:    log,
		tx:     tx,
		orders: orders,
		outBox: outBox,
		guard:  guard,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new PENDING order and the payment request that starts the saga.
// The saga id is the order id.
func (s *Service) Create(ctx context.Context, cmd *models.CreateOrderCommand) error {
	const op = "services.order.orchestrator.Create"

	return s.unit(ctx, op, func(ctx context.Context) error {
		result, err := s.guard.Check(ctx, cmd.OrderID, models.PaymentRequestMessage, models.SagaStatusStarted)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if result != guard.Proceed {
			s.log.Info(op, logger.String("order_id", cmd.OrderID.String()), logger.String("guard", result.String()))
			return nil
		}

		// The payment leg may already have moved past STARTED.
		current := saga.State{Saga: saga.StatusNone}
		leg, err := s.outBox.Latest(ctx, cmd.OrderID, models.PaymentRequestMessage)
		switch {
		case err == nil:
			current = saga.State{Order: models.OrderStatus(leg.DomainStatus), Saga: leg.SagaStatus}
		case !errors.Is(err, internalErrors.ErrOutboxNotFound):
			return fmt.Errorf("%s: payment leg: %w", op, err)
		}

		decision, err := s.decide(saga.Payment, current.Order, current.Saga, saga.EventOrderCreated)
		if err != nil {
			if errors.Is(err, internalErrors.ErrSagaDuplicate) {
				s.logDuplicate(op, cmd.OrderID, saga.EventOrderCreated)
				return nil
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		now := s.now()
		order := cmd.ToOrder(now)
		if err = order.Validate(); err != nil {
			s.log.Error(op, logger.String("order_id", cmd.OrderID.String()), logger.String("error", err.Error()))
			return fmt.Errorf("%s: %w", op, err)
		}

		order.Status = decision.Order
		if err = s.orders.Create(ctx, order); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		payload := models.NewPaymentRequestPayload(order, models.PaymentOrderStatusPending, now)
		if err = s.enqueue(ctx, order.OrderUUID, models.PaymentRequestMessage, payload, decision, now); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		s.log.Info(op,
			logger.String("order_id", order.OrderUUID.String()),
			logger.String("status", string(order.Status)),
		)

		return nil
	})
}

// HandlePaymentResponse moves the payment leg. A completed payment starts the approval leg,
// a cancellation after a rejection closes both legs.
func (s *Service) HandlePaymentResponse(ctx context.Context, resp *models.PaymentResponse) error {
	const op = "services.order.orchestrator.HandlePaymentResponse"

	event, err := paymentEvent(resp.PaymentStatus)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return s.unit(ctx, op, func(ctx context.Context) error {
		order, err := s.orders.Order(ctx, resp.OrderID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		paymentLeg, err := s.outBox.Latest(ctx, resp.SagaID, models.PaymentRequestMessage)
		if err != nil {
			return fmt.Errorf("%s: payment leg: %w", op, err)
		}

		decision, err := s.decide(saga.Payment, order.Status, paymentLeg.SagaStatus, event)
		if err != nil {
			if errors.Is(err, internalErrors.ErrSagaDuplicate) {
				s.logDuplicate(op, resp.SagaID, event)
				return nil
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		// Nothing was charged yet, so the cancellation settles immediately.
		if paymentLeg.SagaStatus == models.SagaStatusStarted && decision.Saga == models.SagaStatusCompensating {
			if decision, err = s.decide(saga.Payment, decision.Order, decision.Saga, saga.EventCompensationSettled); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		previous, legStatus := order.Status, paymentLeg.SagaStatus
		if err = s.advance(ctx, paymentLeg, decision); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		order.Status = decision.Order
		if event != saga.EventPaymentCompleted {
			order.AddFailureMessages(resp.FailureMessages)
		}

		switch {
		case event == saga.EventPaymentCompleted:
			err = s.startApproval(ctx, order)
		case legStatus == models.SagaStatusCompensating:
			err = s.advanceApproval(ctx, resp.SagaID, previous, event)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err = s.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		s.log.Info(op,
			logger.String("order_id", order.OrderUUID.String()),
			logger.String("status", string(order.Status)),
			logger.String("saga_status", string(decision.Saga)),
		)

		return nil
	})
}

// HandleApprovalResponse moves the approval leg and the payment leg with it.
// A rejection enqueues the payment cancel request.
func (s *Service) HandleApprovalResponse(ctx context.Context, resp *models.ApprovalResponse) error {
	const op = "services.order.orchestrator.HandleApprovalResponse"

	event, err := approvalEvent(resp.OrderApprovalStatus)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return s.unit(ctx, op, func(ctx context.Context) error {
		order, err := s.orders.Order(ctx, resp.OrderID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		approvalLeg, err := s.outBox.Latest(ctx, resp.SagaID, models.ApprovalRequestMessage)
		if err != nil {
			return fmt.Errorf("%s: approval leg: %w", op, err)
		}

		decision, err := s.decide(saga.Approval, order.Status, approvalLeg.SagaStatus, event)
		if err != nil {
			if errors.Is(err, internalErrors.ErrSagaDuplicate) {
				s.logDuplicate(op, resp.SagaID, event)
				return nil
			}

			return fmt.Errorf("%s: %w", op, err)
		}

		paymentLeg, err := s.outBox.Latest(ctx, resp.SagaID, models.PaymentRequestMessage)
		if err != nil {
			return fmt.Errorf("%s: payment leg: %w", op, err)
		}

		paymentDecision, err := s.decide(saga.Payment, order.Status, paymentLeg.SagaStatus, event)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err = s.advance(ctx, approvalLeg, decision); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		order.Status = decision.Order
		if event == saga.EventOrderRejected {
			order.AddFailureMessages(resp.FailureMessages)
		}

		if paymentDecision.Outbound == saga.OutboundPaymentCancelRequest {
			err = s.requestPaymentCancel(ctx, order, paymentDecision)
		} else {
			err = s.advance(ctx, paymentLeg, paymentDecision)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err = s.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		s.log.Info(op,
			logger.String("order_id", order.OrderUUID.String()),
			logger.String("status", string(order.Status)),
			logger.String("saga_status", string(decision.Saga)),
		)

		return nil
	})
}

func (s *Service) startApproval(ctx context.Context, order *models.Order) error {
	result, err := s.guard.Check(ctx, order.OrderUUID, models.ApprovalRequestMessage, models.SagaStatusProcessing)
	if err != nil || result != guard.Proceed {
		return err
	}

	decision, err := s.decide(saga.Approval, order.Status, saga.StatusNone, saga.EventOrderPaid)
	if err != nil {
		return err
	}

	now := s.now()

	return s.enqueue(ctx, order.OrderUUID, models.ApprovalRequestMessage, models.NewApprovalRequestPayload(order, now), decision, now)
}

func (s *Service) requestPaymentCancel(ctx context.Context, order *models.Order, decision saga.Decision) error {
	result, err := s.guard.Check(ctx, order.OrderUUID, models.PaymentRequestMessage, decision.Saga)
	if err != nil || result != guard.Proceed {
		return err
	}

	now := s.now()
	payload := models.NewPaymentRequestPayload(order, models.PaymentOrderStatusCancelled, now)

	return s.enqueue(ctx, order.OrderUUID, models.PaymentRequestMessage, payload, decision, now)
}

// advanceApproval closes the approval leg once the payment leg has settled its compensation.
func (s *Service) advanceApproval(ctx context.Context, sagaID uuid.UUID, orderStatus models.OrderStatus, event saga.Event) error {
	approvalLeg, err := s.outBox.Latest(ctx, sagaID, models.ApprovalRequestMessage)
	if err != nil {
		if errors.Is(err, internalErrors.ErrOutboxNotFound) {
			return nil
		}

		return err
	}

	decision, err := s.decide(saga.Approval, orderStatus, approvalLeg.SagaStatus, event)
	if err != nil {
		if errors.Is(err, internalErrors.ErrSagaDuplicate) {
			return nil
		}

		return err
	}

	return s.advance(ctx, approvalLeg, decision)
}

// advance writes the new leg state onto the leg's current outbox row. The row keeps its outbox status.
func (s *Service) advance(ctx context.Context, leg *models.OutboxMessage, decision saga.Decision) error {
	leg.SagaStatus = decision.Saga
	leg.DomainStatus = string(decision.Order)

	return s.outBox.Update(ctx, leg)
}

func (s *Service) enqueue(
	ctx context.Context,
	sagaID uuid.UUID,
	msgType models.MessageType,
	payload any,
	decision saga.Decision,
	now time.Time,
) error {
	msg, err := models.NewOutboxMessage(sagaID, msgType, payload, decision.Saga, string(decision.Order), now)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", msgType, err)
	}

	return s.outBox.Save(ctx, msg)
}

func (s *Service) decide(m *saga.Machine, order models.OrderStatus, status models.SagaStatus, event saga.Event) (saga.Decision, error) {
	decision, err := m.Decide(order, status, event)
	if err != nil {
		return decision, err
	}

	sagaTransitions.WithLabelValues(m.Name(), string(event), string(decision.Saga)).Inc()

	return decision, nil
}

// unit runs fn in one transaction. A version conflict on an outbox row re-runs it, so the second
// attempt either applies the step on fresh rows or finds it already handled.
func (s *Service) unit(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxStaleAttempts; attempt++ {
		err = s.tx.Do(ctx, fn)
		if !errors.Is(err, internalErrors.ErrOutboxStale) {
			return err
		}

		s.log.Info(op, logger.Int("attempt", attempt), logger.String("result", "stale"))
	}

	return err
}

func (s *Service) logDuplicate(op string, sagaID uuid.UUID, event saga.Event) {
	s.log.Info(op,
		logger.String("saga_id", sagaID.String()),
		logger.String("event", string(event)),
		logger.String("result", "duplicate"),
	)
}

func paymentEvent(status models.PaymentStatus) (saga.Event, error) {
	switch status {
	case models.PaymentStatusCompleted:
		return saga.EventPaymentCompleted, nil
	case models.PaymentStatusCancelled:
		return saga.EventPaymentCancelled, nil
	case models.PaymentStatusFailed:
		return saga.EventPaymentFailed, nil
	default:
		return "", fmt.Errorf("%w: unknown payment status %q", internalErrors.ErrInvalidMessage, status)
	}
}

func approvalEvent(status models.OrderApprovalStatus) (saga.Event, error) {
	switch status {
	case models.OrderApprovalStatusApproved:
		return saga.EventOrderApproved, nil
	case models.OrderApprovalStatusRejected:
		return saga.EventOrderRejected, nil
	default:
		return "", fmt.Errorf("%w: unknown approval status %q", internalErrors.ErrInvalidMessage, status)
	}
}
