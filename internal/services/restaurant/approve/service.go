// Package approve answers approval requests for paid orders on behalf of the restaurant.
package approve

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	"github.com/tumbleweedd/food_ordering_system/internal/services/outBox/guard"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type unitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type restaurantProvider interface {
	Restaurant(ctx context.Context, restaurantUUID uuid.UUID) (*models.Restaurant, error)
}

type approvalSaver interface {
	SaveApproval(ctx context.Context, approval *models.OrderApproval) error
}

type outBoxSaver interface {
	Save(ctx context.Context, msg *models.OutboxMessage) error
}

type idempotencyGuard interface {
	Check(ctx context.Context, sagaID uuid.UUID, msgType models.MessageType, sagaStatus models.SagaStatus) (guard.Result, error)
}

type Service struct {
	log         logger.Logger
	tx          unitOfWork
	restaurants restaurantProvider
	approvals   approvalSaver
	outBox      outBoxSaver
	guard       idempotencyGuard

	now func() time.Time
}

func New(
	log logger.Logger,
	tx unitOfWork,
	restaurants restaurantProvider,
	approvals approvalSaver,
	outBox outBoxSaver,
	guard idempotencyGuard,
) *Service {
	return &Service{
		log:         log,
		tx:          tx,
		restaurants: restaurants,
		approvals:   approvals,
		outBox:      outBox,
		guard:       guard,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) HandleApprovalRequest(ctx context.Context, req *models.ApprovalRequest) error {
	const op = "services.restaurant.approve.HandleApprovalRequest"

	err := s.tx.Do(ctx, func(ctx context.Context) error {
		result, err := s.guard.Check(ctx, req.SagaID, models.ApprovalResponseMessage, models.SagaStatusProcessing)
		if err != nil {
			return err
		}

		if result != guard.Proceed {
			s.log.Info(op, logger.String("saga_id", req.SagaID.String()), logger.String("guard", result.String()))
			return nil
		}

		restaurant, err := s.restaurants.Restaurant(ctx, req.RestaurantID)
		if err != nil {
			return err
		}

		approval := &models.OrderApproval{
			OrderApprovalUUID: uuid.New(),
			RestaurantUUID:    req.RestaurantID,
			OrderUUID:         req.OrderID,
			Status:            models.OrderApprovalStatusApproved,
		}

		failureMessages := models.ValidateApproval(restaurant, req)
		if len(failureMessages) > 0 {
			approval.Status = models.OrderApprovalStatusRejected
		}

		if err = s.approvals.SaveApproval(ctx, approval); err != nil {
			return err
		}

		now := s.now()
		payload := models.NewApprovalResponsePayload(approval, failureMessages, now)

		msg, err := models.NewOutboxMessage(req.SagaID, models.ApprovalResponseMessage, payload,
			models.SagaStatusProcessing, string(approval.Status), now)
		if err != nil {
			return fmt.Errorf("marshal approval response: %w", err)
		}

		if err = s.outBox.Save(ctx, msg); err != nil {
			return err
		}

		s.log.Info(op,
			logger.String("order_id", req.OrderID.String()),
			logger.String("status", string(approval.Status)),
			logger.Int("failures", len(failureMessages)),
		)

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
