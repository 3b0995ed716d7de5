// Package outBox holds the ports shared by every service that writes to or relays from the outbox table.
package outBox

import (
	"context"

	"github.com/google/uuid"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
)

//go:generate mockgen -source=outbox.go -destination=mocks/outbox.go -package=mocks

type Store interface {
	Save(ctx context.Context, msg *models.OutboxMessage) error
	Find(ctx context.Context, sagaID uuid.UUID, msgType models.MessageType, sagaStatus models.SagaStatus) (*models.OutboxMessage, error)
	Latest(ctx context.Context, sagaID uuid.UUID, msgType models.MessageType) (*models.OutboxMessage, error)
	FindByOutboxStatus(ctx context.Context, status models.OutboxStatus, msgType models.MessageType, limit int) ([]models.OutboxMessage, error)
	Update(ctx context.Context, msg *models.OutboxMessage) error
	UpdateStatus(ctx context.Context, msg *models.OutboxMessage, status models.OutboxStatus) error
}

// Publisher delivers one outbox row to the broker. A nil error means the broker acknowledged it.
type Publisher interface {
	Publish(ctx context.Context, msg *models.OutboxMessage) error
}
