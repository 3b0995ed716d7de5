package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	PaymentRequestMessage   MessageType = "payment_request"
	ApprovalRequestMessage  MessageType = "restaurant_approval_request"
	PaymentResponseMessage  MessageType = "payment_response"
	ApprovalResponseMessage MessageType = "restaurant_approval_response"
	OrderCreateMessage      MessageType = "order_create_request"
)

type OutboxStatus string

const (
	OutboxStatusStarted   OutboxStatus = "STARTED"
	OutboxStatusCompleted OutboxStatus = "COMPLETED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// CanTransitionTo allows only STARTED -> COMPLETED and STARTED -> FAILED.
func (s OutboxStatus) CanTransitionTo(next OutboxStatus) bool {
	return s == OutboxStatusStarted && (next == OutboxStatusCompleted || next == OutboxStatusFailed)
}

type OutboxMessage struct {
	ID           uuid.UUID       `db:"id"`
	SagaID       uuid.UUID       `db:"saga_id"`
	CreatedAt    time.Time       `db:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at"`
	Type         MessageType     `db:"type"`
	Payload      json.RawMessage `db:"payload"`
	SagaStatus   SagaStatus      `db:"saga_status"`
	DomainStatus string          `db:"domain_status"`
	OutboxStatus OutboxStatus    `db:"outbox_status"`
	Version      int             `db:"version"`
}

// NewOutboxMessage marshals payload into a fresh STARTED row.
func NewOutboxMessage(
	sagaID uuid.UUID,
	msgType MessageType,
	payload any,
	sagaStatus SagaStatus,
	domainStatus string,
	now time.Time,
) (*OutboxMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		ID:           uuid.New(),
		SagaID:       sagaID,
		CreatedAt:    now,
		Type:         msgType,
		Payload:      raw,
		SagaStatus:   sagaStatus,
		DomainStatus: domainStatus,
		OutboxStatus: OutboxStatusStarted,
	}, nil
}
