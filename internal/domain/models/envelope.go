package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
)

// Envelope is the wire form of an outbox row.
type Envelope struct {
	ID        uuid.UUID       `json:"id" validate:"required"`
	SagaID    uuid.UUID       `json:"sagaId" validate:"required"`
	Type      MessageType     `json:"type" validate:"required"`
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload" validate:"required"`
}

func NewEnvelope(msg *OutboxMessage) Envelope {
	return Envelope{
		ID:        msg.ID,
		SagaID:    msg.SagaID,
		Type:      msg.Type,
		CreatedAt: msg.CreatedAt,
		Payload:   msg.Payload,
	}
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: decode envelope: %v", internalErrors.ErrInvalidMessage, err)
	}

	return e, nil
}

type PaymentRequest struct {
	ID     uuid.UUID
	SagaID uuid.UUID
	PaymentRequestPayload
}

type ApprovalRequest struct {
	ID     uuid.UUID
	SagaID uuid.UUID
	ApprovalRequestPayload
}

type PaymentResponse struct {
	ID     uuid.UUID
	SagaID uuid.UUID
	PaymentResponsePayload
}

type ApprovalResponse struct {
	ID     uuid.UUID
	SagaID uuid.UUID
	ApprovalResponsePayload
}

func (e Envelope) PaymentRequest() (*PaymentRequest, error) {
	req := &PaymentRequest{ID: e.ID, SagaID: e.SagaID}
	if err := e.decode(PaymentRequestMessage, &req.PaymentRequestPayload); err != nil {
		return nil, err
	}

	return req, nil
}

func (e Envelope) ApprovalRequest() (*ApprovalRequest, error) {
	req := &ApprovalRequest{ID: e.ID, SagaID: e.SagaID}
	if err := e.decode(ApprovalRequestMessage, &req.ApprovalRequestPayload); err != nil {
		return nil, err
	}

	return req, nil
}

func (e Envelope) PaymentResponse() (*PaymentResponse, error) {
	resp := &PaymentResponse{ID: e.ID, SagaID: e.SagaID}
	if err := e.decode(PaymentResponseMessage, &resp.PaymentResponsePayload); err != nil {
		return nil, err
	}

	return resp, nil
}

func (e Envelope) ApprovalResponse() (*ApprovalResponse, error) {
	resp := &ApprovalResponse{ID: e.ID, SagaID: e.SagaID}
	if err := e.decode(ApprovalResponseMessage, &resp.ApprovalResponsePayload); err != nil {
		return nil, err
	}

	return resp, nil
}

func (e Envelope) CreateOrderCommand() (*CreateOrderCommand, error) {
	var cmd CreateOrderCommand
	if err := e.decode(OrderCreateMessage, &cmd); err != nil {
		return nil, err
	}

	return &cmd, nil
}

func (e Envelope) decode(want MessageType, dst any) error {
	if e.Type != want {
		return fmt.Errorf("%w: expected %s message, got %q", internalErrors.ErrInvalidMessage, want, e.Type)
	}

	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", internalErrors.ErrInvalidMessage, want, err)
	}

	return nil
}
