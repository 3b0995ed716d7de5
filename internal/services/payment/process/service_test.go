package process

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/internal/services/outBox/guard"
	"github.com/tumbleweedd/food_ordering_system/internal/services/outBox/mocks"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

type passTx struct{}

func (passTx) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type memPayments struct {
	payments  map[uuid.UUID]models.Payment
	entries   map[uuid.UUID]models.CreditEntry
	histories map[uuid.UUID][]models.CreditHistory
}

func newMemPayments(customerUUID uuid.UUID, credit int64) *memPayments {
	return &memPayments{
		payments: make(map[uuid.UUID]models.Payment),
		entries: map[uuid.UUID]models.CreditEntry{
			customerUUID: {CreditEntryUUID: uuid.New(), CustomerUUID: customerUUID, TotalCreditAmount: decimal.NewFromInt(credit)},
		},
		histories: map[uuid.UUID][]models.CreditHistory{
			customerUUID: {{CreditHistoryUUID: uuid.New(), CustomerUUID: customerUUID, Amount: decimal.NewFromInt(credit), Type: models.TransactionCredit}},
		},
	}
}

func (m *memPayments) SavePayment(_ context.Context, payment *models.Payment) error {
	m.payments[payment.OrderUUID] = *payment
	return nil
}

func (m *memPayments) PaymentByOrder(_ context.Context, orderUUID uuid.UUID) (*models.Payment, error) {
	payment, ok := m.payments[orderUUID]
	if !ok {
		return nil, internalErrors.ErrPaymentNotFound
	}

	return &payment, nil
}

func (m *memPayments) CreditEntry(_ context.Context, customerUUID uuid.UUID) (*models.CreditEntry, error) {
	entry, ok := m.entries[customerUUID]
	if !ok {
		return nil, internalErrors.ErrCreditEntryNotFound
	}

	return &entry, nil
}

func (m *memPayments) SaveCreditEntry(_ context.Context, entry *models.CreditEntry) error {
	m.entries[entry.CustomerUUID] = *entry
	return nil
}

func (m *memPayments) CreditHistories(_ context.Context, customerUUID uuid.UUID) ([]models.CreditHistory, error) {
	histories := m.histories[customerUUID]
	if len(histories) == 0 {
		return nil, internalErrors.ErrCreditHistoryEmpty
	}

	return append([]models.CreditHistory(nil), histories...), nil
}

func (m *memPayments) SaveCreditHistory(_ context.Context, history *models.CreditHistory) error {
	m.histories[history.CustomerUUID] = append(m.histories[history.CustomerUUID], *history)
	return nil
}

type memOutbox struct {
	rows []models.OutboxMessage
}

func (m *memOutbox) Save(_ context.Context, msg *models.OutboxMessage) error {
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memOutbox) Find(_ context.Context, sagaID uuid.UUID, msgType models.MessageType, sagaStatus models.SagaStatus) (*models.OutboxMessage, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		row := m.rows[i]
		if row.SagaID == sagaID && row.Type == msgType && row.SagaStatus == sagaStatus {
			return &row, nil
		}
	}

	return nil, internalErrors.ErrOutboxNotFound
}

func (m *memOutbox) completeAll() {
	for i := range m.rows {
		m.rows[i].OutboxStatus = models.OutboxStatusCompleted
	}
}

func (m *memOutbox) response(t *testing.T, i int) models.PaymentResponsePayload {
	t.Helper()

	var payload models.PaymentResponsePayload
	require.NoError(t, json.Unmarshal(m.rows[i].Payload, &payload))

	return payload
}

func newService(t *testing.T, payments *memPayments) (*Service, *memOutbox, *mocks.MockPublisher) {
	t.Helper()

	log := logger.NewSlogLogger(logger.EnvLocal)
	outBox := &memOutbox{}
	publisher := mocks.NewMockPublisher(gomock.NewController(t))

	return New(log, passTx{}, payments, outBox, guard.New(log, outBox, publisher)), outBox, publisher
}

func paymentRequest(customerUUID uuid.UUID, price int64, status models.PaymentOrderStatus) *models.PaymentRequest {
	orderUUID := uuid.New()

	return &models.PaymentRequest{
		ID:     uuid.New(),
		SagaID: orderUUID,
		PaymentRequestPayload: models.PaymentRequestPayload{
			OrderID:            orderUUID,
			CustomerID:         customerUUID,
			Price:              decimal.NewFromInt(price),
			PaymentOrderStatus: status,
		},
	}
}

func TestHandlePaymentRequest(t *testing.T) {
	customerUUID := uuid.New()

	tCases := []struct {
		name         string
		price        int64
		wantStatus   models.PaymentStatus
		wantCredit   int64
		wantFailures []string
	}{
		{
			name:       "completed",
			price:      100,
			wantStatus: models.PaymentStatusCompleted,
			wantCredit: 400,
		},
		{
			name:       "not_enough_credit",
			price:      600,
			wantStatus: models.PaymentStatusFailed,
			wantCredit: 500,
			wantFailures: []string{
				fmt.Sprintf("Customer with id=%s doesn't have enough credit for payment!", customerUUID),
			},
		},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			payments := newMemPayments(customerUUID, 500)
			svc, outBox, _ := newService(t, payments)
			req := paymentRequest(customerUUID, tCase.price, models.PaymentOrderStatusPending)

			require.NoError(t, svc.HandlePaymentRequest(context.Background(), req))

			require.Len(t, outBox.rows, 1)
			require.Equal(t, models.PaymentResponseMessage, outBox.rows[0].Type)
			require.Equal(t, req.SagaID, outBox.rows[0].SagaID)
			require.Equal(t, models.SagaStatusStarted, outBox.rows[0].SagaStatus)

			payload := outBox.response(t, 0)
			require.Equal(t, tCase.wantStatus, payload.PaymentStatus)
			require.Equal(t, tCase.wantFailures, payload.FailureMessages)
			require.Equal(t, req.OrderID, payload.OrderID)

			require.True(t, decimal.NewFromInt(tCase.wantCredit).Equal(payments.entries[customerUUID].TotalCreditAmount))
		})
	}
}

func TestHandlePaymentRequestRedelivered(t *testing.T) {
	customerUUID := uuid.New()
	payments := newMemPayments(customerUUID, 500)
	svc, outBox, publisher := newService(t, payments)
	req := paymentRequest(customerUUID, 100, models.PaymentOrderStatusPending)
	ctx := context.Background()

	require.NoError(t, svc.HandlePaymentRequest(ctx, req))
	outBox.completeAll()

	publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	require.NoError(t, svc.HandlePaymentRequest(ctx, req))
	require.Len(t, outBox.rows, 1)
	require.True(t, decimal.NewFromInt(400).Equal(payments.entries[customerUUID].TotalCreditAmount))
	require.Len(t, payments.histories[customerUUID], 2)
}

func TestCancelPayment(t *testing.T) {
	customerUUID := uuid.New()
	payments := newMemPayments(customerUUID, 500)
	svc, outBox, _ := newService(t, payments)
	ctx := context.Background()

	req := paymentRequest(customerUUID, 100, models.PaymentOrderStatusPending)
	require.NoError(t, svc.HandlePaymentRequest(ctx, req))

	req.PaymentOrderStatus = models.PaymentOrderStatusCancelled
	require.NoError(t, svc.HandlePaymentRequest(ctx, req))

	require.Len(t, outBox.rows, 2)
	require.Equal(t, models.SagaStatusCompensating, outBox.rows[1].SagaStatus)
	require.Equal(t, models.PaymentStatusCancelled, outBox.response(t, 1).PaymentStatus)
	require.Equal(t, models.PaymentStatusCancelled, payments.payments[req.OrderID].Status)
	require.True(t, decimal.NewFromInt(500).Equal(payments.entries[customerUUID].TotalCreditAmount))
	require.Len(t, payments.histories[customerUUID], 3)
}

func TestCancelMissingPayment(t *testing.T) {
	customerUUID := uuid.New()
	svc, outBox, _ := newService(t, newMemPayments(customerUUID, 500))

	err := svc.HandlePaymentRequest(context.Background(), paymentRequest(customerUUID, 100, models.PaymentOrderStatusCancelled))
	require.ErrorIs(t, err, internalErrors.ErrPaymentNotFound)
	require.True(t, internalErrors.IsFatal(err))
	require.Empty(t, outBox.rows)
}

func TestUnknownCustomer(t *testing.T) {
	svc, _, _ := newService(t, newMemPayments(uuid.New(), 500))

	err := svc.HandlePaymentRequest(context.Background(), paymentRequest(uuid.New(), 100, models.PaymentOrderStatusPending))
	require.ErrorIs(t, err, internalErrors.ErrCreditEntryNotFound)
}
