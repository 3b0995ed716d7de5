package send

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/internal/services/outBox/mocks"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

// memStore is a version-checking outbox table shared by relays in one test.
type memStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.OutboxMessage
}

func newMemStore(rows ...models.OutboxMessage) *memStore {
	s := &memStore{rows: make(map[uuid.UUID]models.OutboxMessage, len(rows))}
	for _, row := range rows {
		s.rows[row.ID] = row
	}

	return s
}

func (s *memStore) FindByOutboxStatus(_ context.Context, status models.OutboxStatus, msgType models.MessageType, limit int) ([]models.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.OutboxMessage
	for _, row := range s.rows {
		if row.OutboxStatus == status && row.Type == msgType && len(out) < limit {
			out = append(out, row)
		}
	}

	return out, nil
}

func (s *memStore) UpdateStatus(_ context.Context, msg *models.OutboxMessage, status models.OutboxStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !msg.OutboxStatus.CanTransitionTo(status) {
		return internalErrors.ErrOutboxInvalidTransition
	}

	stored := s.rows[msg.ID]
	if stored.Version != msg.Version {
		return fmt.Errorf("id %s: %w", msg.ID, internalErrors.ErrOutboxStale)
	}

	now := time.Now()
	msg.OutboxStatus = status
	msg.ProcessedAt = &now
	msg.Version++
	s.rows[msg.ID] = *msg

	return nil
}

func (s *memStore) row(id uuid.UUID) models.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rows[id]
}

func startedRow(msgType models.MessageType) models.OutboxMessage {
	return models.OutboxMessage{
		ID:           uuid.New(),
		SagaID:       uuid.New(),
		CreatedAt:    time.Now(),
		Type:         msgType,
		Payload:      []byte(`{}`),
		SagaStatus:   models.SagaStatusStarted,
		DomainStatus: string(models.OrderStatusPending),
		OutboxStatus: models.OutboxStatusStarted,
	}
}

func TestSend(t *testing.T) {
	tCases := []struct {
		name       string
		publishErr error
		wantStatus models.OutboxStatus
		wantResult string
	}{
		{
			name:       "ack_completes_row",
			wantStatus: models.OutboxStatusCompleted,
			wantResult: resultCompleted,
		},
		{
			name:       "transient_error_leaves_row_started",
			publishErr: errors.New("leader not available"),
			wantStatus: models.OutboxStatusStarted,
			wantResult: resultRetry,
		},
		{
			name:       "permanent_error_fails_row",
			publishErr: fmt.Errorf("no topic: %w", internalErrors.ErrPublishPermanent),
			wantStatus: models.OutboxStatusFailed,
			wantResult: resultFailed,
		},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			pub := mocks.NewMockPublisher(ctrl)

			row := startedRow(models.PaymentRequestMessage)
			store := newMemStore(row)
			counter := relayMessages.WithLabelValues(string(models.PaymentRequestMessage), tCase.wantResult)
			before := testutil.ToFloat64(counter)

			pub.EXPECT().Publish(gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, msg *models.OutboxMessage) error {
					_, ok := ctx.Deadline()
					require.True(t, ok)
					require.Equal(t, row.ID, msg.ID)
					return tCase.publishErr
				})

			s := New(logger.NewSlogLogger(logger.EnvLocal), store, store, pub,
				[]models.MessageType{models.PaymentRequestMessage}, WithPublishTimeout(time.Second))

			require.NoError(t, s.Send(context.Background()))

			got := store.row(row.ID)
			require.Equal(t, tCase.wantStatus, got.OutboxStatus)
			if tCase.wantStatus == models.OutboxStatusStarted {
				require.Nil(t, got.ProcessedAt)
			} else {
				require.NotNil(t, got.ProcessedAt)
			}
			require.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestSendOnlyConfiguredTypes(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)

	payment := startedRow(models.PaymentRequestMessage)
	approval := startedRow(models.ApprovalRequestMessage)
	store := newMemStore(payment, approval)

	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	s := New(logger.NewSlogLogger(logger.EnvLocal), store, store, pub,
		[]models.MessageType{models.ApprovalRequestMessage})

	require.NoError(t, s.Send(context.Background()))
	require.Equal(t, models.OutboxStatusStarted, store.row(payment.ID).OutboxStatus)
	require.Equal(t, models.OutboxStatusCompleted, store.row(approval.ID).OutboxStatus)
}

// racePublisher lets relay B run a full tick while relay A is still publishing the same row.
type racePublisher struct {
	mu        sync.Mutex
	published int
	onFirst   func()
}

func (p *racePublisher) Publish(context.Context, *models.OutboxMessage) error {
	p.mu.Lock()
	p.published++
	hook := p.onFirst
	p.onFirst = nil
	p.mu.Unlock()

	if hook != nil {
		hook()
	}

	return nil
}

func TestSendConcurrentRelays(t *testing.T) {
	row := startedRow(models.PaymentRequestMessage)
	store := newMemStore(row)
	pub := &racePublisher{}
	types := []models.MessageType{models.PaymentRequestMessage}

	relayA := New(logger.NewSlogLogger(logger.EnvLocal), store, store, pub, types)
	relayB := New(logger.NewSlogLogger(logger.EnvLocal), store, store, pub, types)

	completed := relayMessages.WithLabelValues(string(models.PaymentRequestMessage), resultCompleted)
	stale := relayMessages.WithLabelValues(string(models.PaymentRequestMessage), resultStale)
	completedBefore, staleBefore := testutil.ToFloat64(completed), testutil.ToFloat64(stale)

	pub.onFirst = func() {
		require.NoError(t, relayB.Send(context.Background()))
	}

	require.NoError(t, relayA.Send(context.Background()))

	got := store.row(row.ID)
	require.Equal(t, models.OutboxStatusCompleted, got.OutboxStatus)
	require.Equal(t, 1, got.Version)
	require.Equal(t, 2, pub.published)
	require.Equal(t, completedBefore+1, testutil.ToFloat64(completed))
	require.Equal(t, staleBefore+1, testutil.ToFloat64(stale))
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newMemStore()
	pub := &racePublisher{}

	s := New(logger.NewSlogLogger(logger.EnvLocal), store, store, pub,
		[]models.MessageType{models.PaymentRequestMessage}, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
