package producer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"

	"github.com/tumbleweedd/food_ordering_system/internal/config"
	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

var testTopics = map[models.MessageType]string{
	models.PaymentRequestMessage: "payment-request",
}

func testMessage(msgType models.MessageType) *models.OutboxMessage {
	return &models.OutboxMessage{
		ID:           uuid.New(),
		SagaID:       uuid.New(),
		CreatedAt:    time.Now().UTC(),
		Type:         msgType,
		Payload:      []byte(`{"paymentOrderStatus":"PENDING"}`),
		SagaStatus:   models.SagaStatusStarted,
		OutboxStatus: models.OutboxStatusStarted,
	}
}

func newProducer(t *testing.T, sp sarama.SyncProducer, maxFailures uint32) *Producer {
	t.Helper()

	return New(logger.NewSlogLogger(logger.EnvLocal), sp, testTopics, config.BreakerConfig{
		MaxFailures: maxFailures,
		OpenTimeout: time.Minute,
	})
}

func TestPublish(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer func() { require.NoError(t, sp.Close()) }()

	msg := testMessage(models.PaymentRequestMessage)

	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(pm *sarama.ProducerMessage) error {
		if pm.Topic != "payment-request" {
			return fmt.Errorf("unexpected topic %s", pm.Topic)
		}

		key, err := pm.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != msg.SagaID.String() {
			return fmt.Errorf("unexpected key %s", key)
		}

		value, err := pm.Value.Encode()
		if err != nil {
			return err
		}

		envelope, err := models.DecodeEnvelope(value)
		if err != nil {
			return err
		}

		req, err := envelope.PaymentRequest()
		if err != nil {
			return err
		}
		if req.ID != msg.ID || req.SagaID != msg.SagaID {
			return errors.New("envelope ids do not match the outbox row")
		}

		return nil
	})

	require.NoError(t, newProducer(t, sp, 3).Publish(context.Background(), msg))
}

func TestPublishPermanent(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer func() { require.NoError(t, sp.Close()) }()

	err := newProducer(t, sp, 3).Publish(context.Background(), testMessage(models.ApprovalRequestMessage))
	require.ErrorIs(t, err, internalErrors.ErrPublishPermanent)
}

func TestPublishBreakerOpens(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer func() { require.NoError(t, sp.Close()) }()

	brokerErr := errors.New("not enough in-sync replicas")
	sp.ExpectSendMessageAndFail(brokerErr)
	sp.ExpectSendMessageAndFail(brokerErr)

	p := newProducer(t, sp, 2)
	ctx := context.Background()

	tCases := []struct {
		name    string
		wantErr error
	}{
		{name: "first_failure", wantErr: brokerErr},
		{name: "second_failure_trips", wantErr: brokerErr},
		{name: "open_breaker_rejects", wantErr: gobreaker.ErrOpenState},
	}

	for _, tCase := range tCases {
		err := p.Publish(ctx, testMessage(models.PaymentRequestMessage))
		require.ErrorIs(t, err, tCase.wantErr, tCase.name)
		require.NotErrorIs(t, err, internalErrors.ErrPublishPermanent, tCase.name)
	}
}
