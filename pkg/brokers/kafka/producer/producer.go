// Package producer publishes outbox rows to Kafka.
package producer

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/sony/gobreaker/v2"

	"github.com/tumbleweedd/food_ordering_system/internal/config"
	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

const (
	HeaderType   = "type"
	HeaderSagaID = "saga_id"
)

type Producer struct {
	log logger.Logger

	topics map[models.MessageType]string

	producer sarama.SyncProducer
	breaker  *gobreaker.CircuitBreaker[struct{}]
}

// NewSyncProducer dials the brokers. A send returns only after every in-sync replica stored the message.
func NewSyncProducer(brokerList []string) (sarama.SyncProducer, error) {
	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Compression = sarama.CompressionNone
	producerConfig.Producer.Partitioner = sarama.NewHashPartitioner
	producerConfig.Producer.Retry.Max = 3
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Return.Errors = true

	return sarama.NewSyncProducer(brokerList, producerConfig)
}

func New(
	log logger.Logger,
	producer sarama.SyncProducer,
	topics map[models.MessageType]string,
	breakerConfig config.BreakerConfig,
) *Producer {
	maxFailures := breakerConfig.MaxFailures
	if maxFailures == 0 {
		maxFailures = 1
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-producer",
		MaxRequests: 1,
		Timeout:     breakerConfig.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("brokers.kafka.producer.breaker",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})

	return &Producer{
		log:      log,
		topics:   topics,
		producer: producer,
		breaker:  breaker,
	}
}

// Publish sends msg as an Envelope keyed by its saga id.
// A message that can never be routed or encoded returns ErrPublishPermanent.
func (p *Producer) Publish(ctx context.Context, msg *models.OutboxMessage) error {
	const op = "brokers.kafka.producer.Publish"

	topic, ok := p.topics[msg.Type]
	if !ok || topic == "" {
		return fmt.Errorf("%s: no topic for message type %q: %w", op, msg.Type, internalErrors.ErrPublishPermanent)
	}

	value, err := models.NewEnvelope(msg).Marshal()
	if err != nil {
		return fmt.Errorf("%s: marshal envelope: %v: %w", op, err, internalErrors.ErrPublishPermanent)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(msg.SagaID.String()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderType), Value: []byte(msg.Type)},
			{Key: []byte(HeaderSagaID), Value: []byte(msg.SagaID.String())},
		},
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.send(ctx, message)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.log.Warn(op, logger.String("topic", topic), logger.String("error", err.Error()))
		} else {
			p.log.Error(op, logger.String("topic", topic), logger.String("error", err.Error()))
		}

		return fmt.Errorf("%s: send to %s: %w", op, topic, err)
	}

	p.log.Debug(op,
		logger.String("topic", topic),
		logger.String("saga_id", msg.SagaID.String()),
		logger.String("outbox_id", msg.ID.String()),
	)

	return nil
}

func (p *Producer) send(ctx context.Context, message *sarama.ProducerMessage) error {
	done := make(chan error, 1)

	go func() {
		_, _, err := p.producer.SendMessage(message)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
