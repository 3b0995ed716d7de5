// Package consumer reads one Kafka topic and commits a message only after its handler returns.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 200 * time.Millisecond
)

type Handler func(ctx context.Context, msg kafka.Message) error

type Config struct {
	Brokers      []string
	GroupID      string
	Topic        string
	DLQPrefix    string
	MaxRetries   int
	RetryBackoff time.Duration
}

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	log     logger.Logger
	cfg     Config
	reader  reader
	dlq     writer
	handler Handler
	isFatal func(error) bool

	closeOnce sync.Once
}

// New builds a consumer group reader for cfg.Topic. Errors for which isFatal reports true
// skip the retries and go straight to the dead-letter topic.
func New(log logger.Logger, cfg Config, handler Handler, isFatal func(error) bool) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		BatchTimeout: 100 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}

	return newConsumer(log, cfg, r, w, handler, isFatal)
}

func newConsumer(log logger.Logger, cfg Config, r reader, w writer, handler Handler, isFatal func(error) bool) *Consumer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}

	if isFatal == nil {
		isFatal = func(error) bool { return false }
	}

	return &Consumer{
		log:     log,
		cfg:     cfg,
		reader:  r,
		dlq:     w,
		handler: handler,
		isFatal: isFatal,
	}
}

func DLQTopic(prefix, topic string) string {
	return fmt.Sprintf("%s.%s", prefix, topic)
}

// Run blocks until ctx is cancelled. It returns an error only when a message can neither be
// handled nor parked in the dead-letter topic, leaving its offset uncommitted.
func (c *Consumer) Run(ctx context.Context) error {
	const op = "brokers.kafka.consumer.Run"

	c.log.Info(op, logger.String("topic", c.cfg.Topic), logger.String("group", c.cfg.GroupID))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info(op, logger.String("topic", c.cfg.Topic), logger.String("status", "stopped"))
				return nil
			}

			c.log.Error(op, logger.String("topic", c.cfg.Topic), logger.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.cfg.RetryBackoff):
			}
			continue
		}

		if err = c.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("%s: %w", op, err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	const op = "brokers.kafka.consumer.process"

	start := time.Now()
	defer func() {
		processingDuration.WithLabelValues(msg.Topic, c.cfg.GroupID).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		lastErr = c.handler(ctx, msg)
		if lastErr == nil {
			break
		}

		if c.isFatal(lastErr) {
			c.log.Error(op,
				logger.String("topic", msg.Topic),
				logger.Int("partition", msg.Partition),
				logger.Any("offset", msg.Offset),
				logger.String("error", lastErr.Error()),
			)
			break
		}

		c.log.Warn(op,
			logger.String("topic", msg.Topic),
			logger.Int("partition", msg.Partition),
			logger.Any("offset", msg.Offset),
			logger.Int("attempt", attempt),
			logger.String("error", lastErr.Error()),
		)

		if attempt == c.cfg.MaxRetries {
			break
		}

		messagesRetried.WithLabelValues(msg.Topic, c.cfg.GroupID).Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.cfg.RetryBackoff):
		}
	}

	if lastErr != nil {
		if err := c.publishDLQ(ctx, msg, lastErr); err != nil {
			return err
		}
	} else {
		messagesProcessed.WithLabelValues(msg.Topic, c.cfg.GroupID).Inc()
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.Error(op, logger.String("topic", msg.Topic), logger.String("error", err.Error()))
	}

	return nil
}

func (c *Consumer) publishDLQ(ctx context.Context, msg kafka.Message, lastErr error) error {
	const op = "brokers.kafka.consumer.publishDLQ"

	dlqTopic := DLQTopic(c.cfg.DLQPrefix, msg.Topic)

	headers := make([]kafka.Header, 0, len(msg.Headers)+5)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "dlq.original_topic", Value: []byte(msg.Topic)},
		kafka.Header{Key: "dlq.original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "dlq.original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "dlq.consumer_group", Value: []byte(c.cfg.GroupID)},
		kafka.Header{Key: "dlq.error", Value: []byte(lastErr.Error())},
	)

	if err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic:   dlqTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}); err != nil {
		c.log.Error(op, logger.String("dlq_topic", dlqTopic), logger.String("error", err.Error()))
		return errors.Join(lastErr, fmt.Errorf("%s: publish to %s: %w", op, dlqTopic, err))
	}

	dlqPublished.WithLabelValues(msg.Topic, c.cfg.GroupID).Inc()

	c.log.Warn(op,
		logger.String("dlq_topic", dlqTopic),
		logger.String("original_topic", msg.Topic),
		logger.Any("offset", msg.Offset),
		logger.String("error", lastErr.Error()),
	)

	return nil
}

func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = errors.Join(c.reader.Close(), c.dlq.Close())
	})

	return err
}
