package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	kafka_config "dogfordate/pkg/kafka/config"
	"dogfordate/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

// Consumer reads one topic in a consumer group. Delivery is at-least-once:
// offsets are committed only after the handler returns, so handlers must be
// idempotent.
type Consumer struct {
	reader       messageReader
	dlqWriter    messageWriter
	topic        string
	groupID      string
	maxRetries   int
	retryBackoff time.Duration
	handler      MessageHandler
	middleware   []ConsumerMiddleware
	log          *logger.Logger
	closed       bool
	mu           sync.RWMutex
	wg           sync.WaitGroup
}

func NewConsumer(cfg *kafka_config.Config, topic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if cfg.ConsumerGroup == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           cfg.ConsumerGroup,
		MinBytes:          cfg.ConsumerMinBytes,
		MaxBytes:          cfg.ConsumerMaxBytes,
		MaxWait:           cfg.ConsumerMaxWait,
		CommitInterval:    cfg.ConsumerCommitInterval,
		HeartbeatInterval: cfg.ConsumerHeartbeatInterval,
		SessionTimeout:    cfg.ConsumerSessionTimeout,
		RebalanceTimeout:  cfg.ConsumerRebalanceTimeout,
		StartOffset:       cfg.ConsumerStartOffset,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("kafka reader error", "topic", topic, "detail", fmt.Sprintf(msg, args...))
		}),
	})

	c := &Consumer{
		reader:       reader,
		topic:        topic,
		groupID:      cfg.ConsumerGroup,
		maxRetries:   cfg.ConsumerMaxRetries,
		retryBackoff: cfg.ConsumerRetryBackoff,
		handler:      handler,
		log:          log,
	}
	if cfg.DLQTopic != "" {
		c.dlqWriter = newWriter(cfg, cfg.DLQTopic, kafka.RequireAll, 3, log)
	}
	return c, nil
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start consumes until ctx is cancelled or the consumer is closed.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	for {
		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return ErrConsumerClosed
			}
			c.log.Error("kafka consumer fetch failed", "topic", c.topic, "error", err)
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		msg := fromKafkaMessage(kafkaMsg)
		if err := c.processMessage(ctx, msg); err != nil {
			c.log.Warn("kafka message not processed",
				"topic", c.topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"event_id", msg.GetEventID(),
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, kafkaMsg); err != nil && ctx.Err() == nil {
			c.log.Error("kafka consumer commit failed", "topic", c.topic, "offset", kafkaMsg.Offset, "error", err)
		}
	}
}

func (c *Consumer) chain() MessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	handler := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw, next := c.middleware[i], handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}
	return handler
}

// processMessage retries transient failures in place with linear backoff,
// then routes permanent failures to the DLQ. Rejected events are dropped.
func (c *Consumer) processMessage(ctx context.Context, msg Message) error {
	handler := c.chain()

	for {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}

		retries := msg.GetRetryCount()
		if Retryable(err, retries, c.maxRetries) {
			msg.IncrementRetryCount()
			if !sleep(ctx, c.retryBackoff*time.Duration(retries+1)) {
				return ctx.Err()
			}
			continue
		}

		if Classify(err) == FailureRejected || c.dlqWriter == nil {
			return err
		}
		if dlqErr := c.sendToDLQ(ctx, msg, err); dlqErr != nil {
			return fmt.Errorf("failed to send message to DLQ: %v (original error: %w)", dlqErr, err)
		}
		c.log.Warn("kafka message sent to DLQ", "topic", c.topic, "retries", retries, "error", err)
		return err
	}
}

func (c *Consumer) sendToDLQ(ctx context.Context, msg Message, originalErr error) error {
	headers := msg.cloneHeaders()
	headers[HeaderOriginalTopic] = c.topic
	headers[HeaderDLQError] = originalErr.Error()
	headers[HeaderDLQTimestamp] = time.Now().UTC().Format(time.RFC3339)
	headers[HeaderDLQGroup] = c.groupID

	return c.dlqWriter.WriteMessages(ctx, toKafkaMessage(msg, headers))
}

func fromKafkaMessage(km kafka.Message) Message {
	msg := Message{
		Key:       string(km.Key),
		Value:     km.Value,
		Headers:   make(map[string]string, len(km.Headers)),
		Topic:     km.Topic,
		Partition: km.Partition,
		Offset:    km.Offset,
		Timestamp: km.Time,
	}
	for _, h := range km.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// Close waits for Start to return before releasing the reader; cancel the
// Start context first.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.reader.Close()
	c.wg.Wait()

	if c.dlqWriter != nil {
		if dlqErr := c.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
