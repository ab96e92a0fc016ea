package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	kafka_config "dogfordate/pkg/kafka/config"
	"dogfordate/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// Publisher is what services depend on to emit events.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// NoopPublisher drops every message. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Message) error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ProducerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

// Producer writes to one topic. Failed writes are copied to the DLQ topic
// when one is configured.
type Producer struct {
	writer     messageWriter
	dlqWriter  messageWriter
	topic      string
	log        *logger.Logger
	middleware []ProducerMiddleware
	closed     bool
	mu         sync.RWMutex
}

func NewProducer(cfg *kafka_config.Config, topic string, log *logger.Logger) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	p := &Producer{
		writer: newWriter(cfg, topic, requiredAcks(cfg.ProducerRequireAcks), cfg.ProducerMaxAttempts, log),
		topic:  topic,
		log:    log,
	}
	if cfg.DLQTopic != "" {
		p.dlqWriter = newWriter(cfg, cfg.DLQTopic, kafka.RequireAll, 3, log)
	}
	return p, nil
}

func newWriter(cfg *kafka_config.Config, topic string, acks kafka.RequiredAcks, attempts int, log *logger.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // same key, same partition
		RequiredAcks:           acks,
		Compression:            compression(cfg.ProducerCompression),
		MaxAttempts:            attempts,
		BatchTimeout:           cfg.ProducerBatchTimeout,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("kafka writer error", "topic", topic, "detail", fmt.Sprintf(msg, args...))
		}),
	}
}

func compression(name string) kafka.Compression {
	switch name {
	case "none":
		return 0
	case "gzip":
		return compress.Gzip
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	default:
		return compress.Snappy
	}
}

func requiredAcks(n int) kafka.RequiredAcks {
	switch n {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

func (p *Producer) Topic() string {
	return p.topic
}

func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	closed := p.closed
	chain := p.middleware
	p.mu.RUnlock()

	if closed {
		return ErrProducerClosed
	}
	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}
	msg.Topic = p.topic

	handler := MessageHandler(p.publishInternal)
	for i := len(chain) - 1; i >= 0; i-- {
		mw, next := chain[i], handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}
	return handler(ctx, msg)
}

func (p *Producer) publishInternal(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, toKafkaMessage(msg, msg.Headers))
	if err == nil {
		return nil
	}

	if p.dlqWriter != nil {
		if dlqErr := p.sendToDLQ(ctx, msg, err); dlqErr != nil {
			return fmt.Errorf("failed to send to DLQ: %v (original error: %w)", dlqErr, err)
		}
	}
	return Transient("publish failed", err)
}

func (p *Producer) sendToDLQ(ctx context.Context, msg Message, originalErr error) error {
	headers := msg.cloneHeaders()
	headers[HeaderOriginalTopic] = p.topic
	headers[HeaderDLQError] = originalErr.Error()
	headers[HeaderDLQTimestamp] = time.Now().UTC().Format(time.RFC3339)

	return p.dlqWriter.WriteMessages(ctx, toKafkaMessage(msg, headers))
}

func toKafkaMessage(msg Message, headers map[string]string) kafka.Message {
	km := kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Value,
		Time:  msg.Timestamp,
	}
	for k, v := range headers {
		km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return km
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.writer.Close()
	if p.dlqWriter != nil {
		if dlqErr := p.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}
