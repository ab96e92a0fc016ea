package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"dogfordate/pkg/kafka"
)

// Metrics counts producer and consumer outcomes. One instance is shared by
// the producers and consumers of a process and read by the health endpoint.
type Metrics struct {
	published      atomic.Int64
	publishFailed  atomic.Int64
	publishNanos   atomic.Int64
	consumed       atomic.Int64
	consumeFailed  atomic.Int64
	consumeNanos   atomic.Int64
	lastConsumedAt atomic.Int64 // unix nanos
}

type Snapshot struct {
	MessagesPublished       int64      `json:"messages_published"`
	MessagesPublishedFailed int64      `json:"messages_published_failed"`
	AvgPublishDuration      string     `json:"avg_publish_duration"`
	MessagesConsumed        int64      `json:"messages_consumed"`
	MessagesConsumedFailed  int64      `json:"messages_consumed_failed"`
	AvgConsumeDuration      string     `json:"avg_consume_duration"`
	LastConsumedAt          *time.Time `json:"last_consumed_at,omitempty"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		MessagesPublished:       m.published.Load(),
		MessagesPublishedFailed: m.publishFailed.Load(),
		MessagesConsumed:        m.consumed.Load(),
		MessagesConsumedFailed:  m.consumeFailed.Load(),
		AvgPublishDuration:      average(m.publishNanos.Load(), m.published.Load()+m.publishFailed.Load()).String(),
		AvgConsumeDuration:      average(m.consumeNanos.Load(), m.consumed.Load()+m.consumeFailed.Load()).String(),
	}
	if ns := m.lastConsumedAt.Load(); ns > 0 {
		t := time.Unix(0, ns).UTC()
		s.LastConsumedAt = &t
	}
	return s
}

func (m *Metrics) Reset() {
	m.published.Store(0)
	m.publishFailed.Store(0)
	m.publishNanos.Store(0)
	m.consumed.Store(0)
	m.consumeFailed.Store(0)
	m.consumeNanos.Store(0)
	m.lastConsumedAt.Store(0)
}

func average(totalNanos, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNanos / count)
}

func (m *Metrics) ProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.publishNanos.Add(int64(time.Since(start)))
		if err != nil {
			m.publishFailed.Add(1)
		} else {
			m.published.Add(1)
		}
		return err
	}
}

func (m *Metrics) ConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.consumeNanos.Add(int64(time.Since(start)))
		m.lastConsumedAt.Store(time.Now().UnixNano())
		if err != nil {
			m.consumeFailed.Add(1)
		} else {
			m.consumed.Add(1)
		}
		return err
	}
}
