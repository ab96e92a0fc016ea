package kafka_middleware

import (
	"context"
	"errors"
	"testing"

	"dogfordate/pkg/kafka"
	"dogfordate/pkg/logger"
)

func TestMetricsCountsOutcomes(t *testing.T) {
	m := NewMetrics()
	produce := m.ProducerMiddleware()
	consume := m.ConsumerMiddleware()

	ok := func(context.Context, kafka.Message) error { return nil }
	fail := func(context.Context, kafka.Message) error { return errors.New("boom") }

	_ = produce(context.Background(), kafka.Message{}, ok)
	_ = produce(context.Background(), kafka.Message{}, ok)
	_ = produce(context.Background(), kafka.Message{}, fail)
	_ = consume(context.Background(), kafka.Message{}, fail)

	s := m.Snapshot()
	if s.MessagesPublished != 2 || s.MessagesPublishedFailed != 1 {
		t.Errorf("publish counters = %d/%d, want 2/1", s.MessagesPublished, s.MessagesPublishedFailed)
	}
	if s.MessagesConsumed != 0 || s.MessagesConsumedFailed != 1 {
		t.Errorf("consume counters = %d/%d, want 0/1", s.MessagesConsumed, s.MessagesConsumedFailed)
	}
	if s.LastConsumedAt == nil {
		t.Error("expected last consumed timestamp")
	}

	m.Reset()
	if s := m.Snapshot(); s.MessagesPublished != 0 || s.LastConsumedAt != nil {
		t.Errorf("Reset() left %+v", s)
	}
}

func TestLoggingMiddlewarePassesErrorThrough(t *testing.T) {
	want := errors.New("boom")
	mw := LoggingConsumerMiddleware(logger.Discard())

	err := mw(context.Background(), kafka.Message{Topic: "t"}, func(context.Context, kafka.Message) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("got %v, want %v", err, want)
	}

	pmw := LoggingProducerMiddleware(logger.Discard())
	if err := pmw(context.Background(), kafka.Message{}, func(context.Context, kafka.Message) error { return nil }); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
