package completer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"dogfordate/pkg/client"
	"dogfordate/pkg/logger"
)

type mockBookingClient struct {
	calls        atomic.Int32
	completeFunc func(ctx context.Context) (*client.CompletionResult, error)
}

func (m *mockBookingClient) CompleteDue(ctx context.Context) (*client.CompletionResult, error) {
	m.calls.Add(1)
	return m.completeFunc(ctx)
}

func TestTick(t *testing.T) {
	mock := &mockBookingClient{
		completeFunc: func(ctx context.Context) (*client.CompletionResult, error) {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("tick must bound the call with a deadline")
			}
			return &client.CompletionResult{Completed: 3, IDs: []string{"a", "b", "c"}}, nil
		},
	}

	n, err := New(mock, time.Minute, logger.Discard()).Tick(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("Tick() = %d, %v", n, err)
	}
}

func TestTick_Error(t *testing.T) {
	mock := &mockBookingClient{
		completeFunc: func(ctx context.Context) (*client.CompletionResult, error) {
			return nil, errors.New("connection refused")
		},
	}

	if _, err := New(mock, time.Minute, logger.Discard()).Tick(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRun_KeepsTickingAfterFailures(t *testing.T) {
	mock := &mockBookingClient{
		completeFunc: func(ctx context.Context) (*client.CompletionResult, error) {
			return nil, errors.New("service unavailable")
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := New(mock, 10*time.Millisecond, logger.Discard()).Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v", err)
	}
	if mock.calls.Load() < 2 {
		t.Errorf("ticked %d times, want at least 2", mock.calls.Load())
	}
}
