// Package completer periodically asks the bookings service to complete
// confirmed bookings whose end time has passed.
package completer

import (
	"context"
	"time"

	"dogfordate/pkg/client"
	"dogfordate/pkg/logger"
)

type BookingCompleter interface {
	CompleteDue(ctx context.Context) (*client.CompletionResult, error)
}

type Completer struct {
	bookings BookingCompleter
	interval time.Duration
	log      *logger.Logger
}

func New(bookings BookingCompleter, interval time.Duration, log *logger.Logger) *Completer {
	return &Completer{
		bookings: bookings,
		interval: interval,
		log:      log,
	}
}

// Tick runs one completion pass and returns how many bookings were completed.
func (c *Completer) Tick(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()

	result, err := c.bookings.CompleteDue(ctx)
	if err != nil {
		return 0, err
	}
	if result.Completed > 0 {
		c.log.Info("Completed due bookings", "completed", result.Completed, "ids", result.IDs)
	} else {
		c.log.Debug("No bookings due for completion")
	}
	return result.Completed, nil
}

// Run ticks immediately and then every interval until ctx is done. A failed
// pass is logged and retried on the next tick.
func (c *Completer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if _, err := c.Tick(ctx); err != nil && ctx.Err() == nil {
			c.log.Error("Completion pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
