package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrProducerClosed = errors.New("kafka producer is closed")
	ErrConsumerClosed = errors.New("kafka consumer is closed")
	ErrInvalidMessage = errors.New("invalid message")
	ErrEmptyKey       = errors.New("message key cannot be empty")
	ErrEmptyValue     = errors.New("message value cannot be empty")
)

// Failure says what the consumer does with an event whose handler failed.
type Failure int

const (
	FailureNone Failure = iota
	// FailureTransient is retried in place: broker or store unreachable,
	// deadlines.
	FailureTransient
	// FailurePermanent goes to the dead-letter topic: undecodable events, or
	// events missing the ids the read model needs.
	FailurePermanent
	// FailureRejected is logged and skipped: well-formed events this service
	// has no use for.
	FailureRejected
)

func (f Failure) String() string {
	switch f {
	case FailureTransient:
		return "transient"
	case FailurePermanent:
		return "permanent"
	case FailureRejected:
		return "rejected"
	}
	return "none"
}

// HandlerError tags a handler failure with how it should be treated.
type HandlerError struct {
	Failure Failure
	Reason  string
	Err     error
}

func (e *HandlerError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

func Transient(reason string, err error) *HandlerError {
	return &HandlerError{Failure: FailureTransient, Reason: reason, Err: err}
}

func Permanent(reason string, err error) *HandlerError {
	return &HandlerError{Failure: FailurePermanent, Reason: reason, Err: err}
}

func Rejected(reason string, err error) *HandlerError {
	return &HandlerError{Failure: FailureRejected, Reason: reason, Err: err}
}

// Error text seen from dialers and the Mongo driver when a dependency is
// briefly unavailable.
var transientText = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"deadline exceeded",
	"server selection",
	"temporary failure",
}

// Classify decides how a handler failure is treated. Anything it cannot
// recognise as transient is permanent, so one bad event cannot stall a
// partition.
func Classify(err error) Failure {
	if err == nil {
		return FailureNone
	}

	var tagged *HandlerError
	if errors.As(err, &tagged) {
		return tagged.Failure
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	// kafka-go broker errors and net errors both expose Temporary or Timeout.
	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return FailureTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTransient
	}

	text := strings.ToLower(err.Error())
	for _, fragment := range transientText {
		if strings.Contains(text, fragment) {
			return FailureTransient
		}
	}
	return FailurePermanent
}

// Retryable reports whether a failed event gets another attempt.
func Retryable(err error, attempts, maxRetries int) bool {
	return err != nil && attempts < maxRetries && Classify(err) == FailureTransient
}
