package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrInvalidObjectID = errors.New("invalid object id")

// WithTimeout bounds a single store call. Inside a transaction the session
// context is returned unchanged, since wrapping it would detach the session.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func ToObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidObjectID
	}
	return oid, nil
}

func IsValidObjectID(id string) bool {
	return primitive.IsValidObjectID(id)
}

func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// IsUnavailable reports driver failures that mean the store could not be
// reached, as opposed to a rejected operation.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}
	return errors.Is(err, mongo.ErrClientDisconnected)
}
