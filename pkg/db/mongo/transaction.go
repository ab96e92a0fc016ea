package mongo

import (
	"context"
	"fmt"

	apperrors "dogfordate/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// TransactionFunc is the body of a transaction. Every store call inside it
// must use sessCtx so the writes join the transaction.
type TransactionFunc func(sessCtx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

// SessionStarter is satisfied by *mongo.Client.
type SessionStarter interface {
	StartSession(opts ...*options.SessionOptions) (mongo.Session, error)
}

type sessionTransactionManager struct {
	sessions SessionStarter
	opts     *options.TransactionOptions
}

// NewTransactionManager returns a manager whose transactions read a snapshot
// and commit with majority write concern. Transactions need a replica set.
func NewTransactionManager(sessions SessionStarter) TransactionManager {
	return &sessionTransactionManager{
		sessions: sessions,
		opts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority()),
	}
}

// ExecuteTransaction runs fn in a multi-document transaction. The driver
// retries fn on transient transaction errors, so fn must be safe to re-run.
// Application errors returned by fn abort the transaction and pass through
// unwrapped.
func (m *sessionTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.sessions.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	if _, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	}, m.opts); err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction aborted: %w", err)
	}
	return nil
}
