package middleware

import (
	"net/http"

	"dogfordate/pkg/auth"
	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/logger"
)

type contextKey string

const (
	RequestIDKey    contextKey = "request_id"
	RequestIDHeader            = "X-Request-ID"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one listed is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func RequestID(r *http.Request) string {
	if id, ok := r.Context().Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func accountID(r *http.Request) string {
	if acc, ok := auth.AccountFromContext(r.Context()); ok {
		return acc.ID
	}
	return ""
}

// reject logs the rejection and writes the error body.
func reject(w http.ResponseWriter, log *logger.Logger, r *http.Request, err *apperrors.AppError, args ...any) {
	attrs := append([]any{
		"request_id", RequestID(r),
		"method", r.Method,
		"path", r.URL.Path,
		"code", err.Code,
	}, args...)
	log.Warn("Request rejected", attrs...)
	apperrors.WriteError(w, err)
}
