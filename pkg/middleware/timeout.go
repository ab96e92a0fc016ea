package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/logger"
)

type replyState int

const (
	replyPending replyState = iota
	replyStarted
	replyExpired
)

// guardedWriter lets exactly one side answer: the handler, or the deadline.
// Once the deadline has answered, late writes from the handler fail with
// http.ErrHandlerTimeout.
type guardedWriter struct {
	http.ResponseWriter
	mu    sync.Mutex
	state replyState
}

func (g *guardedWriter) WriteHeader(code int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != replyPending {
		return
	}
	g.state = replyStarted
	g.ResponseWriter.WriteHeader(code)
}

func (g *guardedWriter) Write(b []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == replyExpired {
		return 0, http.ErrHandlerTimeout
	}
	g.state = replyStarted
	return g.ResponseWriter.Write(b)
}

// expire reports whether the deadline won the race to answer.
func (g *guardedWriter) expire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == replyStarted {
		return false
	}
	g.state = replyExpired
	return true
}

// RequestTimeout bounds every request with timeout. Store calls and Kafka
// publishes inside the handler see the deadline through the request context.
// A handler panic is re-raised on the serving goroutine for Recovery.
func RequestTimeout(timeout time.Duration, log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			gw := &guardedWriter{ResponseWriter: w}
			finished := make(chan any, 1)
			go func() {
				defer func() { finished <- recover() }()
				next.ServeHTTP(gw, r.WithContext(ctx))
			}()

			select {
			case p := <-finished:
				if p != nil {
					panic(p)
				}
			case <-ctx.Done():
				if gw.expire() {
					log.Warn("Request deadline exceeded",
						"request_id", RequestID(r),
						"method", r.Method,
						"path", r.URL.Path,
						"timeout", timeout.String(),
					)
					apperrors.WriteError(w, apperrors.Timeout("Request timed out"))
					return
				}
				// The handler is mid-response; let it finish.
				if p := <-finished; p != nil {
					panic(p)
				}
			}
		})
	}
}
