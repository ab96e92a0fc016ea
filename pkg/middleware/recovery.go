package middleware

import (
	"net/http"
	"runtime/debug"

	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/logger"
)

func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("Panic recovered",
						"request_id", RequestID(r),
						"error", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					apperrors.WriteError(w, apperrors.Internal("Internal server error", nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
