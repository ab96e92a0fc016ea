package middleware

import (
	"fmt"
	"net/http"

	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/logger"
)

// MaxRequestSize rejects declared oversize bodies up front and caps the
// reader for streamed ones.
func MaxRequestSize(limit int64, log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				reject(w, log, r,
					apperrors.New(apperrors.CodePayloadTooLarge,
						fmt.Sprintf("request body exceeds %d bytes", limit),
						http.StatusRequestEntityTooLarge),
					"content_length", r.ContentLength,
				)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
