package middleware

import (
	"mime"
	"net/http"

	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/logger"
)

// ContentTypeValidation requires application/json on write requests that
// carry a body. Action endpoints such as POST .../confirm may omit the body.
func ContentTypeValidation(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasBody(r) && isWriteMethod(r.Method) {
				mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
				if mediaType != "application/json" {
					reject(w, log, r,
						apperrors.New(apperrors.CodeUnsupportedContent, "Content-Type must be application/json", http.StatusUnsupportedMediaType),
						"content_type", mediaType,
					)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWriteMethod(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func hasBody(r *http.Request) bool {
	return r.ContentLength > 0 || (r.ContentLength < 0 && len(r.TransferEncoding) > 0)
}
