package middleware

import (
	"net/http"
	"slices"
	"strings"

	"dogfordate/pkg/auth"
	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/logger"
)

// TokenParser verifies a bearer token.
type TokenParser interface {
	ParseValidate(token string) (*auth.Claims, error)
}

// Authenticate resolves the bearer token into an auth.Account on the request
// context. Paths listed in public may be called anonymously; a token sent to
// them is still honoured.
func Authenticate(parser TokenParser, log *logger.Logger, public ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")

			if !found || strings.TrimSpace(token) == "" {
				if isPublic(r, public) {
					next.ServeHTTP(w, r)
					return
				}
				reject(w, log, r, apperrors.Unauthorized("Missing bearer token"))
				return
			}

			claims, err := parser.ParseValidate(strings.TrimSpace(token))
			if err != nil {
				reject(w, log, r, apperrors.Unauthorized("Invalid or expired token"), "error", err)
				return
			}

			ctx := auth.WithAccount(r.Context(), auth.Account{ID: claims.Sub, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole wraps a single handler; it is applied per route rather than to
// the whole router.
func RequireRole(log *logger.Logger, next http.Handler, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, ok := auth.AccountFromContext(r.Context())
		if !ok {
			reject(w, log, r, apperrors.Unauthorized("Authentication required"))
			return
		}
		if !slices.Contains(roles, acc.Role) {
			reject(w, log, r, apperrors.Forbidden("Insufficient role"), "role", acc.Role)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isPublic(r *http.Request, public []string) bool {
	if r.Method != http.MethodGet {
		return false
	}
	for _, prefix := range public {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}
