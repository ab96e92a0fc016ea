package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dogfordate/pkg/auth"
	"dogfordate/pkg/client"
	"dogfordate/pkg/config"
	"dogfordate/pkg/contracts"
	"dogfordate/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type stubHandler struct{ path string }

func (s stubHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(s.path, func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	})
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	cfg := &config.Config{
		Port:               "0",
		JWTSecret:          "0123456789abcdef0123456789abcdef",
		JWTIssuer:          "dogfordate",
		JWTTokenTTL:        time.Hour,
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
		RequestTimeout:     5 * time.Second,
		IdempotencyTTL:     time.Minute,
		MaxRequestSize:     1 << 20,
		ShutdownTimeout:    time.Second,
		CORSAllowedOrigins: []string{"*"},
		Log:                logger.Discard(),
		Client:             client.NewClient(),
	}
	a := NewApplication(cfg)
	a.SetApp(contracts.Handlers{
		stubHandler{path: "/api/v1/listings"},
		stubHandler{path: "/api/v1/bookings"},
	}, "/api/v1/listings")
	t.Cleanup(func() {
		a.replayStore.Close()
		a.rateLimiter.Stop()
	})
	return a
}

func TestApplicationAuthentication(t *testing.T) {
	a := newTestApp(t)
	token, err := a.Issuer().CreateAccessToken("acc-1", auth.RoleUser)
	if err != nil {
		t.Fatalf("CreateAccessToken() error = %v", err)
	}

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"public path without token", "/api/v1/listings", "", http.StatusOK},
		{"protected path without token", "/api/v1/bookings", "", http.StatusUnauthorized},
		{"protected path with token", "/api/v1/bookings", token, http.StatusOK},
		{"protected path with bad token", "/api/v1/bookings", "garbage", http.StatusUnauthorized},
		{"health is never authenticated", "/health", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			a.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestApplicationSetsRequestID(t *testing.T) {
	a := newTestApp(t)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}
