package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	kafka_middleware "dogfordate/pkg/kafka/middleware"
	"dogfordate/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context, *readpref.ReadPref) error { return p.err }

func serve(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	router := httprouter.New()
	h.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	rec, resp := serve(t, NewHandler(stubPinger{}, nil, logger.Discard()), "/health")
	if rec.Code != http.StatusOK || resp.Status != "ok" {
		t.Errorf("got %d %+v", rec.Code, resp)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		metrics    *kafka_middleware.Metrics
		wantStatus int
		wantKafka  bool
	}{
		{"database up", nil, nil, http.StatusOK, false},
		{"database down", errors.New("no reachable servers"), nil, http.StatusServiceUnavailable, false},
		{"with kafka metrics", nil, kafka_middleware.NewMetrics(), http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := serve(t, NewHandler(stubPinger{err: tt.pingErr}, tt.metrics, logger.Discard()), "/ready")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if (resp.Kafka != nil) != tt.wantKafka {
				t.Errorf("kafka section present = %v, want %v", resp.Kafka != nil, tt.wantKafka)
			}
		})
	}
}
