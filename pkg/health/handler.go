package health

import (
	"context"
	"net/http"
	"time"

	httputil "dogfordate/pkg/http"
	kafka_middleware "dogfordate/pkg/kafka/middleware"
	"dogfordate/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const readyTimeout = 2 * time.Second

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

type Response struct {
	Status   string                     `json:"status"`
	Database string                     `json:"database,omitempty"`
	Kafka    *kafka_middleware.Snapshot `json:"kafka,omitempty"`
}

type Handler struct {
	db      Pinger
	metrics *kafka_middleware.Metrics
	log     *logger.Logger
}

// NewHandler builds the liveness and readiness endpoints. metrics may be nil
// when the service runs without Kafka.
func NewHandler(db Pinger, metrics *kafka_middleware.Metrics, log *logger.Logger) *Handler {
	return &Handler{db: db, metrics: metrics, log: log}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.write(w, http.StatusOK, Response{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := Response{Status: "ready", Database: "ok"}
	if h.metrics != nil {
		s := h.metrics.Snapshot()
		resp.Kafka = &s
	}

	if err := h.db.Ping(ctx, readpref.Primary()); err != nil {
		h.log.Error("Database health check failed", "error", err, "path", r.URL.Path)
		resp.Status, resp.Database = "unavailable", "error"
		h.write(w, http.StatusServiceUnavailable, resp)
		return
	}
	h.write(w, http.StatusOK, resp)
}

func (h *Handler) write(w http.ResponseWriter, status int, resp Response) {
	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "health", "error", err)
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
