package handler

import (
	"net/http"
	"time"

	"dogfordate/internal/bookings/lifecycle"
	"dogfordate/internal/bookings/service"
	"dogfordate/pkg/auth"
	apperrors "dogfordate/pkg/errors"
	httputil "dogfordate/pkg/http"
	"dogfordate/pkg/logger"
	"dogfordate/pkg/middleware"
	"dogfordate/pkg/model"
	"dogfordate/pkg/sanitizer"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

// CompletionResponse mirrors client.CompletionResult.
type CompletionResponse struct {
	Completed int      `json:"completed"`
	IDs       []string `json:"ids"`
}

func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	start, err := parseTime(query.Get("start_time"), "start_time")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	end, err := parseTime(query.Get("end_time"), "end_time")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	quote, err := h.service.Quote(r.Context(), query.Get("dog_id"), start, end)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "Quote", httputil.WriteSuccess(w, quote))
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	booking, err := h.service.Create(r.Context(), acc, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "Create", httputil.WriteCreated(w, booking))
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	booking, err := h.service.GetByID(r.Context(), acc, ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "GetByID", httputil.WriteSuccess(w, booking))
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" {
		canonical := sanitizer.NormalizeEnum(status, model.BookingStatuses)
		if canonical == "" {
			httputil.WriteError(w, apperrors.InvalidInput("unknown status: "+status))
			return
		}
		status = canonical
	}

	bookings, total, err := h.service.ListMine(r.Context(), acc, status, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "ListMine", httputil.WritePaginated(w, bookings, total, limit, offset))
}

// transition returns a handler for one lifecycle action.
func (h *BookingHandler) transition(action string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		acc, err := httputil.CurrentAccount(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		booking, err := h.service.Transition(r.Context(), acc, ps.ByName("id"), action)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		h.respond(w, action, httputil.WriteSuccess(w, booking))
	}
}

func (h *BookingHandler) CompleteDue(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.CompleteDue(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "CompleteDue", httputil.WriteSuccess(w, CompletionResponse{Completed: len(ids), IDs: ids}))
}

func (h *BookingHandler) respond(w http.ResponseWriter, handler string, err error) {
	if err != nil {
		h.log.Error("failed to write response", "handler", handler, "error", err)
	}
}

func parseTime(value, field string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperrors.InvalidInput(field + " is required")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("invalid " + field + " format, must be RFC3339")
	}
	return t, nil
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.ListMine)
	router.GET("/api/v1/bookings/quote", h.Quote)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/confirm", h.transition(lifecycle.ActionConfirm))
	router.POST("/api/v1/bookings/id/:id/cancel", h.transition(lifecycle.ActionCancel))
	router.POST("/api/v1/bookings/id/:id/complete", h.transition(lifecycle.ActionComplete))
	router.POST("/api/v1/bookings/id/:id/pay", h.transition(lifecycle.ActionPay))
	router.Handler(http.MethodPost, "/api/v1/bookings/complete-due",
		middleware.RequireRole(h.log, http.HandlerFunc(h.CompleteDue), auth.RoleSystem, auth.RoleAdmin))
}
