package handler

import (
	"net/http"

	"dogfordate/internal/conversations/service"
	httputil "dogfordate/pkg/http"
	"dogfordate/pkg/logger"
	"dogfordate/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ConversationHandler struct {
	service service.ConversationService
	log     *logger.Logger
}

func NewConversationHandler(service service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		log:     log,
	}
}

type UnreadResponse struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Unread         int    `json:"unread"`
}

type ReadResponse struct {
	ConversationID string `json:"conversation_id"`
	Marked         int64  `json:"marked"`
}

func (h *ConversationHandler) Start(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req model.StartConversationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	conv, err := h.service.GetOrCreate(r.Context(), acc, req.ParticipantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "Start", httputil.WriteSuccess(w, conv))
}

func (h *ConversationHandler) Inbox(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summaries, err := h.service.ListConversations(r.Context(), acc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "Inbox", httputil.WriteSuccess(w, summaries))
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

	messages, err := h.service.ListMessages(r.Context(), acc, ps.ByName("id"), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "ListMessages", httputil.WriteSuccess(w, messages))
}

func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req model.SendMessageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	msg, err := h.service.AppendMessage(r.Context(), acc, ps.ByName("id"), req.Content)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "Send", httputil.WriteCreated(w, msg))
}

func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	id := ps.ByName("id")
	marked, err := h.service.MarkRead(r.Context(), acc, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "MarkRead", httputil.WriteSuccess(w, ReadResponse{ConversationID: id, Marked: marked}))
}

func (h *ConversationHandler) Unread(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	id := ps.ByName("id")
	n, err := h.service.UnreadCount(r.Context(), acc, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "Unread", httputil.WriteSuccess(w, UnreadResponse{ConversationID: id, Unread: n}))
}

func (h *ConversationHandler) UnreadTotal(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	n, err := h.service.UnreadCountFor(r.Context(), acc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "UnreadTotal", httputil.WriteSuccess(w, UnreadResponse{Unread: n}))
}

func (h *ConversationHandler) respond(w http.ResponseWriter, handler string, err error) {
	if err != nil {
		h.log.Error("failed to write response", "handler", handler, "error", err)
	}
}

func (h *ConversationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/conversations", h.Start)
	router.GET("/api/v1/conversations", h.Inbox)
	router.GET("/api/v1/conversations/id/:id/messages", h.ListMessages)
	router.POST("/api/v1/conversations/id/:id/messages", h.Send)
	router.POST("/api/v1/conversations/id/:id/read", h.MarkRead)
	router.GET("/api/v1/conversations/id/:id/unread", h.Unread)
	router.GET("/api/v1/messages/unread", h.UnreadTotal)
}
