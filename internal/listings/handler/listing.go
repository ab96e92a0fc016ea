package handler

import (
	"fmt"
	"net/http"

	"dogfordate/internal/listings/service"
	"dogfordate/pkg/discovery"
	apperrors "dogfordate/pkg/errors"
	httputil "dogfordate/pkg/http"
	"dogfordate/pkg/logger"
	"dogfordate/pkg/model"
	"dogfordate/pkg/sanitizer"

	"github.com/julienschmidt/httprouter"
)

type ListingHandler struct {
	service service.ListingService
	log     *logger.Logger
}

func NewListingHandler(service service.ListingService, log *logger.Logger) *ListingHandler {
	return &ListingHandler{
		service: service,
		log:     log,
	}
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var listing model.Listing
	if err := httputil.DecodeJSON(r, &listing); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Create(r.Context(), acc, &listing); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "Create", httputil.WriteCreated(w, listing))
}

func (h *ListingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	listings, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "GetAll", httputil.WritePaginated(w, listings, total, limit, offset))
}

func (h *ListingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	listing, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "GetByID", httputil.WriteSuccess(w, listing))
}

func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var updates model.ListingUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		httputil.WriteError(w, err)
		return
	}

	listing, err := h.service.Update(r.Context(), acc, ps.ByName("id"), &updates)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "Update", httputil.WriteSuccess(w, listing))
}

func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), acc, ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// Search accepts q, size, personality, activity_level, min_rate, max_rate and
// limit. List parameters may repeat or be comma separated.
func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, _, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	listings, err := h.service.Search(r.Context(), filter, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "Search", httputil.WriteSuccess(w, listings))
}

func (h *ListingHandler) AddReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	acc, err := httputil.CurrentAccount(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var review model.Review
	if err := httputil.DecodeJSON(r, &review); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.AddReview(r.Context(), acc, ps.ByName("id"), &review); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "AddReview", httputil.WriteCreated(w, review))
}

func (h *ListingHandler) ListReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reviews, err := h.service.ListReviews(r.Context(), ps.ByName("id"), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, "ListReviews", httputil.WriteSuccess(w, reviews))
}

func (h *ListingHandler) respond(w http.ResponseWriter, handler string, err error) {
	if err != nil {
		h.log.Error("failed to write response", "handler", handler, "error", err)
	}
}

func parseFilter(r *http.Request) (discovery.Filter, error) {
	var (
		f   discovery.Filter
		err error
	)
	f.TextQuery = sanitizer.TrimAndNormalize(r.URL.Query().Get("q"))

	if f.Sizes, err = enumParam(r, "size", model.Sizes); err != nil {
		return f, err
	}
	if f.Personalities, err = enumParam(r, "personality", model.Personalities); err != nil {
		return f, err
	}
	if f.ActivityLevels, err = enumParam(r, "activity_level", model.ActivityLevels); err != nil {
		return f, err
	}
	if f.MinRate, err = httputil.QueryFloat(r, "min_rate"); err != nil {
		return f, err
	}
	if f.MaxRate, err = httputil.QueryFloat(r, "max_rate"); err != nil {
		return f, err
	}
	return f, nil
}

func enumParam(r *http.Request, key string, allowed []string) ([]string, error) {
	raw := httputil.QueryList(r, key)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		canonical := sanitizer.NormalizeEnum(v, allowed)
		if canonical == "" {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown %s: %s", key, v))
		}
		out = append(out, canonical)
	}
	return out, nil
}

func (h *ListingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/listings", h.Create)
	router.GET("/api/v1/listings", h.GetAll)
	router.GET("/api/v1/listings/search", h.Search)
	router.GET("/api/v1/listings/id/:id", h.GetByID)
	router.PATCH("/api/v1/listings/id/:id", h.Update)
	router.DELETE("/api/v1/listings/id/:id", h.Delete)
	router.POST("/api/v1/listings/id/:id/reviews", h.AddReview)
	router.GET("/api/v1/listings/id/:id/reviews", h.ListReviews)
}
