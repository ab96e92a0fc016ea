package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dogfordate/internal/bookings/service"
	"dogfordate/pkg/auth"
	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/logger"
	"dogfordate/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Mock service for testing
type mockBookingService struct {
	createFunc      func(ctx context.Context, acc auth.Account, req *model.BookingRequest) (*model.Booking, error)
	transitionFunc  func(ctx context.Context, acc auth.Account, id, action string) (*model.Booking, error)
	completeDueFunc func(ctx context.Context) ([]string, error)
	listMineFunc    func(ctx context.Context, acc auth.Account, status string, limit int, offset int64) ([]*model.Booking, int64, error)
}

func (m *mockBookingService) Quote(ctx context.Context, listingID string, start, end time.Time) (*service.QuoteResult, error) {
	if !end.After(start) {
		return nil, apperrors.InvalidInterval("end time must be after start time")
	}
	return &service.QuoteResult{ListingID: listingID, StartTime: start, EndTime: end}, nil
}

func (m *mockBookingService) Create(ctx context.Context, acc auth.Account, req *model.BookingRequest) (*model.Booking, error) {
	return m.createFunc(ctx, acc, req)
}

func (m *mockBookingService) GetByID(ctx context.Context, acc auth.Account, id string) (*model.Booking, error) {
	return nil, apperrors.NotFoundWithID("Booking", id)
}

func (m *mockBookingService) ListMine(ctx context.Context, acc auth.Account, status string, limit int, offset int64) ([]*model.Booking, int64, error) {
	return m.listMineFunc(ctx, acc, status, limit, offset)
}

func (m *mockBookingService) Transition(ctx context.Context, acc auth.Account, id, action string) (*model.Booking, error) {
	return m.transitionFunc(ctx, acc, id, action)
}

func (m *mockBookingService) CompleteDue(ctx context.Context) ([]string, error) {
	return m.completeDueFunc(ctx)
}

func serve(svc service.BookingService, req *http.Request, acc *auth.Account) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewBookingHandler(svc, logger.Discard()).RegisterRoutes(router)

	if acc != nil {
		req = req.WithContext(auth.WithAccount(req.Context(), *acc))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body
}

var user = &auth.Account{ID: "renter", Role: auth.RoleUser}

func TestCreate(t *testing.T) {
	var received *model.BookingRequest
	svc := &mockBookingService{
		createFunc: func(ctx context.Context, acc auth.Account, req *model.BookingRequest) (*model.Booking, error) {
			received = req
			return &model.Booking{ID: "b1", RenterID: acc.ID, Status: model.BookingPending}, nil
		},
	}

	tests := []struct {
		name   string
		body   string
		acc    *auth.Account
		status int
	}{
		{"valid", `{"dog_id":"665f1c2b9d3e4a0012345678","start_time":"2026-06-01T10:00:00Z","end_time":"2026-06-01T12:00:00Z"}`, user, http.StatusCreated},
		{"unknown field", `{"dog_id":"x","price":1}`, user, http.StatusBadRequest},
		{"malformed", `{`, user, http.StatusBadRequest},
		{"anonymous", `{}`, nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			received = nil
			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := serve(svc, req, tt.acc)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status == http.StatusCreated && (received == nil || received.EndTime.Sub(received.StartTime) != 2*time.Hour) {
				t.Errorf("service received %+v", received)
			}
		})
	}
}

func TestTransitionRoutes(t *testing.T) {
	var gotAction, gotID string
	svc := &mockBookingService{
		transitionFunc: func(ctx context.Context, acc auth.Account, id, action string) (*model.Booking, error) {
			gotAction, gotID = action, id
			if action == "complete" {
				return nil, apperrors.InvalidTransition(action, model.BookingPending)
			}
			return &model.Booking{ID: id}, nil
		},
	}

	for _, action := range []string{"confirm", "cancel", "pay"} {
		rec := serve(svc, httptest.NewRequest(http.MethodPost, "/api/v1/bookings/id/b42/"+action, nil), user)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", action, rec.Code)
		}
		if gotAction != action || gotID != "b42" {
			t.Errorf("%s: service got %s/%s", action, gotAction, gotID)
		}
	}

	rec := serve(svc, httptest.NewRequest(http.MethodPost, "/api/v1/bookings/id/b42/complete", nil), user)
	if rec.Code != http.StatusConflict {
		t.Fatalf("complete: status = %d, want 409", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != apperrors.CodeInvalidTransition {
		t.Errorf("code = %s", body.Code)
	}
}

func TestCompleteDue_RequiresSystemRole(t *testing.T) {
	svc := &mockBookingService{
		completeDueFunc: func(ctx context.Context) ([]string, error) {
			return []string{"a", "b"}, nil
		},
	}

	rec := serve(svc, httptest.NewRequest(http.MethodPost, "/api/v1/bookings/complete-due", nil), user)
	if rec.Code != http.StatusForbidden {
		t.Errorf("user: status = %d, want 403", rec.Code)
	}

	system := &auth.Account{ID: "completer", Role: auth.RoleSystem}
	rec = serve(svc, httptest.NewRequest(http.MethodPost, "/api/v1/bookings/complete-due", nil), system)
	if rec.Code != http.StatusOK {
		t.Fatalf("system: status = %d", rec.Code)
	}
	var body struct {
		Data CompletionResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Data.Completed != 2 {
		t.Errorf("completed = %d", body.Data.Completed)
	}
}

func TestQuote(t *testing.T) {
	svc := &mockBookingService{}

	rec := serve(svc, httptest.NewRequest(http.MethodGet,
		"/api/v1/bookings/quote?dog_id=l1&start_time=2026-06-01T10:00:00Z&end_time=2026-06-01T09:00:00Z", nil), user)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != apperrors.CodeInvalidInterval {
		t.Errorf("code = %s", body.Code)
	}

	rec = serve(svc, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/quote?dog_id=l1&start_time=yesterday", nil), user)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad time: status = %d", rec.Code)
	}
}

func TestListMine_Pagination(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	svc := &mockBookingService{
		listMineFunc: func(ctx context.Context, acc auth.Account, status string, limit int, offset int64) ([]*model.Booking, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Booking{}, 0, nil
		},
	}

	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=1000&offset=5", nil), user)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotLimit != 100 || gotOffset != 5 {
		t.Errorf("limit/offset = %d/%d, want 100/5", gotLimit, gotOffset)
	}

	rec = serve(svc, httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=abc", nil), user)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid limit: status = %d", rec.Code)
	}
}

func TestListMine_StatusFilter(t *testing.T) {
	var gotStatus string
	calls := 0
	svc := &mockBookingService{
		listMineFunc: func(ctx context.Context, acc auth.Account, status string, limit int, offset int64) ([]*model.Booking, int64, error) {
			gotStatus = status
			calls++
			return []*model.Booking{}, 0, nil
		},
	}

	tests := []struct {
		query      string
		wantCode   int
		wantStatus string
	}{
		{"", http.StatusOK, ""},
		{"?status=Confirmed", http.StatusOK, model.BookingConfirmed},
		{"?status=completed", http.StatusOK, model.BookingCompleted},
		{"?status=Lost", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		gotStatus, calls = "", 0
		rec := serve(svc, httptest.NewRequest(http.MethodGet, "/api/v1/bookings"+tt.query, nil), user)
		if rec.Code != tt.wantCode {
			t.Errorf("%q: status = %d, want %d", tt.query, rec.Code, tt.wantCode)
			continue
		}
		if tt.wantCode != http.StatusOK {
			if calls != 0 {
				t.Errorf("%q: service called for an unknown status", tt.query)
			}
			continue
		}
		if gotStatus != tt.wantStatus {
			t.Errorf("%q: service got status %q, want %q", tt.query, gotStatus, tt.wantStatus)
		}
	}
}
