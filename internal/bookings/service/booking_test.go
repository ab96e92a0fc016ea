package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	bookingserrors "dogfordate/internal/bookings/errors"
	listingserrors "dogfordate/internal/listings/errors"
	"dogfordate/pkg/auth"
	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/kafka"
	"dogfordate/pkg/logger"
	"dogfordate/pkg/model"
	"dogfordate/pkg/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ────────────────────────────────────────────────
// In-memory repository and collaborators
// ────────────────────────────────────────────────

type fakeBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	// beforeUpdate runs inside UpdateState before the guard is checked.
	beforeUpdate func(id string)
	findErr      error
}

func newFakeRepo(bookings ...*model.Booking) *fakeBookingRepository {
	r := &fakeBookingRepository{bookings: map[string]*model.Booking{}}
	for _, b := range bookings {
		r.bookings[b.ID] = b
	}
	return r
}

func (r *fakeBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = primitive.NewObjectID().Hex()
	stored := *b
	r.bookings[b.ID] = &stored
	return nil
}

func (r *fakeBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if !primitive.IsValidObjectID(id) {
		return nil, bookingserrors.ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBookingRepository) FindByAccount(ctx context.Context, accountID, status string, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.bookings {
		if b.IsParty(accountID) && (status == "" || b.Status == status) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepository) CountByAccount(ctx context.Context, accountID, status string) (int64, error) {
	list, _ := r.FindByAccount(ctx, accountID, status, 0, 0)
	return int64(len(list)), nil
}

func (r *fakeBookingRepository) UpdateState(ctx context.Context, next *model.Booking, expectedStatus, expectedPayment string) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate(next.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[next.ID]
	if !ok || b.Status != expectedStatus || b.PaymentStatus != expectedPayment {
		return bookingserrors.ErrStaleState
	}
	b.Status, b.PaymentStatus, b.UpdatedAt = next.Status, next.PaymentStatus, next.UpdatedAt
	return nil
}

func (r *fakeBookingRepository) FindDueForCompletion(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.bookings {
		if b.Status == model.BookingConfirmed && !b.EndTime.After(now) {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeListings map[string]*model.Listing

func (f fakeListings) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	if l, ok := f[id]; ok {
		return l, nil
	}
	return nil, listingserrors.ErrNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg.GetEventType())
	return nil
}

// ────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────

var (
	fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	listing  = &model.Listing{ID: primitive.NewObjectID().Hex(), OwnerID: "owner", HourlyRate: 20}
	renter   = auth.Account{ID: "renter", Role: auth.RoleUser}
	owner    = auth.Account{ID: "owner", Role: auth.RoleUser}
	stranger = auth.Account{ID: "stranger", Role: auth.RoleUser}
	system   = auth.Account{ID: "completer", Role: auth.RoleSystem}
)

func newTestService(repo *fakeBookingRepository) (*bookingService, *recordingPublisher) {
	log := logger.Discard()
	pub := &recordingPublisher{}
	svc := NewBookingService(repo, fakeListings{listing.ID: listing}, validation.New(log), pub, log).(*bookingService)
	svc.now = func() time.Time { return fixedNow }
	return svc, pub
}

func storedBooking(status, payment string, end time.Time) *model.Booking {
	return &model.Booking{
		ID:            primitive.NewObjectID().Hex(),
		ListingID:     listing.ID,
		RenterID:      renter.ID,
		OwnerID:       owner.ID,
		StartTime:     end.Add(-2 * time.Hour),
		EndTime:       end,
		Status:        status,
		PaymentStatus: payment,
		TotalAmount:   45,
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

// ────────────────────────────────────────────────
// Tests
// ────────────────────────────────────────────────

func TestQuote(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())
	start := fixedNow.Add(24 * time.Hour)

	q, err := svc.Quote(context.Background(), listing.ID, start, start.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if q.Display.Total != "35.00" || q.Display.Duration != "1.5 hours" {
		t.Errorf("display = %+v", q.Display)
	}

	_, err = svc.Quote(context.Background(), listing.ID, start, start)
	assertCode(t, err, apperrors.CodeInvalidInterval)

	_, err = svc.Quote(context.Background(), primitive.NewObjectID().Hex(), start, start.Add(time.Hour))
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestCreate(t *testing.T) {
	start := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name     string
		acc      auth.Account
		req      model.BookingRequest
		wantCode string
	}{
		{"valid", renter, model.BookingRequest{ListingID: listing.ID, StartTime: start, EndTime: start.Add(2 * time.Hour), Notes: "  hi  "}, ""},
		{"end before start", renter, model.BookingRequest{ListingID: listing.ID, StartTime: start, EndTime: start.Add(-time.Hour)}, apperrors.CodeInvalidInterval},
		{"start in the past", renter, model.BookingRequest{ListingID: listing.ID, StartTime: fixedNow.Add(-time.Hour), EndTime: fixedNow.Add(time.Hour)}, apperrors.CodeValidation},
		{"missing listing id", renter, model.BookingRequest{StartTime: start, EndTime: start.Add(time.Hour)}, apperrors.CodeValidation},
		{"unknown listing", renter, model.BookingRequest{ListingID: primitive.NewObjectID().Hex(), StartTime: start, EndTime: start.Add(time.Hour)}, apperrors.CodeNotFound},
		{"own listing", owner, model.BookingRequest{ListingID: listing.ID, StartTime: start, EndTime: start.Add(time.Hour)}, apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			svc, pub := newTestService(repo)

			b, err := svc.Create(context.Background(), tt.acc, &tt.req)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				if len(repo.bookings) != 0 {
					t.Error("rejected booking must not be stored")
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if b.Status != model.BookingPending || b.TotalAmount != 45 || b.Notes != "hi" {
				t.Errorf("unexpected booking %+v", b)
			}
			if len(pub.events) != 1 || pub.events[0] != model.EventBookingCreated {
				t.Errorf("events = %v", pub.events)
			}
		})
	}
}

func TestGetByID_Visibility(t *testing.T) {
	b := storedBooking(model.BookingPending, model.PaymentPending, fixedNow.Add(time.Hour))
	svc, _ := newTestService(newFakeRepo(b))

	for _, acc := range []auth.Account{renter, owner, system, {ID: "a", Role: auth.RoleAdmin}} {
		if _, err := svc.GetByID(context.Background(), acc, b.ID); err != nil {
			t.Errorf("%s should see booking: %v", acc.ID, err)
		}
	}
	_, err := svc.GetByID(context.Background(), stranger, b.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = svc.GetByID(context.Background(), renter, "bad")
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name     string
		acc      auth.Account
		status   string
		payment  string
		action   string
		want     string
		wantCode string
	}{
		{"owner confirms", owner, model.BookingPending, model.PaymentPending, "confirm", model.BookingConfirmed, ""},
		{"renter cannot confirm", renter, model.BookingPending, model.PaymentPending, "confirm", "", apperrors.CodeForbidden},
		{"renter cancels", renter, model.BookingConfirmed, model.PaymentPaid, "cancel", model.BookingCancelled, ""},
		{"stranger cannot cancel", stranger, model.BookingConfirmed, model.PaymentPaid, "cancel", "", apperrors.CodeForbidden},
		{"renter pays", renter, model.BookingConfirmed, model.PaymentPending, "pay", model.BookingConfirmed, ""},
		{"complete pending", owner, model.BookingPending, model.PaymentPending, "complete", "", apperrors.CodeInvalidTransition},
		{"cancel completed", renter, model.BookingCompleted, model.PaymentPaid, "cancel", "", apperrors.CodeInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := storedBooking(tt.status, tt.payment, fixedNow.Add(time.Hour))
			repo := newFakeRepo(b)
			svc, pub := newTestService(repo)

			got, err := svc.Transition(context.Background(), tt.acc, b.ID, tt.action)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				if repo.bookings[b.ID].Status != tt.status {
					t.Error("stored booking changed after a rejected transition")
				}
				if len(pub.events) != 0 {
					t.Errorf("no event expected, got %v", pub.events)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transition() error = %v", err)
			}
			if got.Status != tt.want || repo.bookings[b.ID].Status != tt.want {
				t.Errorf("status = %s (stored %s), want %s", got.Status, repo.bookings[b.ID].Status, tt.want)
			}
			if len(pub.events) != 1 {
				t.Errorf("events = %v", pub.events)
			}
		})
	}
}

func TestTransition_CompleteWaitsForEndTime(t *testing.T) {
	tests := []struct {
		name     string
		acc      auth.Account
		end      time.Time
		wantCode string
	}{
		{"owner before start", owner, fixedNow.Add(48 * time.Hour), apperrors.CodeInvalidTransition},
		{"admin one second early", auth.Account{ID: "a", Role: auth.RoleAdmin}, fixedNow.Add(time.Second), apperrors.CodeInvalidTransition},
		{"owner at end time", owner, fixedNow, ""},
		{"system after end", system, fixedNow.Add(-time.Hour), ""},
		{"renter after end", renter, fixedNow.Add(-time.Hour), apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := storedBooking(model.BookingConfirmed, model.PaymentPaid, tt.end)
			repo := newFakeRepo(b)
			svc, pub := newTestService(repo)

			got, err := svc.Transition(context.Background(), tt.acc, b.ID, "complete")
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				if repo.bookings[b.ID].Status != model.BookingConfirmed || len(pub.events) != 0 {
					t.Error("rejected completion changed state or published")
				}
				return
			}
			if err != nil {
				t.Fatalf("Transition() error = %v", err)
			}
			if got.Status != model.BookingCompleted {
				t.Errorf("status = %s, want Completed", got.Status)
			}
		})
	}
}

func TestTransition_CancelRefundsPaidBooking(t *testing.T) {
	b := storedBooking(model.BookingConfirmed, model.PaymentPaid, fixedNow.Add(time.Hour))
	repo := newFakeRepo(b)
	svc, pub := newTestService(repo)

	got, err := svc.Transition(context.Background(), owner, b.ID, "cancel")
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if got.PaymentStatus != model.PaymentRefunded {
		t.Errorf("payment = %s, want Refunded", got.PaymentStatus)
	}
	if pub.events[0] != model.EventBookingCancelled {
		t.Errorf("event = %s", pub.events[0])
	}
}

func TestTransition_ConcurrentChangeConflicts(t *testing.T) {
	b := storedBooking(model.BookingPending, model.PaymentPending, fixedNow.Add(time.Hour))
	repo := newFakeRepo(b)
	repo.beforeUpdate = func(id string) {
		// another request cancels between our read and our write
		repo.mu.Lock()
		repo.bookings[id].Status = model.BookingCancelled
		repo.mu.Unlock()
	}
	svc, _ := newTestService(repo)

	_, err := svc.Transition(context.Background(), owner, b.ID, "confirm")
	assertCode(t, err, apperrors.CodeConflict)
	if repo.bookings[b.ID].Status != model.BookingCancelled {
		t.Error("concurrent cancel must win")
	}
}

func TestTransition_StoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.findErr = fmt.Errorf("find: %w", errors.New("server selection timeout"))
	svc, _ := newTestService(repo)

	_, err := svc.Transition(context.Background(), owner, primitive.NewObjectID().Hex(), "confirm")
	assertCode(t, err, apperrors.CodeUnavailable)
}

func TestCompleteDue(t *testing.T) {
	due := storedBooking(model.BookingConfirmed, model.PaymentPaid, fixedNow.Add(-time.Minute))
	exactlyNow := storedBooking(model.BookingConfirmed, model.PaymentPending, fixedNow)
	future := storedBooking(model.BookingConfirmed, model.PaymentPaid, fixedNow.Add(time.Hour))
	pending := storedBooking(model.BookingPending, model.PaymentPending, fixedNow.Add(-time.Hour))
	repo := newFakeRepo(due, exactlyNow, future, pending)
	svc, pub := newTestService(repo)

	ids, err := svc.CompleteDue(context.Background())
	if err != nil {
		t.Fatalf("CompleteDue() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("completed %v, want 2 bookings", ids)
	}
	for _, b := range []*model.Booking{due, exactlyNow} {
		if repo.bookings[b.ID].Status != model.BookingCompleted {
			t.Errorf("booking ending %s not completed", b.EndTime)
		}
	}
	if repo.bookings[future.ID].Status != model.BookingConfirmed || repo.bookings[pending.ID].Status != model.BookingPending {
		t.Error("bookings not yet due must be untouched")
	}
	if len(pub.events) != 2 {
		t.Errorf("events = %v", pub.events)
	}

	again, _ := svc.CompleteDue(context.Background())
	if len(again) != 0 {
		t.Errorf("second sweep completed %v", again)
	}
}

func TestListMine(t *testing.T) {
	mine := storedBooking(model.BookingPending, model.PaymentPending, fixedNow.Add(time.Hour))
	other := storedBooking(model.BookingPending, model.PaymentPending, fixedNow.Add(time.Hour))
	other.RenterID, other.OwnerID = "x", "y"
	svc, _ := newTestService(newFakeRepo(mine, other))

	list, total, err := svc.ListMine(context.Background(), owner, "", 10, 0)
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != mine.ID {
		t.Errorf("got %d/%v", total, list)
	}
}

func TestListMine_FiltersByStatus(t *testing.T) {
	pending := storedBooking(model.BookingPending, model.PaymentPending, fixedNow.Add(time.Hour))
	confirmed := storedBooking(model.BookingConfirmed, model.PaymentPaid, fixedNow.Add(2*time.Hour))
	done := storedBooking(model.BookingCompleted, model.PaymentPaid, fixedNow.Add(-time.Hour))
	svc, _ := newTestService(newFakeRepo(pending, confirmed, done))

	tests := []struct {
		status string
		want   int64
	}{
		{"", 3},
		{model.BookingPending, 1},
		{model.BookingConfirmed, 1},
		{model.BookingCompleted, 1},
		{model.BookingCancelled, 0},
	}
	for _, tt := range tests {
		list, total, err := svc.ListMine(context.Background(), owner, tt.status, 10, 0)
		if err != nil {
			t.Fatalf("ListMine(%q) error = %v", tt.status, err)
		}
		if total != tt.want || int64(len(list)) != tt.want {
			t.Errorf("ListMine(%q) = %d/%d, want %d", tt.status, total, len(list), tt.want)
		}
		for _, b := range list {
			if tt.status != "" && b.Status != tt.status {
				t.Errorf("ListMine(%q) returned a %s booking", tt.status, b.Status)
			}
		}
	}

	_, _, err := svc.ListMine(context.Background(), owner, "Lost", 10, 0)
	assertCode(t, err, apperrors.CodeInvalidInput)
}
