package lifecycle

import (
	"errors"
	"math"
	"testing"
	"time"

	bookingserrors "dogfordate/internal/bookings/errors"
	"dogfordate/pkg/model"
	"dogfordate/pkg/pricing"
)

var (
	t0  = time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	now = t0.Add(-24 * time.Hour)
)

func booking(status, payment string) *model.Booking {
	return &model.Booking{
		ID:            "b1",
		ListingID:     "l1",
		RenterID:      "renter",
		OwnerID:       "owner",
		StartTime:     t0,
		EndTime:       t0.Add(2 * time.Hour),
		Status:        status,
		PaymentStatus: payment,
		TotalAmount:   45,
		UpdatedAt:     now.Add(-time.Hour),
	}
}

func TestNew(t *testing.T) {
	listing := &model.Listing{ID: "l1", OwnerID: "owner", HourlyRate: 20}

	b, err := New(listing, "renter", t0, t0.Add(2*time.Hour), "bring treats", now)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if b.Status != model.BookingPending || b.PaymentStatus != model.PaymentPending {
		t.Errorf("status = %s/%s, want Pending/Pending", b.Status, b.PaymentStatus)
	}
	if math.Abs(b.TotalAmount-45) > 1e-9 {
		t.Errorf("total = %v, want 45", b.TotalAmount)
	}
	if b.OwnerID != "owner" || b.RenterID != "renter" || b.ListingID != "l1" {
		t.Errorf("parties not copied: %+v", b)
	}
	if !b.CreatedAt.Equal(now) || !b.UpdatedAt.Equal(now) {
		t.Error("timestamps should be set to now")
	}

	if _, err := New(listing, "renter", t0, t0, "", now); !errors.Is(err, pricing.ErrInvalidInterval) {
		t.Errorf("zero-length interval: got %v", err)
	}
	listing.HourlyRate = 0
	if _, err := New(listing, "renter", t0, t0.Add(time.Hour), "", now); !errors.Is(err, pricing.ErrInvalidRate) {
		t.Errorf("zero rate: got %v", err)
	}
}

func TestNew_TwoHoursAtTwentyFive(t *testing.T) {
	listing := &model.Listing{ID: "l1", OwnerID: "owner", HourlyRate: 25}
	start := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)

	b, err := New(listing, "renter", start, end, "", now)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := pricing.FormatMoney(b.TotalAmount); got != "55.00" {
		t.Errorf("total = %s, want 55.00", got)
	}
	if b.Status != model.BookingPending || b.PaymentStatus != model.PaymentPending {
		t.Errorf("status = %s/%s, want Pending/Pending", b.Status, b.PaymentStatus)
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name        string
		action      string
		status      string
		payment     string
		wantStatus  string
		wantPayment string
		wantErr     bool
	}{
		{"confirm pending", ActionConfirm, model.BookingPending, model.PaymentPending, model.BookingConfirmed, model.PaymentPending, false},
		{"confirm paid pending keeps payment", ActionConfirm, model.BookingPending, model.PaymentPaid, model.BookingConfirmed, model.PaymentPaid, false},
		{"confirm confirmed", ActionConfirm, model.BookingConfirmed, model.PaymentPending, "", "", true},
		{"confirm cancelled", ActionConfirm, model.BookingCancelled, model.PaymentPending, "", "", true},
		{"confirm completed", ActionConfirm, model.BookingCompleted, model.PaymentPaid, "", "", true},

		{"cancel pending unpaid", ActionCancel, model.BookingPending, model.PaymentPending, model.BookingCancelled, model.PaymentPending, false},
		{"cancel confirmed paid refunds", ActionCancel, model.BookingConfirmed, model.PaymentPaid, model.BookingCancelled, model.PaymentRefunded, false},
		{"cancel pending paid refunds", ActionCancel, model.BookingPending, model.PaymentPaid, model.BookingCancelled, model.PaymentRefunded, false},
		{"cancel cancelled", ActionCancel, model.BookingCancelled, model.PaymentRefunded, "", "", true},
		{"cancel completed", ActionCancel, model.BookingCompleted, model.PaymentPaid, "", "", true},

		{"complete confirmed", ActionComplete, model.BookingConfirmed, model.PaymentPaid, model.BookingCompleted, model.PaymentPaid, false},
		{"complete pending", ActionComplete, model.BookingPending, model.PaymentPending, "", "", true},
		{"complete cancelled", ActionComplete, model.BookingCancelled, model.PaymentPending, "", "", true},
		{"complete completed", ActionComplete, model.BookingCompleted, model.PaymentPaid, "", "", true},

		{"pay pending", ActionPay, model.BookingPending, model.PaymentPending, model.BookingPending, model.PaymentPaid, false},
		{"pay completed", ActionPay, model.BookingCompleted, model.PaymentPending, model.BookingCompleted, model.PaymentPaid, false},
		{"pay twice", ActionPay, model.BookingConfirmed, model.PaymentPaid, "", "", true},
		{"pay refunded", ActionPay, model.BookingConfirmed, model.PaymentRefunded, "", "", true},
		{"pay cancelled", ActionPay, model.BookingCancelled, model.PaymentPending, "", "", true},

		{"unknown action", "archive", model.BookingPending, model.PaymentPending, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := booking(tt.status, tt.payment)
			before := *in

			got, err := Apply(tt.action, in, now)

			if *in != before {
				t.Fatalf("input mutated: %+v", in)
			}
			if tt.wantErr {
				if !errors.Is(err, bookingserrors.ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				var te *TransitionError
				if !errors.As(err, &te) || te.Action != tt.action {
					t.Errorf("expected TransitionError for %s, got %v", tt.action, err)
				}
				if got != nil {
					t.Error("failed transition must not return a booking")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tt.wantStatus || got.PaymentStatus != tt.wantPayment {
				t.Errorf("got %s/%s, want %s/%s", got.Status, got.PaymentStatus, tt.wantStatus, tt.wantPayment)
			}
			if !got.UpdatedAt.Equal(now) {
				t.Error("UpdatedAt should advance")
			}
			if got.TotalAmount != in.TotalAmount || got.ID != in.ID {
				t.Error("transition changed unrelated fields")
			}
		})
	}
}
