// Package lifecycle holds the booking state machine. Every transition works on
// a copy; a rejected transition leaves the input untouched.
package lifecycle

import (
	"fmt"
	"time"

	bookingserrors "dogfordate/internal/bookings/errors"
	"dogfordate/pkg/model"
	"dogfordate/pkg/pricing"
)

const (
	ActionConfirm  = "confirm"
	ActionCancel   = "cancel"
	ActionComplete = "complete"
	ActionPay      = "pay"
)

// TransitionError reports a rejected action and the status it was tried from.
type TransitionError struct {
	Action string
	From   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s booking in status %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error {
	return bookingserrors.ErrInvalidTransition
}

// New prices the interval against the listing's hourly rate and returns a
// Pending booking owned by the listing's owner.
func New(listing *model.Listing, renterID string, start, end time.Time, notes string, now time.Time) (*model.Booking, error) {
	quote, err := pricing.Calculate(listing.HourlyRate, start, end)
	if err != nil {
		return nil, err
	}
	return &model.Booking{
		ListingID:     listing.ID,
		RenterID:      renterID,
		OwnerID:       listing.OwnerID,
		StartTime:     start,
		EndTime:       end,
		Status:        model.BookingPending,
		PaymentStatus: model.PaymentPending,
		TotalAmount:   quote.Total,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func Confirm(b *model.Booking, now time.Time) (*model.Booking, error) {
	if b.Status != model.BookingPending {
		return nil, &TransitionError{Action: ActionConfirm, From: b.Status}
	}
	next := *b
	next.Status = model.BookingConfirmed
	next.UpdatedAt = now
	return &next, nil
}

// Cancel refunds a paid booking; an unpaid one stays Pending.
func Cancel(b *model.Booking, now time.Time) (*model.Booking, error) {
	if b.Status != model.BookingPending && b.Status != model.BookingConfirmed {
		return nil, &TransitionError{Action: ActionCancel, From: b.Status}
	}
	next := *b
	next.Status = model.BookingCancelled
	if next.PaymentStatus == model.PaymentPaid {
		next.PaymentStatus = model.PaymentRefunded
	}
	next.UpdatedAt = now
	return &next, nil
}

func Complete(b *model.Booking, now time.Time) (*model.Booking, error) {
	if b.Status != model.BookingConfirmed {
		return nil, &TransitionError{Action: ActionComplete, From: b.Status}
	}
	next := *b
	next.Status = model.BookingCompleted
	next.UpdatedAt = now
	return &next, nil
}

// MarkPaid settles payment for any booking that is not cancelled.
func MarkPaid(b *model.Booking, now time.Time) (*model.Booking, error) {
	if b.Status == model.BookingCancelled {
		return nil, &TransitionError{Action: ActionPay, From: b.Status}
	}
	if b.PaymentStatus != model.PaymentPending {
		return nil, &TransitionError{Action: ActionPay, From: "payment " + b.PaymentStatus}
	}
	next := *b
	next.PaymentStatus = model.PaymentPaid
	next.UpdatedAt = now
	return &next, nil
}

// Apply dispatches an action name to its transition.
func Apply(action string, b *model.Booking, now time.Time) (*model.Booking, error) {
	switch action {
	case ActionConfirm:
		return Confirm(b, now)
	case ActionCancel:
		return Cancel(b, now)
	case ActionComplete:
		return Complete(b, now)
	case ActionPay:
		return MarkPaid(b, now)
	default:
		return nil, &TransitionError{Action: action, From: b.Status}
	}
}
