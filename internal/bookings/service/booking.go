package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	bookingserrors "dogfordate/internal/bookings/errors"
	"dogfordate/internal/bookings/lifecycle"
	"dogfordate/internal/bookings/repository"
	listingserrors "dogfordate/internal/listings/errors"
	"dogfordate/pkg/auth"
	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/kafka"
	"dogfordate/pkg/logger"
	"dogfordate/pkg/model"
	"dogfordate/pkg/pricing"
	"dogfordate/pkg/sanitizer"
	"dogfordate/pkg/validation"
)

const (
	serviceName = "bookings"

	// completionBatch bounds one complete-due sweep; the next tick picks up
	// the rest.
	completionBatch = 200
)

// ListingReader is the part of the listings store bookings depend on.
type ListingReader interface {
	FindByID(ctx context.Context, id string) (*model.Listing, error)
}

// QuoteResult is a price breakdown for a prospective booking.
type QuoteResult struct {
	ListingID string          `json:"dog_id"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Quote     pricing.Quote   `json:"quote"`
	Display   pricing.Display `json:"display"`
}

type BookingService interface {
	Quote(ctx context.Context, listingID string, start, end time.Time) (*QuoteResult, error)
	Create(ctx context.Context, acc auth.Account, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, acc auth.Account, id string) (*model.Booking, error)
	// ListMine lists bookings where acc is renter or owner, newest first. An
	// empty status lists every status.
	ListMine(ctx context.Context, acc auth.Account, status string, limit int, offset int64) ([]*model.Booking, int64, error)
	Transition(ctx context.Context, acc auth.Account, id, action string) (*model.Booking, error)
	CompleteDue(ctx context.Context) ([]string, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	listings  ListingReader
	validator *validation.Validator
	publisher kafka.Publisher
	log       *logger.Logger
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	listings ListingReader,
	validator *validation.Validator,
	publisher kafka.Publisher,
	log *logger.Logger,
) BookingService {
	if publisher == nil {
		publisher = kafka.NoopPublisher{}
	}
	return &bookingService{
		repo:      repo,
		listings:  listings,
		validator: validator,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *bookingService) Quote(ctx context.Context, listingID string, start, end time.Time) (*QuoteResult, error) {
	listing, err := s.listing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.Calculate(listing.HourlyRate, start, end)
	if err != nil {
		return nil, pricingError(err)
	}
	return &QuoteResult{
		ListingID: listing.ID,
		StartTime: start,
		EndTime:   end,
		Quote:     quote,
		Display:   quote.Display(),
	}, nil
}

func (s *bookingService) Create(ctx context.Context, acc auth.Account, req *model.BookingRequest) (*model.Booking, error) {
	req.Notes = sanitizer.NormalizeText(req.Notes)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	listing, err := s.listing(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID == acc.ID {
		return nil, apperrors.Forbidden("You cannot book your own listing")
	}

	now := s.now()
	booking, err := lifecycle.New(listing, acc.ID, req.StartTime.UTC(), req.EndTime.UTC(), req.Notes, now)
	if err != nil {
		return nil, pricingError(err)
	}
	if booking.StartTime.Before(now) {
		return nil, validation.Field("StartTime", "start_time cannot be in the past").AppError()
	}
	if err := s.validate(booking); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.log.Error("Failed to create booking", "listing_id", listing.ID, "error", err)
		return nil, apperrors.Unavailable("bookings store", err)
	}

	s.log.Info("Booking created successfully",
		"id", booking.ID,
		"listing_id", booking.ListingID,
		"renter_id", booking.RenterID,
		"total_amount", booking.TotalAmount,
	)
	s.publish(ctx, model.EventBookingCreated, booking)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, acc auth.Account, id string) (*model.Booking, error) {
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(acc, booking) {
		return nil, apperrors.Forbidden("You are not a party to this booking")
	}
	return booking, nil
}

func (s *bookingService) ListMine(ctx context.Context, acc auth.Account, status string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if status != "" && !slices.Contains(model.BookingStatuses, status) {
		return nil, 0, apperrors.InvalidInput("unknown status: " + status)
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByAccount(ctx, acc.ID, status)
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByAccount(ctx, acc.ID, status, limit, offset)
	}()

	wg.Wait()
	if err := errors.Join(errCount, errFind); err != nil {
		s.log.Error("Failed to list bookings", "account_id", acc.ID, "error", err)
		return nil, 0, apperrors.Unavailable("bookings store", err)
	}
	return bookings, count, nil
}

// Transition applies a lifecycle action on behalf of acc. The write is
// guarded on the status that was read, so two concurrent transitions cannot
// both succeed.
func (s *bookingService) Transition(ctx context.Context, acc auth.Account, id, action string) (*model.Booking, error) {
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAct(acc, current, action) {
		return nil, apperrors.Forbidden("You are not allowed to " + action + " this booking")
	}

	now := s.now()
	next, err := lifecycle.Apply(action, current, now)
	if err != nil {
		return nil, transitionError(err)
	}
	if action == lifecycle.ActionComplete && now.Before(current.EndTime) {
		return nil, apperrors.TransitionTooEarly(action, current.EndTime)
	}

	if err := s.repo.UpdateState(ctx, next, current.Status, current.PaymentStatus); err != nil {
		if errors.Is(err, bookingserrors.ErrStaleState) {
			return nil, apperrors.Conflict("Booking was modified concurrently, reload and retry")
		}
		s.log.Error("Failed to update booking state", "id", id, "action", action, "error", err)
		return nil, apperrors.Unavailable("bookings store", err)
	}

	s.log.Info("Booking transitioned",
		"id", id,
		"action", action,
		"from", current.Status,
		"to", next.Status,
		"payment_status", next.PaymentStatus,
		"account_id", acc.ID,
	)
	s.publish(ctx, eventFor(action), next)
	return next, nil
}

// CompleteDue completes every confirmed booking whose end time has passed.
// Bookings that changed state concurrently are skipped.
func (s *bookingService) CompleteDue(ctx context.Context) ([]string, error) {
	now := s.now()
	due, err := s.repo.FindDueForCompletion(ctx, now, completionBatch)
	if err != nil {
		s.log.Error("Failed to find bookings due for completion", "error", err)
		return nil, apperrors.Unavailable("bookings store", err)
	}

	completed := []string{}
	for _, b := range due {
		next, err := lifecycle.Complete(b, now)
		if err != nil {
			continue
		}
		if err := s.repo.UpdateState(ctx, next, b.Status, b.PaymentStatus); err != nil {
			if errors.Is(err, bookingserrors.ErrStaleState) {
				s.log.Debug("Skipping booking changed during completion", "id", b.ID)
				continue
			}
			s.log.Error("Failed to complete booking", "id", b.ID, "error", err)
			return completed, apperrors.Unavailable("bookings store", err)
		}
		completed = append(completed, b.ID)
		s.publish(ctx, model.EventBookingCompleted, next)
	}

	if len(completed) > 0 {
		s.log.Info("Completed due bookings", "count", len(completed))
	}
	return completed, nil
}

// --- Helpers ---

func (s *bookingService) listing(ctx context.Context, listingID string) (*model.Listing, error) {
	if listingID == "" {
		return nil, apperrors.InvalidInput("Listing ID cannot be empty")
	}
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, listingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Listing", listingID)
		}
		if errors.Is(err, listingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid listing ID format")
		}
		return nil, apperrors.Unavailable("listings store", err)
	}
	return listing, nil
}

func (s *bookingService) find(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Unavailable("bookings store", err)
	}
	return booking, nil
}

func (s *bookingService) validate(v any) error {
	if err := s.validator.Struct(v); err != nil {
		s.log.Warn("Booking validation failed", "error", err)
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return verrs.AppError()
		}
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *bookingService) publish(ctx context.Context, eventType string, b *model.Booking) {
	msg, err := kafka.NewMessage().
		WithKey(b.ID).
		WithEventType(eventType).
		WithSource(serviceName).
		WithValue(model.NewBookingEvent(b)).
		Build()
	if err == nil {
		err = s.publisher.Publish(ctx, msg)
	}
	if err != nil {
		s.log.Warn("Failed to publish booking event", "id", b.ID, "event_type", eventType, "error", err)
	}
}

func eventFor(action string) string {
	switch action {
	case lifecycle.ActionConfirm:
		return model.EventBookingConfirmed
	case lifecycle.ActionCancel:
		return model.EventBookingCancelled
	case lifecycle.ActionComplete:
		return model.EventBookingCompleted
	default:
		return model.EventBookingPaid
	}
}

func canView(acc auth.Account, b *model.Booking) bool {
	return b.IsParty(acc.ID) || acc.Role == auth.RoleAdmin || acc.IsSystem()
}

// canAct: owners confirm, renters pay, either party cancels, owners and the
// scheduler complete once the booking has ended. Admins may do anything.
func canAct(acc auth.Account, b *model.Booking, action string) bool {
	if acc.Role == auth.RoleAdmin {
		return true
	}
	switch action {
	case lifecycle.ActionConfirm:
		return acc.ID == b.OwnerID
	case lifecycle.ActionPay:
		return acc.ID == b.RenterID
	case lifecycle.ActionCancel:
		return b.IsParty(acc.ID)
	case lifecycle.ActionComplete:
		return acc.ID == b.OwnerID || acc.IsSystem()
	default:
		return b.IsParty(acc.ID)
	}
}

func pricingError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrInvalidInterval):
		return apperrors.InvalidInterval(err.Error())
	case errors.Is(err, pricing.ErrInvalidRate):
		return apperrors.InvalidRate(err.Error())
	default:
		return apperrors.Internal("Failed to price booking", err)
	}
}

func transitionError(err error) error {
	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		return apperrors.InvalidTransition(te.Action, te.From)
	}
	return apperrors.Internal("Failed to apply transition", err)
}
