package service

import (
	"context"
	"errors"
	"math"
	"sync"

	bookingserrors "dogfordate/internal/bookings/errors"
	listingserrors "dogfordate/internal/listings/errors"
	"dogfordate/internal/listings/repository"
	"dogfordate/pkg/auth"
	"dogfordate/pkg/discovery"
	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/logger"
	"dogfordate/pkg/model"
	"dogfordate/pkg/sanitizer"
	"dogfordate/pkg/validation"
)

// BookingReader is the part of the bookings store reviews depend on.
type BookingReader interface {
	FindByID(ctx context.Context, id string) (*model.Booking, error)
}

type ListingService interface {
	Create(ctx context.Context, acc auth.Account, listing *model.Listing) error
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Listing, int64, error)
	Update(ctx context.Context, acc auth.Account, id string, updates *model.ListingUpdate) (*model.Listing, error)
	Delete(ctx context.Context, acc auth.Account, id string) error
	Search(ctx context.Context, filter discovery.Filter, limit int) ([]*model.Listing, error)
	AddReview(ctx context.Context, acc auth.Account, listingID string, review *model.Review) error
	ListReviews(ctx context.Context, listingID string, limit int, offset int64) ([]*model.Review, error)
}

type listingService struct {
	repo      repository.ListingRepository
	reviews   repository.ReviewRepository
	bookings  BookingReader
	validator *validation.Validator
	log       *logger.Logger
	searchCap int
}

func NewListingService(
	repo repository.ListingRepository,
	reviews repository.ReviewRepository,
	bookings BookingReader,
	validator *validation.Validator,
	log *logger.Logger,
	searchCap int,
) ListingService {
	return &listingService{
		repo:      repo,
		reviews:   reviews,
		bookings:  bookings,
		validator: validator,
		log:       log,
		searchCap: searchCap,
	}
}

func (s *listingService) Create(ctx context.Context, acc auth.Account, listing *model.Listing) error {
	listing.ID = ""
	listing.OwnerID = acc.ID
	if listing.OwnerType == "" {
		listing.OwnerType = model.OwnerIndividual
	}
	listing.IsVerified = false
	s.sanitize(listing)
	if err := s.validate(listing); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		s.log.Error("Failed to create listing", "owner_id", acc.ID, "error", err)
		return apperrors.Unavailable("listings store", err)
	}

	s.log.Info("Listing created successfully",
		"id", listing.ID,
		"owner_id", listing.OwnerID,
		"city", listing.City,
	)
	return nil
}

func (s *listingService) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	listing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.attachRatings(ctx, listing)
	return listing, nil
}

func (s *listingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Listing, int64, error) {
	var count int64
	var listings []*model.Listing
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
	}()

	go func() {
		defer wg.Done()
		listings, errFind = s.repo.FindAll(ctx, limit, offset)
	}()

	wg.Wait()
	if err := errors.Join(errCount, errFind); err != nil {
		s.log.Error("Failed to list listings", "error", err)
		return nil, 0, apperrors.Unavailable("listings store", err)
	}

	s.attachRatings(ctx, listings...)
	return listings, count, nil
}

func (s *listingService) Update(ctx context.Context, acc auth.Account, id string, updates *model.ListingUpdate) (*model.Listing, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(acc, existing) {
		return nil, apperrors.Forbidden("Only the owner can modify this listing")
	}

	s.sanitizeUpdate(updates)
	if err := s.validate(updates); err != nil {
		return nil, err
	}
	merged := mergeListingUpdates(existing, updates)
	if err := s.validate(merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		if errors.Is(err, listingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Listing", id)
		}
		s.log.Error("Failed to update listing", "id", id, "error", err)
		return nil, apperrors.Unavailable("listings store", err)
	}

	s.log.Info("Listing updated successfully", "id", id)
	s.attachRatings(ctx, merged)
	return merged, nil
}

func (s *listingService) Delete(ctx context.Context, acc auth.Account, id string) error {
	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(acc, existing) {
		return apperrors.Forbidden("Only the owner can delete this listing")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, listingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Listing", id)
		}
		s.log.Error("Failed to delete listing", "id", id, "error", err)
		return apperrors.Unavailable("listings store", err)
	}

	s.log.Info("Listing deleted successfully", "id", id)
	return nil
}

// Search pushes the filter into the store, loading at most the configured cap
// of matching listings, newest first, then applies the same predicates in
// memory so results match discovery.Apply exactly.
func (s *listingService) Search(ctx context.Context, filter discovery.Filter, limit int) ([]*model.Listing, error) {
	if filter.MinRate != nil && filter.MaxRate != nil && *filter.MinRate > *filter.MaxRate {
		return nil, apperrors.InvalidInput("min_rate cannot exceed max_rate")
	}

	candidates, err := s.repo.FindMatching(ctx, filter, s.searchCap)
	if err != nil {
		s.log.Error("Failed to load listings for search", "error", err)
		return nil, apperrors.Unavailable("listings store", err)
	}

	matched := discovery.Collect(candidates, filter, limit)
	s.attachRatings(ctx, matched...)

	s.log.Debug("Listing search completed",
		"query", filter.TextQuery,
		"candidates", len(candidates),
		"matched", len(matched),
	)
	return matched, nil
}

// AddReview records a review for a completed booking of the listing. Only the
// renter of that booking may review it, once.
func (s *listingService) AddReview(ctx context.Context, acc auth.Account, listingID string, review *model.Review) error {
	review.Comment = sanitizer.NormalizeText(review.Comment)
	if err := s.validate(review); err != nil {
		return err
	}
	if _, err := s.find(ctx, listingID); err != nil {
		return err
	}

	booking, err := s.bookings.FindByID(ctx, review.BookingID)
	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrNotFound):
			return apperrors.NotFoundWithID("Booking", review.BookingID)
		case errors.Is(err, bookingserrors.ErrInvalidID):
			return apperrors.InvalidInput("Invalid booking ID format")
		default:
			return apperrors.Unavailable("bookings store", err)
		}
	}
	if booking.ListingID != listingID {
		return apperrors.InvalidInput("Booking does not belong to this listing")
	}
	if booking.RenterID != acc.ID {
		return apperrors.Forbidden("Only the renter can review a booking")
	}
	if booking.Status != model.BookingCompleted {
		return apperrors.InvalidTransition("review", booking.Status)
	}

	review.ID = ""
	review.ListingID = listingID
	review.ReviewerID = acc.ID
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, listingserrors.ErrDuplicateReview) {
			return apperrors.Conflict("This booking has already been reviewed")
		}
		s.log.Error("Failed to create review", "booking_id", review.BookingID, "error", err)
		return apperrors.Unavailable("reviews store", err)
	}

	s.log.Info("Review added", "listing_id", listingID, "booking_id", review.BookingID, "rating", review.Rating)
	return nil
}

func (s *listingService) ListReviews(ctx context.Context, listingID string, limit int, offset int64) ([]*model.Review, error) {
	if _, err := s.find(ctx, listingID); err != nil {
		return nil, err
	}
	reviews, err := s.reviews.FindByListing(ctx, listingID, limit, offset)
	if err != nil {
		s.log.Error("Failed to list reviews", "listing_id", listingID, "error", err)
		return nil, apperrors.Unavailable("reviews store", err)
	}
	return reviews, nil
}

// --- Helpers ---

func (s *listingService) find(ctx context.Context, id string) (*model.Listing, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Listing ID cannot be empty")
	}
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, listingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Listing", id)
		}
		if errors.Is(err, listingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid listing ID format")
		}
		return nil, apperrors.Unavailable("listings store", err)
	}
	return listing, nil
}

// attachRatings fills the derived rating fields. A failed aggregation leaves
// them at zero rather than failing the read.
func (s *listingService) attachRatings(ctx context.Context, listings ...*model.Listing) {
	if len(listings) == 0 {
		return
	}
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}

	summaries, err := s.reviews.Summaries(ctx, ids)
	if err != nil {
		s.log.Warn("Failed to aggregate listing ratings", "error", err)
		return
	}
	for _, l := range listings {
		if sum, ok := summaries[l.ID]; ok {
			l.Rating = math.Round(sum.Average*10) / 10
			l.ReviewCount = sum.Count
		}
	}
}

func (s *listingService) validate(v any) error {
	if err := s.validator.Struct(v); err != nil {
		s.log.Warn("Listing validation failed", "error", err)
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return verrs.AppError()
		}
		return apperrors.Validation("Listing validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *listingService) sanitize(l *model.Listing) {
	l.Name = sanitizer.NormalizeName(l.Name)
	l.Breed = sanitizer.NormalizeName(l.Breed)
	l.City = sanitizer.NormalizeCity(l.City)
	l.State = sanitizer.NormalizeCity(l.State)
	l.Description = sanitizer.NormalizeText(l.Description)
	l.Size = normalizeEnum(l.Size, model.Sizes)
	l.ActivityLevel = normalizeEnum(l.ActivityLevel, model.ActivityLevels)
	l.Personalities = sanitizer.NormalizeEnumSlice(l.Personalities, model.Personalities)
	l.AvailableDays = sanitizer.NormalizeEnumSlice(l.AvailableDays, model.Weekdays)
	l.ImageURLs = sanitizer.NormalizeImageURLs(l.ImageURLs)
}

func (s *listingService) sanitizeUpdate(u *model.ListingUpdate) {
	u.Name = sanitizer.NormalizeName(u.Name)
	u.Breed = sanitizer.NormalizeName(u.Breed)
	u.City = sanitizer.NormalizeCity(u.City)
	u.Size = normalizeEnum(u.Size, model.Sizes)
	u.ActivityLevel = normalizeEnum(u.ActivityLevel, model.ActivityLevels)
	if u.Description != nil {
		d := sanitizer.NormalizeText(*u.Description)
		u.Description = &d
	}
	if u.State != nil {
		st := sanitizer.NormalizeCity(*u.State)
		u.State = &st
	}
	if u.Personalities != nil {
		p := sanitizer.NormalizeEnumSlice(*u.Personalities, model.Personalities)
		u.Personalities = &p
	}
	if u.AvailableDays != nil {
		d := sanitizer.NormalizeEnumSlice(*u.AvailableDays, model.Weekdays)
		u.AvailableDays = &d
	}
	if u.ImageURLs != nil {
		urls := sanitizer.NormalizeImageURLs(*u.ImageURLs)
		u.ImageURLs = &urls
	}
}

// normalizeEnum canonicalises case but keeps unknown values so validation
// reports them instead of silently dropping them.
func normalizeEnum(value string, allowed []string) string {
	if canonical := sanitizer.NormalizeEnum(value, allowed); canonical != "" {
		return canonical
	}
	return sanitizer.TrimAndNormalize(value)
}

func mergeListingUpdates(existing *model.Listing, u *model.ListingUpdate) *model.Listing {
	merged := *existing

	if u.Name != "" {
		merged.Name = u.Name
	}
	if u.Breed != "" {
		merged.Breed = u.Breed
	}
	if u.Size != "" {
		merged.Size = u.Size
	}
	if u.Age != nil {
		merged.Age = *u.Age
	}
	if u.Personalities != nil {
		merged.Personalities = *u.Personalities
	}
	if u.ActivityLevel != "" {
		merged.ActivityLevel = u.ActivityLevel
	}
	if u.Description != nil {
		merged.Description = *u.Description
	}
	if u.ImageURLs != nil {
		merged.ImageURLs = *u.ImageURLs
	}
	if u.HourlyRate != nil {
		merged.HourlyRate = *u.HourlyRate
	}
	if u.AvailableDays != nil {
		merged.AvailableDays = *u.AvailableDays
	}
	if u.AvailableTimeStart != "" {
		merged.AvailableTimeStart = u.AvailableTimeStart
	}
	if u.AvailableTimeEnd != "" {
		merged.AvailableTimeEnd = u.AvailableTimeEnd
	}
	if u.City != "" {
		merged.City = u.City
	}
	if u.State != nil {
		merged.State = *u.State
	}

	return &merged
}

func canManage(acc auth.Account, l *model.Listing) bool {
	return acc.ID != "" && (acc.ID == l.OwnerID || acc.Role == auth.RoleAdmin)
}
