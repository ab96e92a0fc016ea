package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "dogfordate/internal/bookings/errors"
	"dogfordate/pkg/config"
	mongodb "dogfordate/pkg/db/mongo"
	"dogfordate/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	// FindByAccount and CountByAccount match bookings where accountID is the
	// renter or the owner. An empty status matches every status.
	FindByAccount(ctx context.Context, accountID, status string, limit int, offset int64) ([]*model.Booking, error)
	CountByAccount(ctx context.Context, accountID, status string) (int64, error)
	// UpdateState writes status, payment status and updated_at only if the
	// stored booking still has the expected status and payment status.
	UpdateState(ctx context.Context, next *model.Booking, expectedStatus, expectedPayment string) error
	FindDueForCompletion(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	booking.CreatedAt = booking.CreatedAt.UTC().Truncate(time.Millisecond)
	booking.UpdatedAt = booking.UpdatedAt.UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := mongodb.ToObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func accountFilter(accountID, status string) bson.M {
	filter := bson.M{"$or": []bson.M{
		{"renter_id": accountID},
		{"owner_id": accountID},
	}}
	if status != "" {
		filter["status"] = status
	}
	return filter
}

func (r *mongoBookingRepository) FindByAccount(ctx context.Context, accountID, status string, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, accountFilter(accountID, status), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) CountByAccount(ctx context.Context, accountID, status string) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, accountFilter(accountID, status))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) UpdateState(ctx context.Context, next *model.Booking, expectedStatus, expectedPayment string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongodb.ToObjectID(next.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, next.ID)
	}

	filter := bson.M{
		"_id":            objectID,
		"status":         expectedStatus,
		"payment_status": expectedPayment,
	}
	update := bson.M{
		"$set": bson.M{
			"status":         next.Status,
			"payment_status": next.PaymentStatus,
			"updated_at":     next.UpdatedAt.UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update booking state: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrStaleState
	}
	return nil
}

func (r *mongoBookingRepository) FindDueForCompletion(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":   model.BookingConfirmed,
		"end_time": bson.M{"$lte": now.UTC()},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "end_time", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find due bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode due bookings: %w", err)
	}
	return bookings, nil
}
