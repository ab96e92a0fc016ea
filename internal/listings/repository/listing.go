package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	listingserrors "dogfordate/internal/listings/errors"
	"dogfordate/pkg/config"
	mongodb "dogfordate/pkg/db/mongo"
	"dogfordate/pkg/discovery"
	"dogfordate/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Listings"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	FindByID(ctx context.Context, id string) (*model.Listing, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Listing, error)
	// FindMatching returns up to limit listings, newest first, narrowed by
	// the filter's predicates. Callers still run discovery.Apply on the result.
	FindMatching(ctx context.Context, filter discovery.Filter, limit int) ([]*model.Listing, error)
	Update(ctx context.Context, id string, listing *model.Listing) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type mongoListingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoListingRepository(cfg *config.Config) ListingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoListingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoListingRepository) Create(ctx context.Context, listing *model.Listing) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	listing.CreatedAt, listing.UpdatedAt = now, now

	result, err := r.collection.InsertOne(ctx, listing)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		listing.ID = oid.Hex()
	}
	return nil
}

func (r *mongoListingRepository) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := mongodb.ToObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", listingserrors.ErrInvalidID, id)
	}

	var listing model.Listing
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&listing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, listingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	return &listing, nil
}

func (r *mongoListingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Listing, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoListingRepository) FindMatching(ctx context.Context, filter discovery.Filter, limit int) ([]*model.Listing, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, searchFilter(filter), opts)
}

// searchFilter translates the predicates Mongo can evaluate. Text matching
// is a case-insensitive substring match on name, breed and city.
func searchFilter(f discovery.Filter) bson.M {
	query := bson.M{}
	if len(f.Sizes) > 0 {
		query["size"] = bson.M{"$in": f.Sizes}
	}
	if len(f.ActivityLevels) > 0 {
		query["activity_level"] = bson.M{"$in": f.ActivityLevels}
	}
	if len(f.Personalities) > 0 {
		query["personalities"] = bson.M{"$in": f.Personalities}
	}

	rate := bson.M{}
	if f.MinRate != nil {
		rate["$gte"] = *f.MinRate
	}
	if f.MaxRate != nil {
		rate["$lte"] = *f.MaxRate
	}
	if len(rate) > 0 {
		query["hourly_rate"] = rate
	}

	if text := strings.TrimSpace(f.TextQuery); text != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
		query["$or"] = []bson.M{
			{"name": pattern},
			{"breed": pattern},
			{"city": pattern},
		}
	}
	return query
}

func (r *mongoListingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Listing, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []*model.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

func (r *mongoListingRepository) Update(ctx context.Context, id string, listing *model.Listing) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongodb.ToObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", listingserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"name":                 listing.Name,
			"breed":                listing.Breed,
			"size":                 listing.Size,
			"age":                  listing.Age,
			"personalities":        listing.Personalities,
			"activity_level":       listing.ActivityLevel,
			"description":          listing.Description,
			"image_urls":           listing.ImageURLs,
			"hourly_rate":          listing.HourlyRate,
			"available_days":       listing.AvailableDays,
			"available_time_start": listing.AvailableTimeStart,
			"available_time_end":   listing.AvailableTimeEnd,
			"city":                 listing.City,
			"state":                listing.State,
			"updated_at":           time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	if result.MatchedCount == 0 {
		return listingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoListingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongodb.ToObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", listingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if result.DeletedCount == 0 {
		return listingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoListingRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return count, nil
}
