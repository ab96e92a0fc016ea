package repository

import (
	"context"
	"fmt"
	"time"

	listingserrors "dogfordate/internal/listings/errors"
	"dogfordate/pkg/config"
	mongodb "dogfordate/pkg/db/mongo"
	"dogfordate/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ReviewsCollectionName = "Reviews"
)

type ReviewRepository interface {
	// Create fails with ErrDuplicateReview when the booking already has a review.
	Create(ctx context.Context, review *model.Review) error
	FindByListing(ctx context.Context, listingID string, limit int, offset int64) ([]*model.Review, error)
	// Summaries aggregates average rating and count per listing id. Listings
	// without reviews are absent from the result.
	Summaries(ctx context.Context, listingIDs []string) (map[string]model.RatingSummary, error)
}

type mongoReviewRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoReviewRepository(cfg *config.Config) ReviewRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReviewRepository{
		cfg:        cfg,
		collection: db.Collection(ReviewsCollectionName),
	}
}

func (r *mongoReviewRepository) Create(ctx context.Context, review *model.Review) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	review.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, review)
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return listingserrors.ErrDuplicateReview
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		review.ID = oid.Hex()
	}
	return nil
}

func (r *mongoReviewRepository) FindByListing(ctx context.Context, listingID string, limit int, offset int64) ([]*model.Review, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"dog_id": listingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reviews: %w", err)
	}
	defer cursor.Close(ctx)

	reviews := []*model.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	return reviews, nil
}

func (r *mongoReviewRepository) Summaries(ctx context.Context, listingIDs []string) (map[string]model.RatingSummary, error) {
	out := make(map[string]model.RatingSummary, len(listingIDs))
	if len(listingIDs) == 0 {
		return out, nil
	}

	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"dog_id": bson.M{"$in": listingIDs}}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$dog_id",
			"average": bson.M{"$avg": "$rating"},
			"count":   bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var summaries []model.RatingSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode ratings: %w", err)
	}
	for _, s := range summaries {
		out[s.ListingID] = s
	}
	return out, nil
}
