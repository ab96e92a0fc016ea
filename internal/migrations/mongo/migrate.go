package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dogfordate/internal/migrations/mongo/validators"
	"dogfordate/pkg/logger"
)

var (
	ListingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{
			{Key: "size", Value: 1},
			{Key: "activity_level", Value: 1},
			{Key: "hourly_rate", Value: 1},
		}},
		{Keys: bson.D{{Key: "personalities", Value: 1}}},
	}

	ReviewsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "dog_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "renter_id", Value: 1}, {Key: "start_time", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "start_time", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "end_time", Value: 1}}},
		{Keys: bson.D{{Key: "dog_id", Value: 1}, {Key: "start_time", Value: 1}}},
	}

	ConversationsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user1_id", Value: 1}, {Key: "user2_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user2_id", Value: 1}, {Key: "updated_at", Value: -1}}},
	}

	MessagesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "seq", Value: 1},
		}},
		{Keys: bson.D{{Key: "is_read", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "sender_id", Value: 1},
			{Key: "is_read", Value: 1},
			{Key: "seq", Value: 1},
		}},
	}
)

type collectionDef struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections lists every collection the services use, in creation order.
var Collections = []collectionDef{
	{Name: "Listings", Indexes: ListingsIndexes, Validator: validators.ListingValidator},
	{Name: "Reviews", Indexes: ReviewsIndexes, Validator: validators.ReviewValidator},
	{Name: "Bookings", Indexes: BookingsIndexes, Validator: validators.BookingValidator},
	{Name: "Conversations", Indexes: ConversationsIndexes, Validator: validators.ConversationValidator},
	{Name: "Messages", Indexes: MessagesIndexes, Validator: validators.MessageValidator},
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for _, def := range Collections {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully", "collections", len(Collections))
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
