package repository

import (
	"context"
	"fmt"
	"time"

	"dogfordate/pkg/config"
	mongodb "dogfordate/pkg/db/mongo"
	"dogfordate/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	MessagesCollection = "Messages"
)

// ReadWatermark is the highest seq of SenderID's messages in a conversation
// that the other participant has read.
type ReadWatermark struct {
	ConversationID string `bson:"conversation_id"`
	SenderID       string `bson:"sender_id"`
	Seq            int64  `bson:"seq"`
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByConversation(ctx context.Context, conversationID string, limit int, offset int64) ([]*model.Message, error)
	// MarkRead flags every unread message with seq <= throughSeq not sent by
	// viewerID and returns how many changed.
	MarkRead(ctx context.Context, conversationID, viewerID string, throughSeq int64) (int64, error)
	// FindUnread pages through unread messages in _id order, starting after
	// afterID ("" for the first page).
	FindUnread(ctx context.Context, afterID string, limit int) ([]*model.Message, error)
	ReadWatermarks(ctx context.Context) ([]ReadWatermark, error)
}

type mongoMessageRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoMessageRepository(cfg *config.Config) MessageRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoMessageRepository{
		cfg:        cfg,
		collection: db.Collection(MessagesCollection),
	}
}

func (r *mongoMessageRepository) Create(ctx context.Context, msg *model.Message) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	msg.CreatedAt = msg.CreatedAt.UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *mongoMessageRepository) FindByConversation(ctx context.Context, conversationID string, limit int, offset int64) ([]*model.Message, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.find(ctx, bson.M{"conversation_id": conversationID}, opts)
}

func (r *mongoMessageRepository) FindUnread(ctx context.Context, afterID string, limit int) ([]*model.Message, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"is_read": false}
	if afterID != "" {
		filter["_id"] = bson.M{"$gt": afterID}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	return r.find(ctx, filter, opts)
}

func (r *mongoMessageRepository) ReadWatermarks(ctx context.Context) ([]ReadWatermark, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_read": true}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"conversation_id": "$conversation_id", "sender_id": "$sender_id"},
			"seq": bson.M{"$max": "$seq"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":             0,
			"conversation_id": "$_id.conversation_id",
			"sender_id":       "$_id.sender_id",
			"seq":             1,
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate read watermarks: %w", err)
	}
	defer cursor.Close(ctx)

	marks := []ReadWatermark{}
	if err := cursor.All(ctx, &marks); err != nil {
		return nil, fmt.Errorf("failed to decode read watermarks: %w", err)
	}
	return marks, nil
}

func (r *mongoMessageRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Message, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := []*model.Message{}
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}

func (r *mongoMessageRepository) MarkRead(ctx context.Context, conversationID, viewerID string, throughSeq int64) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"conversation_id": conversationID,
		"sender_id":       bson.M{"$ne": viewerID},
		"is_read":         false,
		"seq":             bson.M{"$lte": throughSeq},
	}
	result, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return result.ModifiedCount, nil
}
