package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	conversationserrors "dogfordate/internal/conversations/errors"
	"dogfordate/pkg/config"
	mongodb "dogfordate/pkg/db/mongo"
	"dogfordate/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ConversationsCollection = "Conversations"
)

type ConversationRepository interface {
	// Create fails with ErrDuplicatePair when the pair already has a
	// conversation.
	Create(ctx context.Context, conv *model.Conversation) error
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Conversation, error)
	FindByPair(ctx context.Context, user1ID, user2ID string) (*model.Conversation, error)
	FindByParticipant(ctx context.Context, accountID string, limit int, offset int64) ([]*model.Conversation, error)
	// NextSequence atomically bumps message_seq, moves updated_at forward to
	// at (never backwards) and returns the new sequence number.
	NextSequence(ctx context.Context, id string, at time.Time) (int64, error)
}

type mongoConversationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoConversationRepository(cfg *config.Config) ConversationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoConversationRepository{
		cfg:        cfg,
		collection: db.Collection(ConversationsCollection),
	}
}

func (r *mongoConversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	conv.CreatedAt = conv.CreatedAt.UTC().Truncate(time.Millisecond)
	conv.UpdatedAt = conv.UpdatedAt.UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, conv)
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return conversationserrors.ErrDuplicatePair
		}
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		conv.ID = oid.Hex()
	}
	return nil
}

func (r *mongoConversationRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := mongodb.ToObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", conversationserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoConversationRepository) FindByPair(ctx context.Context, user1ID, user2ID string) (*model.Conversation, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"user1_id": user1ID, "user2_id": user2ID})
}

func (r *mongoConversationRepository) findOne(ctx context.Context, filter bson.M) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.collection.FindOne(ctx, filter).Decode(&conv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, conversationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &conv, nil
}

func (r *mongoConversationRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Conversation, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := mongodb.ToObjectID(id); err == nil {
			objectIDs = append(objectIDs, oid)
		}
	}
	if len(objectIDs) == 0 {
		return []*model.Conversation{}, nil
	}

	return r.find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}}, options.Find())
}

func (r *mongoConversationRepository) FindByParticipant(ctx context.Context, accountID string, limit int, offset int64) ([]*model.Conversation, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"$or": []bson.M{
		{"user1_id": accountID},
		{"user2_id": accountID},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.find(ctx, filter, opts)
}

func (r *mongoConversationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Conversation, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversations: %w", err)
	}
	defer cursor.Close(ctx)

	conversations := []*model.Conversation{}
	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return conversations, nil
}

func (r *mongoConversationRepository) NextSequence(ctx context.Context, id string, at time.Time) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongodb.ToObjectID(id)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", conversationserrors.ErrInvalidID, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var conv model.Conversation
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, sequenceUpdate(at), opts).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, conversationserrors.ErrNotFound
		}
		return 0, fmt.Errorf("failed to advance message sequence: %w", err)
	}
	return conv.MessageSeq, nil
}

// sequenceUpdate bumps the sequence and keeps updated_at monotonic when two
// appends commit out of timestamp order.
func sequenceUpdate(at time.Time) bson.M {
	return bson.M{
		"$inc": bson.M{"message_seq": 1},
		"$max": bson.M{"updated_at": at.UTC().Truncate(time.Millisecond)},
	}
}
