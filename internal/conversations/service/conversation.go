package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	conversationserrors "dogfordate/internal/conversations/errors"
	"dogfordate/internal/conversations/readstate"
	"dogfordate/internal/conversations/repository"
	"dogfordate/pkg/auth"
	mongodb "dogfordate/pkg/db/mongo"
	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/logger"
	"dogfordate/pkg/model"
	"dogfordate/pkg/sanitizer"
	"dogfordate/pkg/timefmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	inboxLimit  = 100
	hydratePage = 500
)

// Notifier fans conversation activity out to other instances.
type Notifier interface {
	MessageCreated(ctx context.Context, conv *model.Conversation, msg *model.Message) error
	ConversationRead(ctx context.Context, conv *model.Conversation, viewerID string, throughSeq int64, at time.Time) error
}

type ConversationService interface {
	GetOrCreate(ctx context.Context, acc auth.Account, participantID string) (*model.Conversation, error)
	AppendMessage(ctx context.Context, acc auth.Account, conversationID, content string) (*model.Message, error)
	MarkRead(ctx context.Context, acc auth.Account, conversationID string) (int64, error)
	UnreadCount(ctx context.Context, acc auth.Account, conversationID string) (int, error)
	UnreadCountFor(ctx context.Context, acc auth.Account) (int, error)
	ListMessages(ctx context.Context, acc auth.Account, conversationID string, limit int, offset int64) ([]*model.Message, error)
	ListConversations(ctx context.Context, acc auth.Account) ([]*model.ConversationSummary, error)
	// Hydrate seeds the tracker with every unread message and the read
	// watermarks from the store.
	Hydrate(ctx context.Context) error
}

type conversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	tx            mongodb.TransactionManager
	tracker       *readstate.Tracker
	notifier      Notifier
	log           *logger.Logger
	now           func() time.Time
}

func NewConversationService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	tx mongodb.TransactionManager,
	tracker *readstate.Tracker,
	notifier Notifier,
	log *logger.Logger,
) ConversationService {
	return &conversationService{
		conversations: conversations,
		messages:      messages,
		tx:            tx,
		tracker:       tracker,
		notifier:      notifier,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreate returns the conversation between the caller and participantID,
// creating it when absent. Two concurrent creators both end up with the
// record stored by the winner of the unique pair index.
func (s *conversationService) GetOrCreate(ctx context.Context, acc auth.Account, participantID string) (*model.Conversation, error) {
	participantID = sanitizer.TrimAndNormalize(participantID)
	if participantID == "" {
		return nil, apperrors.Validation("participant_id is required", map[string]any{"field": "participant_id"})
	}
	if participantID == acc.ID {
		return nil, apperrors.Validation("Cannot start a conversation with yourself", map[string]any{"field": "participant_id"})
	}

	user1, user2 := model.CanonicalPair(acc.ID, participantID)
	conv, err := s.conversations.FindByPair(ctx, user1, user2)
	if err == nil {
		s.tracker.Track(conv.ID, conv.User1ID, conv.User2ID)
		return conv, nil
	}
	if !errors.Is(err, conversationserrors.ErrNotFound) {
		return nil, apperrors.Unavailable("conversations store", err)
	}

	now := s.now()
	conv = &model.Conversation{
		User1ID:   user1,
		User2ID:   user2,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		if !errors.Is(err, conversationserrors.ErrDuplicatePair) {
			s.log.Error("Failed to create conversation", "user1_id", user1, "user2_id", user2, "error", err)
			return nil, apperrors.Unavailable("conversations store", err)
		}

		winner, lookupErr := s.conversations.FindByPair(ctx, user1, user2)
		if lookupErr != nil {
			s.log.Warn("Conversation lookup after duplicate insert failed", "user1_id", user1, "user2_id", user2, "error", lookupErr)
			return nil, apperrors.Conflict("Conversation already exists for this pair")
		}
		conv = winner
	} else {
		s.log.Info("Conversation created", "id", conv.ID, "user1_id", user1, "user2_id", user2)
	}

	s.tracker.Track(conv.ID, conv.User1ID, conv.User2ID)
	return conv, nil
}

func (s *conversationService) AppendMessage(ctx context.Context, acc auth.Account, conversationID, content string) (*model.Message, error) {
	content = sanitizer.NormalizeText(content)
	if content == "" {
		return nil, apperrors.EmptyContent()
	}
	if utf8.RuneCountInString(content) > model.MaxMessageLength {
		return nil, apperrors.ContentTooLong(model.MaxMessageLength)
	}

	conv, err := s.participantConversation(ctx, acc, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       acc.ID,
		Content:        content,
		IsRead:         false,
		CreatedAt:      s.now(),
	}

	err = s.tx.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		seq, err := s.conversations.NextSequence(sessCtx, conv.ID, msg.CreatedAt)
		if err != nil {
			return err
		}
		msg.Seq = seq
		return s.messages.Create(sessCtx, msg)
	})
	if err != nil {
		if errors.Is(err, conversationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Conversation", conversationID)
		}
		s.log.Error("Failed to append message", "conversation_id", conv.ID, "error", err)
		return nil, apperrors.Unavailable("messages store", err)
	}
	conv.MessageSeq = msg.Seq
	conv.UpdatedAt = msg.CreatedAt

	s.tracker.Track(conv.ID, conv.User1ID, conv.User2ID)
	s.tracker.Apply(msg)
	if err := s.notifier.MessageCreated(ctx, conv, msg); err != nil {
		s.log.Warn("Failed to publish message event", "conversation_id", conv.ID, "message_id", msg.ID, "error", err)
	}

	s.log.Debug("Message appended", "conversation_id", conv.ID, "message_id", msg.ID, "seq", msg.Seq)
	return msg, nil
}

// MarkRead marks the caller's incoming messages read through the last seq
// committed when the conversation was loaded. A message committed after that
// stays unread in both the store and the tracker.
func (s *conversationService) MarkRead(ctx context.Context, acc auth.Account, conversationID string) (int64, error) {
	conv, err := s.participantConversation(ctx, acc, conversationID)
	if err != nil {
		return 0, err
	}
	through := conv.MessageSeq
	if through == 0 {
		return 0, nil
	}

	changed, err := s.messages.MarkRead(ctx, conv.ID, acc.ID, through)
	if err != nil {
		s.log.Error("Failed to mark conversation read", "conversation_id", conv.ID, "error", err)
		return 0, apperrors.Unavailable("messages store", err)
	}

	s.tracker.Track(conv.ID, conv.User1ID, conv.User2ID)
	s.tracker.MarkRead(conv.ID, acc.ID, through)
	if err := s.notifier.ConversationRead(ctx, conv, acc.ID, through, s.now()); err != nil {
		s.log.Warn("Failed to publish read event", "conversation_id", conv.ID, "error", err)
	}
	return changed, nil
}

func (s *conversationService) UnreadCount(ctx context.Context, acc auth.Account, conversationID string) (int, error) {
	conv, err := s.participantConversation(ctx, acc, conversationID)
	if err != nil {
		return 0, err
	}
	return s.tracker.UnreadCount(conv.ID, acc.ID), nil
}

func (s *conversationService) UnreadCountFor(ctx context.Context, acc auth.Account) (int, error) {
	if acc.ID == "" {
		return 0, apperrors.Unauthorized("Authentication required")
	}
	return s.tracker.UnreadCountFor(acc.ID), nil
}

func (s *conversationService) ListMessages(ctx context.Context, acc auth.Account, conversationID string, limit int, offset int64) ([]*model.Message, error) {
	conv, err := s.participantConversation(ctx, acc, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messages.FindByConversation(ctx, conv.ID, limit, offset)
	if err != nil {
		s.log.Error("Failed to list messages", "conversation_id", conv.ID, "error", err)
		return nil, apperrors.Unavailable("messages store", err)
	}
	return messages, nil
}

// ListConversations is the inbox: newest activity first, each row with the
// counterpart and the caller's unread count.
func (s *conversationService) ListConversations(ctx context.Context, acc auth.Account) ([]*model.ConversationSummary, error) {
	conversations, err := s.conversations.FindByParticipant(ctx, acc.ID, inboxLimit, 0)
	if err != nil {
		s.log.Error("Failed to list conversations", "account_id", acc.ID, "error", err)
		return nil, apperrors.Unavailable("conversations store", err)
	}

	now := s.now()
	out := make([]*model.ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		s.tracker.Track(c.ID, c.User1ID, c.User2ID)
		out = append(out, &model.ConversationSummary{
			Conversation: *c,
			Counterpart:  c.Counterpart(acc.ID),
			UnreadCount:  s.tracker.UnreadCount(c.ID, acc.ID),
			LastActivity: timefmt.Relative(c.UpdatedAt, now),
		})
	}
	return out, nil
}

func (s *conversationService) Hydrate(ctx context.Context) error {
	tracked := make(map[string]bool)
	total := 0
	after := ""
	for {
		page, err := s.messages.FindUnread(ctx, after, hydratePage)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}

		ids := make([]string, 0)
		for _, m := range page {
			if !tracked[m.ConversationID] {
				tracked[m.ConversationID] = true
				ids = append(ids, m.ConversationID)
			}
		}
		conversations, err := s.conversations.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		s.tracker.Hydrate(conversations, page)

		total += len(page)
		after = page[len(page)-1].ID
		if len(page) < hydratePage {
			break
		}
	}

	marks, err := s.messages.ReadWatermarks(ctx)
	if err != nil {
		return err
	}
	for _, m := range marks {
		s.tracker.AdvanceReadThrough(m.ConversationID, m.SenderID, m.Seq)
	}

	s.log.Info("Read-state tracker hydrated", "conversations", len(tracked), "unread_messages", total, "watermarks", len(marks))
	return nil
}

// participantConversation loads the conversation and checks the caller takes
// part in it.
func (s *conversationService) participantConversation(ctx context.Context, acc auth.Account, id string) (*model.Conversation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Conversation ID cannot be empty")
	}
	conv, err := s.conversations.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, conversationserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Conversation", id)
		case errors.Is(err, conversationserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid conversation ID format")
		default:
			return nil, apperrors.Unavailable("conversations store", err)
		}
	}
	if !conv.HasParticipant(acc.ID) {
		return nil, apperrors.Forbidden("Not a participant of this conversation")
	}
	return conv, nil
}
