// Package events carries conversation activity over Kafka so every messaging
// instance keeps its read-state tracker current.
package events

import (
	"context"
	"time"

	"dogfordate/pkg/kafka"
	"dogfordate/pkg/model"
)

const source = "messaging"

// Publisher emits conversation events keyed by conversation id, which keeps
// them ordered per conversation.
type Publisher struct {
	publisher kafka.Publisher
}

func NewPublisher(publisher kafka.Publisher) *Publisher {
	if publisher == nil {
		publisher = kafka.NoopPublisher{}
	}
	return &Publisher{publisher: publisher}
}

func (p *Publisher) MessageCreated(ctx context.Context, conv *model.Conversation, msg *model.Message) error {
	return p.publish(ctx, model.ConversationEvent{
		Type:           model.EventMessageCreated,
		ConversationID: conv.ID,
		Participants:   [2]string{conv.User1ID, conv.User2ID},
		Message:        msg,
		OccurredAt:     msg.CreatedAt,
	})
}

func (p *Publisher) ConversationRead(ctx context.Context, conv *model.Conversation, viewerID string, throughSeq int64, at time.Time) error {
	return p.publish(ctx, model.ConversationEvent{
		Type:           model.EventConversationRead,
		ConversationID: conv.ID,
		Participants:   [2]string{conv.User1ID, conv.User2ID},
		ViewerID:       viewerID,
		ReadThroughSeq: throughSeq,
		OccurredAt:     at,
	})
}

func (p *Publisher) publish(ctx context.Context, ev model.ConversationEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(ev.ConversationID).
		WithEventType(ev.Type).
		WithSource(source).
		WithTimestamp(ev.OccurredAt).
		WithValue(ev).
		Build()
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, msg)
}
