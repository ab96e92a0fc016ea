package events

import (
	"context"
	"fmt"

	"dogfordate/pkg/kafka"
	"dogfordate/pkg/logger"
	"dogfordate/pkg/model"
)

// Listener decodes consumed records and forwards them to the tracker's
// channel. Its Handle method is a kafka.MessageHandler.
type Listener struct {
	events chan model.ConversationEvent
	log    *logger.Logger
}

func NewListener(buffer int, log *logger.Logger) *Listener {
	return &Listener{
		events: make(chan model.ConversationEvent, buffer),
		log:    log,
	}
}

func (l *Listener) Events() <-chan model.ConversationEvent {
	return l.events
}

func (l *Listener) Handle(ctx context.Context, msg kafka.Message) error {
	var ev model.ConversationEvent
	if err := msg.DecodeValue(&ev); err != nil {
		return err
	}
	if ev.ConversationID == "" {
		return kafka.Permanent("conversation event without conversation id", kafka.ErrInvalidMessage)
	}

	switch ev.Type {
	case model.EventMessageCreated:
		if ev.Message == nil || ev.Message.ID == "" {
			return kafka.Permanent("message.created without message", kafka.ErrInvalidMessage)
		}
	case model.EventConversationRead:
		if ev.ViewerID == "" || ev.ReadThroughSeq <= 0 {
			return kafka.Permanent("conversation.read without viewer or read-through seq", kafka.ErrInvalidMessage)
		}
	default:
		return kafka.Rejected(fmt.Sprintf("unhandled event type %q", ev.Type), nil)
	}

	select {
	case l.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
