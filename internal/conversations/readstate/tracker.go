// Package readstate keeps an in-memory read model of conversations so unread
// counts can be served without hitting the store.
//
// Only unread messages are held. Reads are recorded as a per-sender sequence
// watermark: once a participant has read through seq N, every message from the
// other participant with Seq <= N counts as read, whether it arrives before or
// after the read. Updates arrive at least once and in any order across
// sources, so every merge is idempotent and commutative.
package readstate

import (
	"context"
	"slices"
	"sync"

	"dogfordate/pkg/model"
)

type conversation struct {
	participants [2]string
	unread       map[string]*model.Message
	// readThrough maps a sender to the highest seq of theirs the counterpart
	// has read.
	readThrough map[string]int64
}

func (c *conversation) hasParticipant(accountID string) bool {
	return accountID != "" && (c.participants[0] == accountID || c.participants[1] == accountID)
}

func (c *conversation) counterpart(accountID string) string {
	switch accountID {
	case "":
		return ""
	case c.participants[0]:
		return c.participants[1]
	case c.participants[1]:
		return c.participants[0]
	}
	return ""
}

func (c *conversation) isRead(m *model.Message) bool {
	return m.IsRead || (m.Seq > 0 && m.Seq <= c.readThrough[m.SenderID])
}

// advance raises the watermark for senderID and evicts what it covers.
func (c *conversation) advance(senderID string, seq int64) int {
	if senderID == "" || seq <= c.readThrough[senderID] {
		return 0
	}
	c.readThrough[senderID] = seq
	evicted := 0
	for id, m := range c.unread {
		if m.SenderID == senderID && m.Seq <= seq {
			delete(c.unread, id)
			evicted++
		}
	}
	return evicted
}

func (c *conversation) unreadFor(accountID string) int {
	if !c.hasParticipant(accountID) {
		return 0
	}
	n := 0
	for _, m := range c.unread {
		if m.SenderID != accountID {
			n++
		}
	}
	return n
}

type Tracker struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
}

func NewTracker() *Tracker {
	return &Tracker{conversations: make(map[string]*conversation)}
}

func (t *Tracker) entry(conversationID string) *conversation {
	c, ok := t.conversations[conversationID]
	if !ok {
		c = &conversation{
			unread:      make(map[string]*model.Message),
			readThrough: make(map[string]int64),
		}
		t.conversations[conversationID] = c
	}
	return c
}

// Track records the participants of a conversation. Messages of untracked
// conversations are kept but not attributed to any account.
func (t *Tracker) Track(conversationID, user1ID, user2ID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(conversationID).participants = [2]string{user1ID, user2ID}
}

// Apply merges msg and reports whether it was added as a new unread message.
// A message covered by a read watermark is dropped, so redelivery never
// unreads it.
func (t *Tracker) Apply(msg *model.Message) bool {
	if msg == nil || msg.ID == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.entry(msg.ConversationID)
	if c.isRead(msg) {
		delete(c.unread, msg.ID)
		return false
	}
	if _, ok := c.unread[msg.ID]; ok {
		return false
	}
	stored := *msg
	c.unread[msg.ID] = &stored
	return true
}

// MarkRead records that viewerID has read the conversation through seq and
// returns how many held messages that cleared. The conversation's
// participants must be tracked for the watermark to be attributed.
func (t *Tracker) MarkRead(conversationID, viewerID string, throughSeq int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.conversations[conversationID]
	if !ok {
		return 0
	}
	return c.advance(c.counterpart(viewerID), throughSeq)
}

// AdvanceReadThrough marks messages from senderID with Seq <= seq as read.
// Used when seeding from the store, where the reader is implied.
func (t *Tracker) AdvanceReadThrough(conversationID, senderID string, seq int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(conversationID).advance(senderID, seq)
}

func (t *Tracker) UnreadCount(conversationID, accountID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.conversations[conversationID]
	if !ok {
		return 0
	}
	return c.unreadFor(accountID)
}

// UnreadCountFor sums unread messages across every conversation accountID
// takes part in.
func (t *Tracker) UnreadCountFor(accountID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := 0
	for _, c := range t.conversations {
		total += c.unreadFor(accountID)
	}
	return total
}

// Messages returns copies of the unread messages held for the conversation,
// ordered by creation time, then sequence.
func (t *Tracker) Messages(conversationID string) []model.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.conversations[conversationID]
	if !ok {
		return []model.Message{}
	}
	out := make([]model.Message, 0, len(c.unread))
	for _, m := range c.unread {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b model.Message) int {
		switch {
		case a.Before(&b):
			return -1
		case b.Before(&a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// Hydrate seeds the tracker with conversations and their unread messages.
// It may be called once per page.
func (t *Tracker) Hydrate(conversations []*model.Conversation, unread []*model.Message) {
	for _, c := range conversations {
		t.Track(c.ID, c.User1ID, c.User2ID)
	}
	for _, m := range unread {
		t.Apply(m)
	}
}

// Handle applies one realtime event.
func (t *Tracker) Handle(ev model.ConversationEvent) {
	if ev.ConversationID == "" {
		return
	}
	if ev.Participants[0] != "" || ev.Participants[1] != "" {
		t.Track(ev.ConversationID, ev.Participants[0], ev.Participants[1])
	}
	switch ev.Type {
	case model.EventMessageCreated:
		t.Apply(ev.Message)
	case model.EventConversationRead:
		t.MarkRead(ev.ConversationID, ev.ViewerID, ev.ReadThroughSeq)
	}
}

// Run applies events until ctx is done or events is closed.
func (t *Tracker) Run(ctx context.Context, events <-chan model.ConversationEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			t.Handle(ev)
		}
	}
}
