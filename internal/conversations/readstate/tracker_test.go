package readstate

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"dogfordate/pkg/model"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id, conv, sender string, seq int64, at time.Time) *model.Message {
	return &model.Message{ID: id, ConversationID: conv, SenderID: sender, Content: "hi", Seq: seq, CreatedAt: at}
}

func created(m *model.Message) model.ConversationEvent {
	return model.ConversationEvent{
		Type:           model.EventMessageCreated,
		ConversationID: m.ConversationID,
		Participants:   [2]string{"alice", "bob"},
		Message:        m,
	}
}

func read(conv, viewer string, through int64) model.ConversationEvent {
	return model.ConversationEvent{
		Type:           model.EventConversationRead,
		ConversationID: conv,
		Participants:   [2]string{"alice", "bob"},
		ViewerID:       viewer,
		ReadThroughSeq: through,
	}
}

func TestApply_IsIdempotent(t *testing.T) {
	tr := NewTracker()
	tr.Track("c1", "alice", "bob")

	m := msg("m1", "c1", "alice", 1, base)
	if !tr.Apply(m) {
		t.Fatal("first apply should report a new message")
	}
	if tr.Apply(m) {
		t.Error("duplicate apply should not report a new message")
	}
	if got := tr.UnreadCount("c1", "bob"); got != 1 {
		t.Errorf("unread = %d, want 1", got)
	}
}

func TestApply_NeverUnreads(t *testing.T) {
	tr := NewTracker()
	tr.Track("c1", "alice", "bob")
	tr.Apply(msg("m1", "c1", "alice", 1, base))
	tr.MarkRead("c1", "bob", 1)

	// Redelivery of the original event carries is_read=false.
	if tr.Apply(msg("m1", "c1", "alice", 1, base)) {
		t.Error("redelivered read message was re-added")
	}
	if got := tr.UnreadCount("c1", "bob"); got != 0 {
		t.Errorf("unread = %d, want 0", got)
	}
}

func TestUnreadCounts(t *testing.T) {
	tr := NewTracker()
	tr.Track("c1", "alice", "bob")
	tr.Track("c2", "alice", "carol")

	tr.Apply(msg("m1", "c1", "bob", 1, base))
	tr.Apply(msg("m2", "c1", "bob", 2, base.Add(time.Minute)))
	tr.Apply(msg("m3", "c1", "alice", 3, base.Add(2*time.Minute)))
	tr.Apply(msg("m4", "c2", "carol", 1, base))

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"alice in c1", tr.UnreadCount("c1", "alice"), 2},
		{"bob in c1", tr.UnreadCount("c1", "bob"), 1},
		{"carol in c1", tr.UnreadCount("c1", "carol"), 0},
		{"alice total", tr.UnreadCountFor("alice"), 3},
		{"carol total", tr.UnreadCountFor("carol"), 0},
		{"unknown conversation", tr.UnreadCount("nope", "alice"), 0},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestMarkRead(t *testing.T) {
	tr := NewTracker()
	tr.Track("c1", "alice", "bob")
	tr.Apply(msg("m1", "c1", "bob", 1, base))
	tr.Apply(msg("m2", "c1", "alice", 2, base))
	tr.Apply(msg("m3", "c1", "bob", 3, base))

	if n := tr.MarkRead("c1", "alice", 3); n != 2 {
		t.Errorf("first MarkRead cleared %d, want 2", n)
	}
	if n := tr.MarkRead("c1", "alice", 3); n != 0 {
		t.Errorf("second MarkRead cleared %d, want 0", n)
	}
	if n := tr.MarkRead("c1", "alice", 1); n != 0 {
		t.Errorf("lower watermark cleared %d, want 0", n)
	}
	if got := tr.UnreadCount("c1", "bob"); got != 1 {
		t.Errorf("bob's unread = %d, own reads must not affect it", got)
	}
}

func TestMarkRead_LeavesLaterMessagesUnread(t *testing.T) {
	tr := NewTracker()
	tr.Track("c1", "alice", "bob")
	tr.Apply(msg("m1", "c1", "alice", 1, base))
	tr.Apply(msg("m2", "c1", "alice", 2, base.Add(time.Second)))

	tr.MarkRead("c1", "bob", 1)
	if got := tr.UnreadCount("c1", "bob"); got != 1 {
		t.Errorf("unread = %d, want 1 (seq 2 was not yet seen)", got)
	}
}

func TestReadBeforeCreated_DoesNotResurrect(t *testing.T) {
	// Across instances the read can arrive before the message it covers.
	tr := NewTracker()
	tr.Handle(read("c1", "bob", 1))
	tr.Handle(created(msg("m1", "c1", "alice", 1, base)))

	if got := tr.UnreadCountFor("bob"); got != 0 {
		t.Errorf("bob unread = %d, want 0", got)
	}
	if len(tr.Messages("c1")) != 0 {
		t.Error("read message is still held")
	}

	tr.Handle(created(msg("m2", "c1", "alice", 2, base.Add(time.Second))))
	if got := tr.UnreadCountFor("bob"); got != 1 {
		t.Errorf("bob unread after a newer message = %d, want 1", got)
	}
}

func TestEventOrderDoesNotMatter(t *testing.T) {
	m1 := msg("m1", "c1", "alice", 1, base)
	m2 := msg("m2", "c1", "alice", 2, base.Add(time.Second))
	orders := map[string][]model.ConversationEvent{
		"in order":    {created(m1), created(m2), read("c1", "bob", 1)},
		"read first":  {read("c1", "bob", 1), created(m2), created(m1)},
		"duplicated":  {created(m1), read("c1", "bob", 1), created(m1), created(m2), created(m2)},
		"read middle": {created(m2), read("c1", "bob", 1), created(m1)},
	}

	for name, events := range orders {
		t.Run(name, func(t *testing.T) {
			tr := NewTracker()
			for _, ev := range events {
				tr.Handle(ev)
			}
			if got := tr.UnreadCount("c1", "bob"); got != 1 {
				t.Errorf("unread = %d, want 1", got)
			}
		})
	}
}

func TestMessages_Ordered(t *testing.T) {
	tr := NewTracker()
	tr.Apply(msg("late", "c1", "a", 3, base.Add(time.Second)))
	tr.Apply(msg("tie-2", "c1", "a", 2, base))
	tr.Apply(msg("tie-1", "c1", "a", 1, base))

	got := tr.Messages("c1")
	want := []string{"tie-1", "tie-2", "late"}
	if len(got) != len(want) {
		t.Fatalf("got %d messages", len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
	if len(tr.Messages("missing")) != 0 {
		t.Error("unknown conversation should have no messages")
	}
}

func TestMarkRead_EvictsMessages(t *testing.T) {
	tr := NewTracker()
	tr.Track("c1", "alice", "bob")
	for i := int64(1); i <= 50; i++ {
		tr.Apply(msg("m"+strconv.FormatInt(i, 10), "c1", "alice", i, base))
	}
	tr.MarkRead("c1", "bob", 50)
	if n := len(tr.Messages("c1")); n != 0 {
		t.Errorf("%d read messages still held", n)
	}
}

func TestRun_AppliesEvents(t *testing.T) {
	tr := NewTracker()
	events := make(chan model.ConversationEvent, 3)
	m := msg("m1", "c1", "alice", 1, base)

	events <- created(m)
	events <- created(m)
	close(events)

	if err := tr.Run(context.Background(), events); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := tr.UnreadCountFor("bob"); got != 1 {
		t.Fatalf("unread = %d, want 1", got)
	}

	reads := make(chan model.ConversationEvent, 1)
	reads <- read("c1", "bob", 1)
	close(reads)
	_ = tr.Run(context.Background(), reads)
	if got := tr.UnreadCountFor("bob"); got != 0 {
		t.Errorf("unread after read event = %d", got)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	tr := NewTracker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.Run(ctx, make(chan model.ConversationEvent))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestHydrate(t *testing.T) {
	tr := NewTracker()
	tr.Hydrate(
		[]*model.Conversation{{ID: "c1", User1ID: "alice", User2ID: "bob"}},
		[]*model.Message{msg("m1", "c1", "alice", 1, base), msg("m2", "c1", "alice", 2, base)},
	)
	if got := tr.UnreadCount("c1", "bob"); got != 2 {
		t.Errorf("unread = %d, want 2", got)
	}

	// A replayed event for a message read before the restart.
	tr.AdvanceReadThrough("c1", "alice", 2)
	tr.Handle(created(msg("m0", "c1", "alice", 1, base)))
	if got := tr.UnreadCount("c1", "bob"); got != 0 {
		t.Errorf("unread after watermark = %d, want 0", got)
	}
}
