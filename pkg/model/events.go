package model

import "time"

const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventBookingPaid      = "booking.paid"

	EventMessageCreated   = "message.created"
	EventConversationRead = "conversation.read"
)

// BookingEvent is published after a booking changes state.
type BookingEvent struct {
	BookingID     string    `json:"booking_id"`
	ListingID     string    `json:"dog_id"`
	RenterID      string    `json:"renter_id"`
	OwnerID       string    `json:"owner_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TotalAmount   float64   `json:"total_amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewBookingEvent(b *Booking) BookingEvent {
	return BookingEvent{
		BookingID:     b.ID,
		ListingID:     b.ListingID,
		RenterID:      b.RenterID,
		OwnerID:       b.OwnerID,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		TotalAmount:   b.TotalAmount,
		OccurredAt:    b.UpdatedAt,
	}
}

// ConversationEvent is the realtime payload for messaging. Message is set for
// message.created; ViewerID and ReadThroughSeq for conversation.read, where
// the viewer has read every counterpart message with seq <= ReadThroughSeq.
type ConversationEvent struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	Participants   [2]string `json:"participants"`
	Message        *Message  `json:"message,omitempty"`
	ViewerID       string    `json:"viewer_id,omitempty"`
	ReadThroughSeq int64     `json:"read_through_seq,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
