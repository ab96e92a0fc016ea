package model

import "time"

const (
	BookingPending   = "Pending"
	BookingConfirmed = "Confirmed"
	BookingCancelled = "Cancelled"
	BookingCompleted = "Completed"

	PaymentPending  = "Pending"
	PaymentPaid     = "Paid"
	PaymentRefunded = "Refunded"
)

var BookingStatuses = []string{BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted}

type Booking struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ListingID     string    `json:"dog_id" bson:"dog_id" validate:"required,mongodb"`
	RenterID      string    `json:"renter_id" bson:"renter_id" validate:"required,max=128"`
	OwnerID       string    `json:"owner_id" bson:"owner_id" validate:"required,max=128"`
	StartTime     time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime       time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status        string    `json:"status" bson:"status" validate:"required,oneof=Pending Confirmed Cancelled Completed"`
	PaymentStatus string    `json:"payment_status" bson:"payment_status" validate:"required,oneof=Pending Paid Refunded"`
	TotalAmount   float64   `json:"total_amount" bson:"total_amount" validate:"gt=0"`
	Notes         string    `json:"notes" bson:"notes" validate:"max=1000"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// BookingRequest is what a renter submits. Interval ordering is checked by
// the pricing calculator so the caller gets INVALID_INTERVAL rather than a
// generic validation failure.
type BookingRequest struct {
	ListingID string    `json:"dog_id" validate:"required,mongodb"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Notes     string    `json:"notes" validate:"max=1000"`
}

// Interval reports the booked duration.
func (b *Booking) Interval() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

// IsParty reports whether the account is the renter or the owner.
func (b *Booking) IsParty(accountID string) bool {
	return accountID != "" && (b.RenterID == accountID || b.OwnerID == accountID)
}
