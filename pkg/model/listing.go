package model

import "time"

const (
	SizeSmall  = "Small"
	SizeMedium = "Medium"
	SizeLarge  = "Large"

	ActivityLow    = "Low"
	ActivityMedium = "Medium"
	ActivityHigh   = "High"

	OwnerIndividual = "Individual"
	OwnerShelter    = "Shelter"
)

var (
	Sizes          = []string{SizeSmall, SizeMedium, SizeLarge}
	ActivityLevels = []string{ActivityLow, ActivityMedium, ActivityHigh}
	Personalities  = []string{
		"Playful", "Calm", "Energetic", "Friendly", "Shy",
		"Independent", "Affectionate", "Protective", "Social",
	}
	Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
)

// Listing is a dog offered for hourly companionship. Rating and ReviewCount
// are derived from reviews at read time and never persisted.
type Listing struct {
	ID                 string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name               string    `json:"name" bson:"name" validate:"required,min=1,max=60"`
	Breed              string    `json:"breed" bson:"breed" validate:"required,min=2,max=60"`
	Size               string    `json:"size" bson:"size" validate:"required,listing_size"`
	Age                int       `json:"age" bson:"age" validate:"min=0,max=30"`
	Personalities      []string  `json:"personalities" bson:"personalities" validate:"omitempty,max=9,unique,dive,personality"`
	ActivityLevel      string    `json:"activity_level" bson:"activity_level" validate:"required,activity_level"`
	Description        string    `json:"description" bson:"description" validate:"max=2000"`
	ImageURLs          []string  `json:"image_urls" bson:"image_urls" validate:"omitempty,max=10,dive,url"`
	OwnerID            string    `json:"owner_id" bson:"owner_id" validate:"required,max=128"`
	OwnerType          string    `json:"owner_type" bson:"owner_type" validate:"required,oneof=Individual Shelter"`
	HourlyRate         float64   `json:"hourly_rate" bson:"hourly_rate" validate:"gt=0,lte=1000"`
	AvailableDays      []string  `json:"available_days" bson:"available_days" validate:"omitempty,unique,dive,oneof=Mon Tue Wed Thu Fri Sat Sun"`
	AvailableTimeStart string    `json:"available_time_start" bson:"available_time_start" validate:"omitempty,clock"`
	AvailableTimeEnd   string    `json:"available_time_end" bson:"available_time_end" validate:"omitempty,clock"`
	City               string    `json:"city" bson:"city" validate:"required,min=2,max=80"`
	State              string    `json:"state" bson:"state" validate:"omitempty,max=80"`
	IsVerified         bool      `json:"is_verified" bson:"is_verified"`
	Rating             float64   `json:"rating" bson:"-"`
	ReviewCount        int       `json:"review_count" bson:"-"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

type ListingUpdate struct {
	Name               string    `json:"name,omitempty" validate:"omitempty,min=1,max=60"`
	Breed              string    `json:"breed,omitempty" validate:"omitempty,min=2,max=60"`
	Size               string    `json:"size,omitempty" validate:"omitempty,listing_size"`
	Age                *int      `json:"age,omitempty" validate:"omitempty,min=0,max=30"`
	Personalities      *[]string `json:"personalities,omitempty" validate:"omitempty,max=9,unique,dive,personality"`
	ActivityLevel      string    `json:"activity_level,omitempty" validate:"omitempty,activity_level"`
	Description        *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	ImageURLs          *[]string `json:"image_urls,omitempty" validate:"omitempty,max=10,dive,url"`
	HourlyRate         *float64  `json:"hourly_rate,omitempty" validate:"omitempty,gt=0,lte=1000"`
	AvailableDays      *[]string `json:"available_days,omitempty" validate:"omitempty,unique,dive,oneof=Mon Tue Wed Thu Fri Sat Sun"`
	AvailableTimeStart string    `json:"available_time_start,omitempty" validate:"omitempty,clock"`
	AvailableTimeEnd   string    `json:"available_time_end,omitempty" validate:"omitempty,clock"`
	City               string    `json:"city,omitempty" validate:"omitempty,min=2,max=80"`
	State              *string   `json:"state,omitempty" validate:"omitempty,max=80"`
}

// Review is left by a renter after a completed booking.
type Review struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID  string    `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`
	ListingID  string    `json:"dog_id" bson:"dog_id"`
	ReviewerID string    `json:"reviewer_id" bson:"reviewer_id"`
	Rating     int       `json:"rating" bson:"rating" validate:"required,min=1,max=5"`
	Comment    string    `json:"comment" bson:"comment" validate:"max=1000"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// RatingSummary is the aggregated view of a listing's reviews.
type RatingSummary struct {
	ListingID string  `bson:"_id"`
	Average   float64 `bson:"average"`
	Count     int     `bson:"count"`
}
