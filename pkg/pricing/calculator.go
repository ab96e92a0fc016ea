// Package pricing computes what a renter pays for a booking.
package pricing

import (
	"errors"
	"fmt"
	"time"
)

// ServiceFee is the flat platform fee added to every booking.
const ServiceFee = 5.00

var (
	ErrInvalidInterval = errors.New("end time must be after start time")
	ErrInvalidRate     = errors.New("hourly rate must be positive")
)

// Quote is the price breakdown for a booking interval. Values keep full
// precision; use Display for two-decimal strings.
type Quote struct {
	HourlyRate    float64 `json:"hourly_rate"`
	DurationHours float64 `json:"duration_hours"`
	Subtotal      float64 `json:"subtotal"`
	ServiceFee    float64 `json:"service_fee"`
	Total         float64 `json:"total"`
}

// Calculate prices the interval [start, end) at rate per hour.
func Calculate(rate float64, start, end time.Time) (Quote, error) {
	if !end.After(start) {
		return Quote{}, ErrInvalidInterval
	}
	if rate <= 0 {
		return Quote{}, ErrInvalidRate
	}

	hours := end.Sub(start).Hours()
	subtotal := hours * rate
	return Quote{
		HourlyRate:    rate,
		DurationHours: hours,
		Subtotal:      subtotal,
		ServiceFee:    ServiceFee,
		Total:         subtotal + ServiceFee,
	}, nil
}

// Display is the quote as presented to users.
type Display struct {
	Duration   string `json:"duration"`
	Subtotal   string `json:"subtotal"`
	ServiceFee string `json:"service_fee"`
	Total      string `json:"total"`
}

func (q Quote) Display() Display {
	return Display{
		Duration:   FormatHours(q.DurationHours),
		Subtotal:   FormatMoney(q.Subtotal),
		ServiceFee: FormatMoney(q.ServiceFee),
		Total:      FormatMoney(q.Total),
	}
}

func FormatMoney(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// FormatHours renders a duration such as 1.5 as "1.5 hours".
func FormatHours(hours float64) string {
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%g hours", hours)
}
