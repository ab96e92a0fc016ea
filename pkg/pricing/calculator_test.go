package pricing

import (
	"errors"
	"math"
	"testing"
	"time"
)

var base = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		duration  time.Duration
		wantTotal float64
		wantHours float64
	}{
		{"two hours at 20", 20, 2 * time.Hour, 45, 2},
		{"ninety minutes at 15", 15, 90 * time.Minute, 27.5, 1.5},
		{"ten minutes at 30", 30, 10 * time.Minute, 10, 1.0 / 6},
		{"fractional rate", 12.34, time.Hour, 17.34, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Calculate(tt.rate, base, base.Add(tt.duration))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(q.Total-tt.wantTotal) > 1e-9 {
				t.Errorf("Total = %v, want %v", q.Total, tt.wantTotal)
			}
			if math.Abs(q.DurationHours-tt.wantHours) > 1e-9 {
				t.Errorf("DurationHours = %v, want %v", q.DurationHours, tt.wantHours)
			}
			if q.ServiceFee != ServiceFee {
				t.Errorf("ServiceFee = %v", q.ServiceFee)
			}
		})
	}
}

func TestCalculate_AlwaysAtLeastFee(t *testing.T) {
	q, err := Calculate(0.01, base, base.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if q.Total <= ServiceFee {
		t.Errorf("Total %v should exceed the service fee", q.Total)
	}
}

func TestCalculate_GrowsWithDurationAndRate(t *testing.T) {
	durations := []time.Duration{time.Minute, 30 * time.Minute, time.Hour, 90 * time.Minute, 8 * time.Hour, 72 * time.Hour}
	rates := []float64{0.5, 1, 12.34, 25, 100}

	for _, rate := range rates {
		prev := 0.0
		for _, d := range durations {
			q, err := Calculate(rate, base, base.Add(d))
			if err != nil {
				t.Fatalf("Calculate(%v, %v) error = %v", rate, d, err)
			}
			if q.Total <= prev {
				t.Errorf("rate %v: total for %v = %v, not above %v", rate, d, q.Total, prev)
			}
			prev = q.Total
		}
	}

	for _, d := range durations {
		prev := 0.0
		for _, rate := range rates {
			q, _ := Calculate(rate, base, base.Add(d))
			if q.Total <= prev {
				t.Errorf("duration %v: total at rate %v = %v, not above %v", d, rate, q.Total, prev)
			}
			prev = q.Total
		}
	}
}

func TestCalculate_TwoHoursAtTwentyFive(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	q, err := Calculate(25, start, start.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	d := q.Display()
	if d.Subtotal != "50.00" || d.ServiceFee != "5.00" || d.Total != "55.00" {
		t.Errorf("display = %+v, want 50.00 + 5.00 = 55.00", d)
	}
	if d.Duration != "2 hours" {
		t.Errorf("Duration = %s", d.Duration)
	}
}

func TestCalculate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{"end equals start", 20, base, base, ErrInvalidInterval},
		{"end before start", 20, base, base.Add(-time.Hour), ErrInvalidInterval},
		{"interval checked before rate", 0, base, base, ErrInvalidInterval},
		{"zero rate", 0, base, base.Add(time.Hour), ErrInvalidRate},
		{"negative rate", -5, base, base.Add(time.Hour), ErrInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(tt.rate, tt.start, tt.end)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuote_Display(t *testing.T) {
	q, err := Calculate(10, base, base.Add(20*time.Minute))
	if err != nil {
		t.Fatal(err)
	}

	d := q.Display()
	if d.Subtotal != "3.33" {
		t.Errorf("Subtotal = %s", d.Subtotal)
	}
	if d.Total != "8.33" {
		t.Errorf("Total = %s", d.Total)
	}
	if d.ServiceFee != "5.00" {
		t.Errorf("ServiceFee = %s", d.ServiceFee)
	}
}

func TestFormatHours(t *testing.T) {
	if got := FormatHours(1); got != "1 hour" {
		t.Errorf("FormatHours(1) = %s", got)
	}
	if got := FormatHours(2.5); got != "2.5 hours" {
		t.Errorf("FormatHours(2.5) = %s", got)
	}
}
