// Package pricing turns a car's daily rate and a rental date range into the
// amounts persisted on the booking. Quotes are pure and deterministic: the
// result is written once as a contractual snapshot and must be reproducible
// for auditing.
package pricing

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidRange = errors.New("end date must be after start date")
	ErrInvalidRate  = errors.New("daily rate must be positive")
	ErrInvalidTax   = errors.New("tax rate must be between 0 and 1")
)

// Snapshot holds the priced breakdown of a rental. Amounts are in whole
// currency units (IDR has no sub-unit).
type Snapshot struct {
	TotalDays   int
	DailyRate   int64
	Subtotal    int64
	TaxAmount   int64
	TotalAmount int64
}

// Quote prices a rental of dailyRate per night over [start, end). A one-day
// rental has dates one calendar day apart: the end date is the checkout day
// and is not charged.
func Quote(dailyRate int64, start, end time.Time, taxRate float64) (Snapshot, error) {
	if dailyRate <= 0 {
		return Snapshot{}, ErrInvalidRate
	}
	if taxRate < 0 || taxRate > 1 {
		return Snapshot{}, ErrInvalidTax
	}

	days := DaysBetween(start, end)
	if days <= 0 {
		return Snapshot{}, ErrInvalidRange
	}

	subtotal := dailyRate * int64(days)
	tax := int64(math.Round(float64(subtotal) * taxRate))

	return Snapshot{
		TotalDays:   days,
		DailyRate:   dailyRate,
		Subtotal:    subtotal,
		TaxAmount:   tax,
		TotalAmount: subtotal + tax,
	}, nil
}

// DaysBetween returns the number of whole calendar days from start to end,
// ignoring the time-of-day and timezone components.
func DaysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s) / (24 * time.Hour))
}
