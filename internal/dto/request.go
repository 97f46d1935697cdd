package dto

import (
	"errors"
	"time"
)

const dateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("dates must be in YYYY-MM-DD format")

type CreateBookingRequest struct {
	CarID     uint   `json:"car_id" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Notes     string `json:"notes"`
}

// Dates parses the request's date strings. The range check itself belongs to
// the pricing layer.
func (r *CreateBookingRequest) Dates() (start, end time.Time, err error) {
	start, err = time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	end, err = time.Parse(dateLayout, r.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	return start, end, nil
}

type CarRequest struct {
	Brand        string `json:"brand" validate:"required"`
	Model        string `json:"model" validate:"required"`
	LicensePlate string `json:"license_plate" validate:"required"`
	Year         int    `json:"year" validate:"required,gt=1900"`
	Seats        int    `json:"seats" validate:"gt=0"`
	DailyRate    int64  `json:"daily_rate" validate:"required,gt=0"`
	Description  string `json:"description"`
	Image        string `json:"image"`
	IsAvailable  *bool  `json:"is_available"`
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type SetAvailabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}
