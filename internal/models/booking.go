package models

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusActive    BookingStatus = "active"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// Blocking reports whether a booking in this status holds exclusive use of
// the car for its date range. Pending bookings do not block; they are covered
// by short-lived holds instead.
func (s BookingStatus) Blocking() bool {
	return s == StatusConfirmed || s == StatusActive
}

func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Booking struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null" json:"user_id"`
	CarID  uint `gorm:"not null" json:"car_id"`

	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null" json:"end_date"`
	TotalDays int       `gorm:"not null" json:"total_days"`

	// Pricing snapshot captured at creation time. Never recomputed from the
	// car's current rate.
	DailyRate   int64 `gorm:"not null" json:"daily_rate"`
	Subtotal    int64 `gorm:"not null" json:"subtotal"`
	TaxAmount   int64 `gorm:"not null" json:"tax_amount"`
	TotalAmount int64 `gorm:"not null" json:"total_amount"`

	Status BookingStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Notes  string        `json:"notes"`

	// HoldToken proves ownership of the redis hold taken at creation. Every
	// release path presents it so a lapsed hold cannot delete a rival's keys.
	HoldToken string `gorm:"type:varchar(36)" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Car     *Car     `gorm:"foreignKey:CarID" json:"car,omitempty"`
	Payment *Payment `gorm:"foreignKey:BookingID" json:"payment,omitempty"`
}

// RangesOverlap reports whether two inclusive date ranges share at least one
// day: [s1,e1] and [s2,e2] overlap iff s1 <= e2 && s2 <= e1.
func RangesOverlap(s1, e1, s2, e2 time.Time) bool {
	return !s1.After(e2) && !s2.After(e1)
}

func (b *Booking) IsPaid() bool {
	return b.Payment != nil && b.Payment.IsPaid()
}

// CanBeCancelled gates the renter-facing cancel action: only unpaid pending
// or confirmed bookings whose rental has not started yet.
func (b *Booking) CanBeCancelled(now time.Time) bool {
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return false
	}
	return b.StartDate.After(now) && !b.IsPaid()
}

func (b *Booking) CanBeRefunded(now time.Time) bool {
	if !b.IsPaid() {
		return false
	}
	if b.Status != StatusConfirmed && b.Status != StatusCancelled {
		return false
	}
	return b.StartDate.After(now)
}

func (b *Booking) IsActive(now time.Time) bool {
	return b.Status == StatusConfirmed &&
		!b.StartDate.After(now) && !b.EndDate.Before(now) &&
		b.IsPaid()
}

func (b *Booking) IsUpcoming(now time.Time) bool {
	return b.Status == StatusConfirmed && b.StartDate.After(now) && b.IsPaid()
}

func (b *Booking) IsCompleted(now time.Time) bool {
	return b.Status == StatusCompleted || (b.EndDate.Before(now) && b.IsPaid())
}
