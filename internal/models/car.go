package models

import "time"

type Car struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Brand        string    `gorm:"not null" json:"brand"`
	Model        string    `gorm:"not null" json:"model"`
	LicensePlate string    `gorm:"uniqueIndex;not null" json:"license_plate"`
	Year         int       `gorm:"not null" json:"year"`
	Seats        int       `gorm:"not null;default:5" json:"seats"`
	DailyRate    int64     `gorm:"not null" json:"daily_rate"`
	Description  string    `json:"description"`
	Image        string    `json:"image"`
	IsAvailable  bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
