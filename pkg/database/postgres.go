package database

import (
	"log"

	"github.com/prasetyo/car-rental-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Car{}, &models.Booking{}, &models.Payment{}); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Partial index covering the blocking-overlap query: only confirmed and
	// active bookings participate in availability checks.
	db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bookings_blocking
		ON bookings (car_id, start_date, end_date)
		WHERE status IN ('confirmed', 'active')
	`)

	// One authoritative payment per booking. Historical failed/cancelled rows
	// are tolerated by the schema.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_authoritative
		ON payments (booking_id)
		WHERE payment_status NOT IN ('failed', 'cancelled')
	`)

	db.Exec(`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments (payment_status)`)

	return db
}
