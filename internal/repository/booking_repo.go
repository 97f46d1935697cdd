package repository

import (
	"context"
	"time"

	"github.com/prasetyo/car-rental-service/internal/models"
	"gorm.io/gorm"
)

type BookingFilter struct {
	Status models.BookingStatus
	Search string
}

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByUser(ctx context.Context, userID uint, filter BookingFilter) ([]models.Booking, error)
	FindAll(ctx context.Context, filter BookingFilter) ([]models.Booking, error)
	FindBlockingOverlaps(ctx context.Context, tx *gorm.DB, carID uint, start, end time.Time) ([]models.Booking, error)
	FindUpcomingBlocking(ctx context.Context, carID uint, from time.Time) ([]models.Booking, error)
	FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error
	UpdateStatusFrom(ctx context.Context, tx *gorm.DB, bookingID uint, from, to models.BookingStatus) (bool, error)
	ExistsForCar(ctx context.Context, carID uint) (bool, error)
	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Car").
		Preload("Payment").
		First(&booking, id).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByUser(ctx context.Context, userID uint, filter BookingFilter) ([]models.Booking, error) {
	q := r.db.WithContext(ctx).
		Preload("Car").
		Preload("Payment").
		Where("bookings.user_id = ?", userID)
	return r.list(applyBookingFilter(q, filter))
}

func (r *bookingRepository) FindAll(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	q := r.db.WithContext(ctx).
		Preload("Car").
		Preload("Payment")
	return r.list(applyBookingFilter(q, filter))
}

func applyBookingFilter(q *gorm.DB, filter BookingFilter) *gorm.DB {
	if filter.Status != "" {
		q = q.Where("bookings.status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Joins("JOIN cars ON cars.id = bookings.car_id").
			Where("cars.brand ILIKE ? OR cars.model ILIKE ? OR cars.license_plate ILIKE ?",
				pattern, pattern, pattern)
	}
	return q
}

func (r *bookingRepository) list(q *gorm.DB) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := q.Order("bookings.created_at DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// FindBlockingOverlaps returns confirmed or active bookings for the car whose
// inclusive date range overlaps [start, end]. The overlap test is the single
// inequality start <= existing_end AND existing_start <= end, which covers
// every partial-overlap sub-case the naive three-clause form can miss.
func (r *bookingRepository) FindBlockingOverlaps(ctx context.Context, tx *gorm.DB, carID uint, start, end time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := tx.WithContext(ctx).
		Where("car_id = ? AND status IN ?", carID, []models.BookingStatus{models.StatusConfirmed, models.StatusActive}).
		Where("start_date <= ? AND end_date >= ?", end, start).
		Order("start_date ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindUpcomingBlocking(ctx context.Context, carID uint, from time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("car_id = ? AND status IN ?", carID, []models.BookingStatus{models.StatusConfirmed, models.StatusActive}).
		Where("end_date >= ?", from).
		Order("start_date ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// FindStalePending returns pending bookings created before the cutoff whose
// payment was never captured. Input for the expiry sweep.
func (r *bookingRepository) FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Payment").
		Where("status = ? AND created_at < ?", models.StatusPending, cutoff).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("status", status).Error
}

// UpdateStatusFrom writes the transition only while the booking is still in
// the expected state, reporting whether the row was written. The predicate
// runs at the data layer: callers deciding from an earlier read cannot
// overwrite a transition that landed in between.
func (r *bookingRepository) UpdateStatusFrom(ctx context.Context, tx *gorm.DB, bookingID uint, from, to models.BookingStatus) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *bookingRepository) ExistsForCar(ctx context.Context, carID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("car_id = ?", carID).
		Count(&count).Error
	return count > 0, err
}
