package repository

import (
	"context"

	"github.com/prasetyo/car-rental-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CarRepository interface {
	Create(ctx context.Context, car *models.Car) error
	FindByID(ctx context.Context, id uint) (*models.Car, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Car, error)
	FindByPlate(ctx context.Context, plate string) (*models.Car, error)
	FindAvailable(ctx context.Context, search string) ([]models.Car, error)
	FindAll(ctx context.Context, search string) ([]models.Car, error)
	Update(ctx context.Context, car *models.Car) error
	Delete(ctx context.Context, id uint) error
}

type carRepository struct {
	db *gorm.DB
}

func NewCarRepository(db *gorm.DB) CarRepository {
	return &carRepository{db: db}
}

func (r *carRepository) Create(ctx context.Context, car *models.Car) error {
	return r.db.WithContext(ctx).Create(car).Error
}

func (r *carRepository) FindByID(ctx context.Context, id uint) (*models.Car, error) {
	var car models.Car
	if err := r.db.WithContext(ctx).First(&car, id).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

// FindByIDForUpdate acquires a row-level lock on the car within the given
// transaction. Serializes concurrent availability checks for the same car.
func (r *carRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Car, error) {
	var car models.Car
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&car, id).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *carRepository) FindByPlate(ctx context.Context, plate string) (*models.Car, error) {
	var car models.Car
	if err := r.db.WithContext(ctx).Where("license_plate = ?", plate).First(&car).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *carRepository) FindAvailable(ctx context.Context, search string) ([]models.Car, error) {
	q := r.db.WithContext(ctx).Where("is_available = ?", true)
	return r.list(applyCarSearch(q, search))
}

func (r *carRepository) FindAll(ctx context.Context, search string) ([]models.Car, error) {
	return r.list(applyCarSearch(r.db.WithContext(ctx), search))
}

func applyCarSearch(q *gorm.DB, search string) *gorm.DB {
	if search == "" {
		return q
	}
	pattern := "%" + search + "%"
	return q.Where("brand ILIKE ? OR model ILIKE ? OR license_plate ILIKE ?", pattern, pattern, pattern)
}

func (r *carRepository) list(q *gorm.DB) ([]models.Car, error) {
	var cars []models.Car
	if err := q.Order("created_at DESC").Find(&cars).Error; err != nil {
		return nil, err
	}
	return cars, nil
}

func (r *carRepository) Update(ctx context.Context, car *models.Car) error {
	return r.db.WithContext(ctx).Save(car).Error
}

func (r *carRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Car{}, id).Error
}
