package service

import (
	"context"
	"errors"
	"time"

	"github.com/prasetyo/car-rental-service/internal/models"
	"github.com/prasetyo/car-rental-service/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCarHasBookings = errors.New("car has bookings and cannot be deleted")
	ErrPlateTaken     = errors.New("license plate is already registered")
)

// CarDetail bundles a car with its upcoming blocking bookings so callers can
// show when the car is next unavailable.
type CarDetail struct {
	Car      *models.Car
	Upcoming []models.Booking
}

type CarService interface {
	ListAvailable(ctx context.Context, search string) ([]models.Car, error)
	ListAll(ctx context.Context, search string) ([]models.Car, error)
	Get(ctx context.Context, id uint) (*CarDetail, error)
	Create(ctx context.Context, car *models.Car) error
	Update(ctx context.Context, id uint, car *models.Car) (*models.Car, error)
	Delete(ctx context.Context, id uint) error
	SetAvailability(ctx context.Context, id uint, available bool) (*models.Car, error)
}

type carService struct {
	cars     repository.CarRepository
	bookings repository.BookingRepository
}

func NewCarService(cars repository.CarRepository, bookings repository.BookingRepository) CarService {
	return &carService{cars: cars, bookings: bookings}
}

func (s *carService) ListAvailable(ctx context.Context, search string) ([]models.Car, error) {
	return s.cars.FindAvailable(ctx, search)
}

func (s *carService) ListAll(ctx context.Context, search string) ([]models.Car, error) {
	return s.cars.FindAll(ctx, search)
}

func (s *carService) Get(ctx context.Context, id uint) (*CarDetail, error) {
	car, err := s.cars.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCarNotFound
		}
		return nil, err
	}
	upcoming, err := s.bookings.FindUpcomingBlocking(ctx, id, time.Now())
	if err != nil {
		return nil, err
	}
	return &CarDetail{Car: car, Upcoming: upcoming}, nil
}

func (s *carService) Create(ctx context.Context, car *models.Car) error {
	if err := s.checkPlate(ctx, car.LicensePlate, 0); err != nil {
		return err
	}
	return s.cars.Create(ctx, car)
}

func (s *carService) Update(ctx context.Context, id uint, in *models.Car) (*models.Car, error) {
	car, err := s.cars.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCarNotFound
		}
		return nil, err
	}
	if in.LicensePlate != car.LicensePlate {
		if err := s.checkPlate(ctx, in.LicensePlate, id); err != nil {
			return nil, err
		}
	}

	car.Brand = in.Brand
	car.Model = in.Model
	car.LicensePlate = in.LicensePlate
	car.Year = in.Year
	car.Seats = in.Seats
	car.DailyRate = in.DailyRate
	car.Description = in.Description
	car.Image = in.Image
	car.IsAvailable = in.IsAvailable

	if err := s.cars.Update(ctx, car); err != nil {
		return nil, err
	}
	return car, nil
}

func (s *carService) Delete(ctx context.Context, id uint) error {
	if _, err := s.cars.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCarNotFound
		}
		return err
	}
	// Bookings keep their pricing snapshot but still reference the car row.
	has, err := s.bookings.ExistsForCar(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return ErrCarHasBookings
	}
	return s.cars.Delete(ctx, id)
}

func (s *carService) SetAvailability(ctx context.Context, id uint, available bool) (*models.Car, error) {
	car, err := s.cars.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCarNotFound
		}
		return nil, err
	}
	car.IsAvailable = available
	if err := s.cars.Update(ctx, car); err != nil {
		return nil, err
	}
	return car, nil
}

// checkPlate is a friendlier pre-check; the unique index on license_plate is
// the real guarantee.
func (s *carService) checkPlate(ctx context.Context, plate string, selfID uint) error {
	existing, err := s.cars.FindByPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return ErrPlateTaken
	}
	return nil
}
