package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/prasetyo/car-rental-service/internal/hold"
	"github.com/prasetyo/car-rental-service/internal/models"
	"github.com/prasetyo/car-rental-service/internal/pricing"
	"github.com/prasetyo/car-rental-service/internal/repository"
	"github.com/prasetyo/car-rental-service/pkg/rabbitmq"
	"gorm.io/gorm"
)

var (
	ErrCarNotFound       = errors.New("car not found")
	ErrCarUnavailable    = errors.New("car is not available for booking")
	ErrDateConflict      = errors.New("selected dates are not available")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrNotOwner          = errors.New("booking belongs to another user")
	ErrStartNotFuture    = errors.New("start date must be in the future")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Actor identifies who is driving a lifecycle operation. Cancellation is one
// operation parameterized by role; the refund-intent side effect applies to
// both roles.
type Actor struct {
	UserID uint
	Admin  bool
}

type CreateBookingInput struct {
	CarID     uint
	StartDate time.Time
	EndDate   time.Time
	Notes     string
}

type BookingService interface {
	Create(ctx context.Context, userID uint, in CreateBookingInput) (*models.Booking, error)
	Get(ctx context.Context, id uint) (*models.Booking, error)
	ListForUser(ctx context.Context, userID uint, filter repository.BookingFilter) ([]models.Booking, error)
	ListAll(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error)
	Conflicts(ctx context.Context, carID uint, start, end time.Time) ([]models.Booking, error)
	Confirm(ctx context.Context, id uint) (*models.Booking, error)
	Activate(ctx context.Context, id uint) (*models.Booking, error)
	Complete(ctx context.Context, id uint) (*models.Booking, error)
	Cancel(ctx context.Context, id uint, actor Actor) (*models.Booking, error)
	ExpirePending(ctx context.Context, olderThan time.Time) (int, error)
}

type bookingService struct {
	bookings  repository.BookingRepository
	cars      repository.CarRepository
	payments  repository.PaymentRepository
	holds     hold.Holder
	publisher *rabbitmq.Publisher

	taxRate     float64
	checkoutTTL time.Duration
}

func NewBookingService(
	bookings repository.BookingRepository,
	cars repository.CarRepository,
	payments repository.PaymentRepository,
	holds hold.Holder,
	publisher *rabbitmq.Publisher,
	taxRate float64,
	checkoutTTL time.Duration,
) BookingService {
	return &bookingService{
		bookings:    bookings,
		cars:        cars,
		payments:    payments,
		holds:       holds,
		publisher:   publisher,
		taxRate:     taxRate,
		checkoutTTL: checkoutTTL,
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *bookingService) Create(ctx context.Context, userID uint, in CreateBookingInput) (*models.Booking, error) {
	start := dateOnly(in.StartDate)
	end := dateOnly(in.EndDate)

	if !start.After(dateOnly(time.Now())) {
		return nil, ErrStartNotFuture
	}

	car, err := s.cars.FindByID(ctx, in.CarID)
	if err != nil {
		return nil, ErrCarNotFound
	}
	if !car.IsAvailable {
		return nil, ErrCarUnavailable
	}

	// Pricing snapshot: quoted once from the car's current rate and the
	// configured tax rate, then persisted verbatim.
	quote, err := pricing.Quote(car.DailyRate, start, end, s.taxRate)
	if err != nil {
		return nil, err
	}

	// Soft lock the date range for the checkout window so a rival pending
	// booking cannot take the same days while this one pays. The token is
	// persisted with the booking: only its owner can release the keys.
	token, err := s.holds.Acquire(ctx, car.ID, start, end, s.checkoutTTL)
	if err != nil {
		return nil, err
	}

	var result *models.Booking
	err = s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock on the car serializes concurrent check-then-insert for
		// the same car; without it two creates can both pass the conflict
		// check before either commits.
		if _, err := s.cars.FindByIDForUpdate(ctx, tx, car.ID); err != nil {
			return ErrCarNotFound
		}

		conflicts, err := s.bookings.FindBlockingOverlaps(ctx, tx, car.ID, start, end)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return ErrDateConflict
		}

		booking := &models.Booking{
			UserID:      userID,
			CarID:       car.ID,
			StartDate:   start,
			EndDate:     end,
			TotalDays:   quote.TotalDays,
			DailyRate:   quote.DailyRate,
			Subtotal:    quote.Subtotal,
			TaxAmount:   quote.TaxAmount,
			TotalAmount: quote.TotalAmount,
			Status:      models.StatusPending,
			Notes:       in.Notes,
			HoldToken:   token,
		}
		if err := s.bookings.Create(ctx, tx, booking); err != nil {
			return err
		}

		// Booking and payment are an atomic pair: one without the other is a
		// correctness violation, so both ride the same transaction.
		payment := &models.Payment{
			BookingID:     booking.ID,
			Amount:        quote.TotalAmount,
			PaymentMethod: "stripe",
			PaymentStatus: models.PaymentPending,
		}
		if err := s.payments.Create(ctx, tx, payment); err != nil {
			return err
		}

		booking.Payment = payment
		result = booking
		return nil
	})
	if err != nil {
		if relErr := s.holds.Release(ctx, car.ID, start, end, token); relErr != nil {
			log.Printf("[Booking] failed to release hold for car %d: %v", car.ID, relErr)
		}
		return nil, err
	}

	return result, nil
}

func (s *bookingService) Get(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListForUser(ctx context.Context, userID uint, filter repository.BookingFilter) ([]models.Booking, error) {
	return s.bookings.FindByUser(ctx, userID, filter)
}

func (s *bookingService) ListAll(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error) {
	return s.bookings.FindAll(ctx, filter)
}

// Conflicts returns the blocking bookings overlapping the proposed range, for
// display next to the booking form. Read-only; the authoritative check runs
// again under the car lock during Create.
func (s *bookingService) Conflicts(ctx context.Context, carID uint, start, end time.Time) ([]models.Booking, error) {
	return s.bookings.FindBlockingOverlaps(ctx, s.bookings.GetDB(), carID, dateOnly(start), dateOnly(end))
}

// Confirm is the admin override that bypasses the gateway: the booking is
// confirmed and its payment marked paid with method "manual".
func (s *bookingService) Confirm(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusPending {
		return nil, ErrInvalidTransition
	}

	err = s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		confirmed, err := s.bookings.UpdateStatusFrom(ctx, tx, id, models.StatusPending, models.StatusConfirmed)
		if err != nil {
			return err
		}
		if !confirmed {
			return ErrInvalidTransition
		}
		if booking.Payment != nil {
			if _, err := s.payments.MarkPaidManually(ctx, tx, id, time.Now()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.Status = models.StatusConfirmed
	s.releaseHold(ctx, booking)
	s.notify(rabbitmq.KeyBookingConfirmed, booking)

	return s.Get(ctx, id)
}

func (s *bookingService) Activate(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusConfirmed || !booking.IsPaid() {
		return nil, ErrInvalidTransition
	}

	activated, err := s.bookings.UpdateStatusFrom(ctx, s.bookings.GetDB(), id, models.StatusConfirmed, models.StatusActive)
	if err != nil {
		return nil, err
	}
	if !activated {
		return nil, ErrInvalidTransition
	}
	return s.Get(ctx, id)
}

func (s *bookingService) Complete(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusActive {
		return nil, ErrInvalidTransition
	}

	completed, err := s.bookings.UpdateStatusFrom(ctx, s.bookings.GetDB(), id, models.StatusActive, models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if !completed {
		return nil, ErrInvalidTransition
	}
	return s.Get(ctx, id)
}

func (s *bookingService) Cancel(ctx context.Context, id uint, actor Actor) (*models.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.Admin && booking.UserID != actor.UserID {
		return nil, ErrNotOwner
	}
	// An active rental cannot be cancelled by anyone, only completed.
	if booking.Status == models.StatusActive || booking.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	err = s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The status read above is stale inside the transaction; the predicate
		// on the write decides from current state.
		cancelled, err := s.bookings.UpdateStatusFrom(ctx, tx, id, booking.Status, models.StatusCancelled)
		if err != nil {
			return err
		}
		if !cancelled {
			return ErrInvalidTransition
		}
		if booking.Payment == nil {
			return nil
		}
		// A webhook can capture the payment between the read and this write.
		// A captured payment becomes refund intent, never cancelled; moving
		// the money back is an external concern.
		refunded, err := s.payments.UpdateStatusFrom(ctx, tx, id, models.PaymentPaid, models.PaymentRefunded, nil)
		if err != nil {
			return err
		}
		if !refunded {
			_, err = s.payments.UpdateStatusFrom(ctx, tx, id, models.PaymentPending, models.PaymentCancelled, nil)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	booking.Status = models.StatusCancelled
	s.releaseHold(ctx, booking)
	s.notify(rabbitmq.KeyBookingCancelled, booking)

	return s.Get(ctx, id)
}

// ExpirePending cancels pending bookings created before the cutoff whose
// payment was never captured, releasing their date ranges. Called by the
// background sweep.
func (s *bookingService) ExpirePending(ctx context.Context, olderThan time.Time) (int, error) {
	stale, err := s.bookings.FindStalePending(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		booking := &stale[i]
		if booking.IsPaid() {
			// Paid but still pending means a confirmation is in flight or a
			// webhook was lost; re-delivery owns it, not the sweep.
			continue
		}

		cancelled := false
		err := s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Conditional writes: a webhook landing between the scan and this
			// transaction wins, and the sweep must touch nothing.
			ok, err := s.bookings.UpdateStatusFrom(ctx, tx, booking.ID, models.StatusPending, models.StatusCancelled)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if booking.Payment != nil {
				if _, err := s.payments.MarkExpired(ctx, tx, booking.ID, nil); err != nil {
					return err
				}
			}
			cancelled = true
			return nil
		})
		if err != nil {
			log.Printf("[Booking] failed to expire booking %d: %v", booking.ID, err)
			continue
		}
		if !cancelled {
			continue
		}

		booking.Status = models.StatusCancelled
		s.releaseHold(ctx, booking)
		s.notify(rabbitmq.KeyBookingCancelled, booking)
		expired++
	}

	return expired, nil
}

func (s *bookingService) releaseHold(ctx context.Context, booking *models.Booking) {
	if err := s.holds.Release(ctx, booking.CarID, booking.StartDate, booking.EndDate, booking.HoldToken); err != nil {
		log.Printf("[Booking] failed to release hold for booking %d: %v", booking.ID, err)
	}
}

type bookingEvent struct {
	BookingID   uint                 `json:"booking_id"`
	UserID      uint                 `json:"user_id"`
	CarID       uint                 `json:"car_id"`
	Status      models.BookingStatus `json:"status"`
	TotalAmount int64                `json:"total_amount"`
}

// notify is fire-and-forget: a lost notification is not a processing failure.
func (s *bookingService) notify(routingKey string, booking *models.Booking) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(routingKey, bookingEvent{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		CarID:       booking.CarID,
		Status:      booking.Status,
		TotalAmount: booking.TotalAmount,
	})
}
