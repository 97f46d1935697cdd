package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/prasetyo/car-rental-service/internal/gateway"
	"github.com/prasetyo/car-rental-service/internal/hold"
	"github.com/prasetyo/car-rental-service/internal/models"
	"github.com/prasetyo/car-rental-service/internal/repository"
	"github.com/prasetyo/car-rental-service/pkg/rabbitmq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Reconciler consumes verified gateway events and settles them against the
// booking's payment state. HandleEvent returning nil acknowledges the
// delivery; an error asks the gateway to re-deliver later.
type Reconciler interface {
	HandleEvent(ctx context.Context, ev *gateway.Event) error
}

type reconcileService struct {
	bookings  repository.BookingRepository
	payments  repository.PaymentRepository
	holds     hold.Holder
	publisher *rabbitmq.Publisher
}

func NewReconcileService(
	bookings repository.BookingRepository,
	payments repository.PaymentRepository,
	holds hold.Holder,
	publisher *rabbitmq.Publisher,
) Reconciler {
	return &reconcileService{
		bookings:  bookings,
		payments:  payments,
		holds:     holds,
		publisher: publisher,
	}
}

func (s *reconcileService) HandleEvent(ctx context.Context, ev *gateway.Event) error {
	switch ev.Type {
	case gateway.EventCheckoutCompleted:
		return s.handleCompleted(ctx, ev)
	case gateway.EventCheckoutExpired:
		return s.handleExpired(ctx, ev)
	default:
		// Acknowledge without mutation so the gateway does not retry events
		// this system does not understand.
		log.Printf("[Reconcile] ignoring event type %q", ev.Type)
		return nil
	}
}

func bookingIDFromEvent(ev *gateway.Event) (uint, bool) {
	raw, ok := ev.Metadata["booking_id"]
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func (s *reconcileService) handleCompleted(ctx context.Context, ev *gateway.Event) error {
	bookingID, ok := bookingIDFromEvent(ev)
	if !ok {
		// Corrupted or unexpected gateway state; retrying cannot fix it.
		log.Printf("[Reconcile] no booking_id in session %s metadata", ev.SessionID)
		return nil
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Reconcile] booking %d not found for session %s", bookingID, ev.SessionID)
			return nil
		}
		return err
	}
	if booking.Payment == nil {
		log.Printf("[Reconcile] booking %d has no payment record (session %s)", bookingID, ev.SessionID)
		return nil
	}

	firstDelivery := false
	err = s.bookings.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The conditional update is the idempotency guard: a duplicate
		// delivery matches zero rows and changes nothing, even when two
		// deliveries race.
		updated, err := s.payments.MarkPaid(ctx, tx, bookingID, ev.SessionID, time.Now(), datatypes.JSON(ev.Raw))
		if err != nil {
			return err
		}
		if !updated {
			return nil
		}
		firstDelivery = true

		// Paired write: a paid payment behind a still-pending booking is a
		// state this handler must never leave behind.
		return s.bookings.UpdateStatus(ctx, tx, bookingID, models.StatusConfirmed)
	})
	if err != nil {
		log.Printf("[Reconcile] failed to settle booking %d (session %s): %v", bookingID, ev.SessionID, err)
		return err
	}

	if !firstDelivery {
		log.Printf("[Reconcile] payment for booking %d already processed, ignoring duplicate", bookingID)
		return nil
	}

	if err := s.holds.Release(ctx, booking.CarID, booking.StartDate, booking.EndDate, booking.HoldToken); err != nil {
		log.Printf("[Reconcile] failed to release hold for booking %d: %v", bookingID, err)
	}
	if s.publisher != nil {
		_ = s.publisher.Publish(rabbitmq.KeyBookingConfirmed, bookingEvent{
			BookingID:   booking.ID,
			UserID:      booking.UserID,
			CarID:       booking.CarID,
			Status:      models.StatusConfirmed,
			TotalAmount: booking.TotalAmount,
		})
	}

	log.Printf("[Reconcile] payment confirmed for booking %d (session %s)", bookingID, ev.SessionID)
	return nil
}

// handleExpired marks the payment expired and keeps the booking pending; the
// expiry sweep owns cancelling stale pending bookings.
func (s *reconcileService) handleExpired(ctx context.Context, ev *gateway.Event) error {
	bookingID, ok := bookingIDFromEvent(ev)
	if !ok {
		log.Printf("[Reconcile] no booking_id in expired session %s metadata", ev.SessionID)
		return nil
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Reconcile] booking %d not found for expired session %s", bookingID, ev.SessionID)
			return nil
		}
		return err
	}
	if booking.Payment == nil {
		log.Printf("[Reconcile] booking %d has no payment record (expired session %s)", bookingID, ev.SessionID)
		return nil
	}

	updated, err := s.payments.MarkExpired(ctx, s.bookings.GetDB(), bookingID, datatypes.JSON(ev.Raw))
	if err != nil {
		log.Printf("[Reconcile] failed to expire payment for booking %d: %v", bookingID, err)
		return err
	}
	if !updated {
		return nil
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(rabbitmq.KeyPaymentExpired, bookingEvent{
			BookingID:   booking.ID,
			UserID:      booking.UserID,
			CarID:       booking.CarID,
			Status:      booking.Status,
			TotalAmount: booking.TotalAmount,
		})
	}

	log.Printf("[Reconcile] payment expired for booking %d (session %s)", bookingID, ev.SessionID)
	return nil
}
