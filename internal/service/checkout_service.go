package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prasetyo/car-rental-service/internal/gateway"
	"github.com/prasetyo/car-rental-service/internal/models"
	"github.com/prasetyo/car-rental-service/internal/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrAlreadyPaid = errors.New("booking has already been paid")

type CheckoutService interface {
	// Start creates a hosted checkout session for the booking's payment and
	// returns the redirect target.
	Start(ctx context.Context, bookingID, userID uint) (*gateway.CheckoutSession, error)
}

type checkoutService struct {
	bookings repository.BookingRepository
	payments repository.PaymentRepository
	gw       gateway.Gateway

	successURL string
	cancelURL  string

	checkoutTTL time.Duration
	timeout     time.Duration
}

func NewCheckoutService(
	bookings repository.BookingRepository,
	payments repository.PaymentRepository,
	gw gateway.Gateway,
	successURL, cancelURL string,
	checkoutTTL, timeout time.Duration,
) CheckoutService {
	return &checkoutService{
		bookings:    bookings,
		payments:    payments,
		gw:          gw,
		successURL:  successURL,
		cancelURL:   cancelURL,
		checkoutTTL: checkoutTTL,
		timeout:     timeout,
	}
}

func (s *checkoutService) Start(ctx context.Context, bookingID, userID uint) (*gateway.CheckoutSession, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrNotOwner
	}
	if booking.IsPaid() {
		return nil, ErrAlreadyPaid
	}
	if booking.Status != models.StatusPending {
		return nil, ErrInvalidTransition
	}

	description := fmt.Sprintf("Rental %s %s, %d days (%s - %s)",
		booking.Car.Brand, booking.Car.Model, booking.TotalDays,
		booking.StartDate.Format("02 Jan 2006"), booking.EndDate.Format("02 Jan 2006"))

	// Bounded call: on timeout the payment row stays pending, so the renter
	// can simply retry.
	gwCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sess, err := s.gw.CreateCheckoutSession(gwCtx, gateway.CheckoutRequest{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		CarID:       booking.CarID,
		Amount:      booking.TotalAmount,
		Description: description,
		SuccessURL:  s.successURL,
		CancelURL:   s.cancelURL,
		ExpiresAt:   time.Now().Add(s.checkoutTTL).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("start checkout for booking %d: %w", bookingID, err)
	}

	raw, _ := json.Marshal(map[string]string{
		"session_id":  sess.ID,
		"session_url": sess.URL,
	})
	if err := s.payments.AttachSession(ctx, booking.ID, sess.ID, datatypes.JSON(raw)); err != nil {
		return nil, fmt.Errorf("attach session to payment: %w", err)
	}

	return sess, nil
}
