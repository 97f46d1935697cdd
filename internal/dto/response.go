package dto

import (
	"time"

	"github.com/prasetyo/car-rental-service/internal/models"
)

type CarResponse struct {
	ID           uint   `json:"id"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	LicensePlate string `json:"license_plate"`
	Year         int    `json:"year"`
	Seats        int    `json:"seats"`
	DailyRate    int64  `json:"daily_rate"`
	Description  string `json:"description"`
	Image        string `json:"image"`
	IsAvailable  bool   `json:"is_available"`
}

type PaymentResponse struct {
	ID            uint       `json:"id"`
	Amount        int64      `json:"amount"`
	PaymentMethod string     `json:"payment_method"`
	PaymentStatus string     `json:"payment_status"`
	StatusLabel   string     `json:"status_label"`
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	IsPaid        bool       `json:"is_paid"`
	IsPending     bool       `json:"is_pending"`
}

type BookingResponse struct {
	ID     uint `json:"id"`
	UserID uint `json:"user_id"`
	CarID  uint `json:"car_id"`

	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	TotalDays int    `json:"total_days"`

	DailyRate   int64 `json:"daily_rate"`
	Subtotal    int64 `json:"subtotal"`
	TaxAmount   int64 `json:"tax_amount"`
	TotalAmount int64 `json:"total_amount"`

	Status      models.BookingStatus `json:"status"`
	StatusLabel string               `json:"status_label"`
	Notes       string               `json:"notes,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`

	CanCancel     bool `json:"can_cancel"`
	CanBeRefunded bool `json:"can_be_refunded"`

	Car     *CarResponse     `json:"car,omitempty"`
	Payment *PaymentResponse `json:"payment,omitempty"`
}

type CarDetailResponse struct {
	CarResponse
	UpcomingBookings []BookingPeriod `json:"upcoming_bookings"`
}

// BookingPeriod exposes only the blocked dates of someone else's booking.
type BookingPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type AvailabilityResponse struct {
	Available bool            `json:"available"`
	Conflicts []BookingPeriod `json:"conflicts"`
}

type CheckoutResponse struct {
	BookingID  uint   `json:"booking_id"`
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

var statusLabels = map[models.BookingStatus]string{
	models.StatusPending:   "Awaiting Payment",
	models.StatusConfirmed: "Confirmed",
	models.StatusActive:    "In Progress",
	models.StatusCompleted: "Completed",
	models.StatusCancelled: "Cancelled",
}

var paymentLabels = map[models.PaymentStatus]string{
	models.PaymentPending:   "Awaiting Payment",
	models.PaymentPaid:      "Paid",
	models.PaymentFailed:    "Failed",
	models.PaymentRefunded:  "Refunded",
	models.PaymentCancelled: "Cancelled",
	models.PaymentExpired:   "Expired",
}

func ToCarResponse(c *models.Car) CarResponse {
	return CarResponse{
		ID:           c.ID,
		Brand:        c.Brand,
		Model:        c.Model,
		LicensePlate: c.LicensePlate,
		Year:         c.Year,
		Seats:        c.Seats,
		DailyRate:    c.DailyRate,
		Description:  c.Description,
		Image:        c.Image,
		IsAvailable:  c.IsAvailable,
	}
}

func ToCarResponses(cars []models.Car) []CarResponse {
	out := make([]CarResponse, 0, len(cars))
	for i := range cars {
		out = append(out, ToCarResponse(&cars[i]))
	}
	return out
}

func ToPaymentResponse(p *models.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{
		ID:            p.ID,
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: string(p.PaymentStatus),
		StatusLabel:   paymentLabels[p.PaymentStatus],
		TransactionID: p.TransactionID,
		PaidAt:        p.PaidAt,
		IsPaid:        p.IsPaid(),
		IsPending:     p.IsPending(),
	}
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	now := time.Now()
	resp := BookingResponse{
		ID:            b.ID,
		UserID:        b.UserID,
		CarID:         b.CarID,
		StartDate:     b.StartDate.Format(dateLayout),
		EndDate:       b.EndDate.Format(dateLayout),
		TotalDays:     b.TotalDays,
		DailyRate:     b.DailyRate,
		Subtotal:      b.Subtotal,
		TaxAmount:     b.TaxAmount,
		TotalAmount:   b.TotalAmount,
		Status:        b.Status,
		StatusLabel:   statusLabels[b.Status],
		Notes:         b.Notes,
		CreatedAt:     b.CreatedAt,
		CanCancel:     b.CanBeCancelled(now),
		CanBeRefunded: b.CanBeRefunded(now),
		Payment:       ToPaymentResponse(b.Payment),
	}
	if b.Car != nil {
		car := ToCarResponse(b.Car)
		resp.Car = &car
	}
	return resp
}

func ToBookingResponses(bookings []models.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, ToBookingResponse(&bookings[i]))
	}
	return out
}

func ToAvailabilityResponse(available bool, conflicts []models.Booking) AvailabilityResponse {
	periods := make([]BookingPeriod, 0, len(conflicts))
	for i := range conflicts {
		periods = append(periods, BookingPeriod{
			StartDate: conflicts[i].StartDate.Format(dateLayout),
			EndDate:   conflicts[i].EndDate.Format(dateLayout),
		})
	}
	return AvailabilityResponse{Available: available, Conflicts: periods}
}

func ToCarDetailResponse(car *models.Car, upcoming []models.Booking) CarDetailResponse {
	periods := make([]BookingPeriod, 0, len(upcoming))
	for i := range upcoming {
		periods = append(periods, BookingPeriod{
			StartDate: upcoming[i].StartDate.Format(dateLayout),
			EndDate:   upcoming[i].EndDate.Format(dateLayout),
		})
	}
	return CarDetailResponse{
		CarResponse:      ToCarResponse(car),
		UpcomingBookings: periods,
	}
}
