package repository

import (
	"context"
	"time"

	"github.com/prasetyo/car-rental-service/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error
	FindByBookingID(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.Payment, error)
	AttachSession(ctx context.Context, bookingID uint, sessionID string, raw datatypes.JSON) error
	MarkPaid(ctx context.Context, tx *gorm.DB, bookingID uint, transactionID string, paidAt time.Time, raw datatypes.JSON) (bool, error)
	MarkPaidManually(ctx context.Context, tx *gorm.DB, bookingID uint, paidAt time.Time) (bool, error)
	MarkExpired(ctx context.Context, tx *gorm.DB, bookingID uint, raw datatypes.JSON) (bool, error)
	UpdateStatusFrom(ctx context.Context, tx *gorm.DB, bookingID uint, from, to models.PaymentStatus, raw datatypes.JSON) (bool, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) FindByBookingID(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.Payment, error) {
	if tx == nil {
		tx = r.db
	}
	var payment models.Payment
	err := tx.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) AttachSession(ctx context.Context, bookingID uint, sessionID string, raw datatypes.JSON) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("booking_id = ?", bookingID).
		Updates(map[string]any{
			"transaction_id":   sessionID,
			"gateway_response": raw,
		}).Error
}

// MarkPaid flips the payment to paid with a conditional update. The
// payment_status <> 'paid' guard makes duplicate webhook deliveries a no-op
// at the data layer: the second delivery matches zero rows and returns false.
func (r *paymentRepository) MarkPaid(ctx context.Context, tx *gorm.DB, bookingID uint, transactionID string, paidAt time.Time, raw datatypes.JSON) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.Payment{}).
		Where("booking_id = ? AND payment_status <> ?", bookingID, models.PaymentPaid).
		Updates(map[string]any{
			"payment_status":   models.PaymentPaid,
			"paid_at":          paidAt,
			"transaction_id":   transactionID,
			"gateway_response": raw,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkPaidManually records an admin override that bypasses the gateway.
func (r *paymentRepository) MarkPaidManually(ctx context.Context, tx *gorm.DB, bookingID uint, paidAt time.Time) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.Payment{}).
		Where("booking_id = ? AND payment_status <> ?", bookingID, models.PaymentPaid).
		Updates(map[string]any{
			"payment_status": models.PaymentPaid,
			"payment_method": "manual",
			"paid_at":        paidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkExpired records a lapsed checkout session. Conditional on the payment
// still being pending so a late expiry delivery can never downgrade a
// captured payment.
func (r *paymentRepository) MarkExpired(ctx context.Context, tx *gorm.DB, bookingID uint, raw datatypes.JSON) (bool, error) {
	updates := map[string]any{"payment_status": models.PaymentExpired}
	if raw != nil {
		updates["gateway_response"] = raw
	}
	res := tx.WithContext(ctx).
		Model(&models.Payment{}).
		Where("booking_id = ? AND payment_status = ?", bookingID, models.PaymentPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateStatusFrom transitions the payment only from the expected status. A
// payment captured concurrently keeps its state; the caller learns whether
// the write landed from the return value.
func (r *paymentRepository) UpdateStatusFrom(ctx context.Context, tx *gorm.DB, bookingID uint, from, to models.PaymentStatus, raw datatypes.JSON) (bool, error) {
	updates := map[string]any{"payment_status": to}
	if raw != nil {
		updates["gateway_response"] = raw
	}
	res := tx.WithContext(ctx).
		Model(&models.Payment{}).
		Where("booking_id = ? AND payment_status = ?", bookingID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
