package gateway

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrInvalidSignature = errors.New("webhook signature verification failed")

// Event kinds delivered by the hosted checkout provider.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

type CheckoutRequest struct {
	BookingID uint
	UserID    uint
	CarID     uint

	// Amount in whole currency units; the gateway adapter converts to the
	// provider's smallest unit.
	Amount      int64
	Description string

	SuccessURL string
	CancelURL  string
	ExpiresAt  int64
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified webhook delivery. Metadata carries the identifiers the
// service attached when the session was created; Raw is the provider's
// session payload, retained for audit.
type Event struct {
	Type      string
	SessionID string
	Metadata  map[string]string
	Raw       json.RawMessage
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// VerifyWebhook authenticates the raw delivery against the shared secret
	// before anything is parsed. Fails closed with ErrInvalidSignature.
	VerifyWebhook(payload []byte, signatureHeader string) (*Event, error)
}
