package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prasetyo/car-rental-service/internal/gateway"
	"github.com/prasetyo/car-rental-service/internal/service"
)

type WebhookHandler struct {
	gw         gateway.Gateway
	reconciler service.Reconciler
}

func NewWebhookHandler(gw gateway.Gateway, reconciler service.Reconciler) *WebhookHandler {
	return &WebhookHandler{gw: gw, reconciler: reconciler}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/webhooks/stripe", h.HandleStripe)
}

// HandleStripe verifies the signature over the raw body before anything else;
// an unverified payload never reaches business logic.
func (h *WebhookHandler) HandleStripe(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	event, err := h.gw.VerifyWebhook(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.reconciler.HandleEvent(c.Request().Context(), event); err != nil {
		// Non-2xx asks the gateway to re-deliver; only transient processing
		// failures land here.
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"received": "true"})
}
