package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prasetyo/car-rental-service/internal/dto"
	"github.com/prasetyo/car-rental-service/internal/hold"
	"github.com/prasetyo/car-rental-service/internal/middleware"
	"github.com/prasetyo/car-rental-service/internal/models"
	"github.com/prasetyo/car-rental-service/internal/pricing"
	"github.com/prasetyo/car-rental-service/internal/repository"
	"github.com/prasetyo/car-rental-service/internal/service"
)

type BookingHandler struct {
	svc      service.BookingService
	checkout service.CheckoutService
}

func NewBookingHandler(svc service.BookingService, checkout service.CheckoutService) *BookingHandler {
	return &BookingHandler{svc: svc, checkout: checkout}
}

func (h *BookingHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateBooking)
	g.GET("", h.ListBookings)
	g.GET("/:id", h.GetBooking)
	g.DELETE("/:id", h.CancelBooking)
	g.POST("/:id/checkout", h.StartCheckout)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CarID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "car_id is required")
	}
	start, end, err := req.Dates()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	booking, err := h.svc.Create(c.Request().Context(), middleware.UserIDFromContext(c), service.CreateBookingInput{
		CarID:     req.CarID,
		StartDate: start,
		EndDate:   end,
		Notes:     req.Notes,
	})
	if err != nil {
		return mapBookingError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ListBookings(c echo.Context) error {
	filter := repository.BookingFilter{
		Status: models.BookingStatus(c.QueryParam("status")),
		Search: c.QueryParam("search"),
	}

	bookings, err := h.svc.ListForUser(c.Request().Context(), middleware.UserIDFromContext(c), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponses(bookings))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return mapBookingError(err)
	}
	if booking.UserID != middleware.UserIDFromContext(c) && !middleware.IsAdmin(c) {
		// Indistinguishable from a missing booking on purpose.
		return echo.NewHTTPError(http.StatusNotFound, service.ErrBookingNotFound.Error())
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	actor := service.Actor{
		UserID: middleware.UserIDFromContext(c),
		Admin:  middleware.IsAdmin(c),
	}
	booking, err := h.svc.Cancel(c.Request().Context(), id, actor)
	if err != nil {
		return mapBookingError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) StartCheckout(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	session, err := h.checkout.Start(c.Request().Context(), id, middleware.UserIDFromContext(c))
	if err != nil {
		return mapBookingError(err)
	}

	return c.JSON(http.StatusOK, dto.CheckoutResponse{
		BookingID:  id,
		SessionID:  session.ID,
		SessionURL: session.URL,
	})
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func mapBookingError(err error) error {
	switch {
	case errors.Is(err, service.ErrCarNotFound),
		errors.Is(err, service.ErrBookingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrDateConflict),
		errors.Is(err, hold.ErrDatesHeld),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrCarHasBookings),
		errors.Is(err, service.ErrPlateTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrCarUnavailable),
		errors.Is(err, service.ErrStartNotFuture),
		errors.Is(err, pricing.ErrInvalidRange),
		errors.Is(err, pricing.ErrInvalidRate),
		errors.Is(err, pricing.ErrInvalidTax):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
