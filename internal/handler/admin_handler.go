package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prasetyo/car-rental-service/internal/dto"
	"github.com/prasetyo/car-rental-service/internal/middleware"
	"github.com/prasetyo/car-rental-service/internal/models"
	"github.com/prasetyo/car-rental-service/internal/repository"
	"github.com/prasetyo/car-rental-service/internal/service"
)

type AdminHandler struct {
	bookings service.BookingService
	cars     service.CarService
}

func NewAdminHandler(bookings service.BookingService, cars service.CarService) *AdminHandler {
	return &AdminHandler{bookings: bookings, cars: cars}
}

func (h *AdminHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/bookings", h.ListBookings)
	g.PATCH("/bookings/:id/status", h.UpdateBookingStatus)

	g.GET("/cars", h.ListCars)
	g.POST("/cars", h.CreateCar)
	g.PUT("/cars/:id", h.UpdateCar)
	g.PATCH("/cars/:id/availability", h.SetCarAvailability)
	g.DELETE("/cars/:id", h.DeleteCar)
}

func (h *AdminHandler) ListBookings(c echo.Context) error {
	filter := repository.BookingFilter{
		Status: models.BookingStatus(c.QueryParam("status")),
		Search: c.QueryParam("search"),
	}

	bookings, err := h.bookings.ListAll(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponses(bookings))
}

// UpdateBookingStatus drives the lifecycle from the admin dashboard. Each
// target status dispatches to the operation that enforces its own guards.
func (h *AdminHandler) UpdateBookingStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.UpdateBookingStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	var booking *models.Booking

	switch models.BookingStatus(req.Status) {
	case models.StatusConfirmed:
		booking, err = h.bookings.Confirm(ctx, id)
	case models.StatusActive:
		booking, err = h.bookings.Activate(ctx, id)
	case models.StatusCompleted:
		booking, err = h.bookings.Complete(ctx, id)
	case models.StatusCancelled:
		booking, err = h.bookings.Cancel(ctx, id, service.Actor{
			UserID: middleware.UserIDFromContext(c),
			Admin:  true,
		})
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}
	if err != nil {
		return mapBookingError(err)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *AdminHandler) ListCars(c echo.Context) error {
	cars, err := h.cars.ListAll(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.ToCarResponses(cars))
}

func carFromRequest(req *dto.CarRequest) *models.Car {
	car := &models.Car{
		Brand:        req.Brand,
		Model:        req.Model,
		LicensePlate: req.LicensePlate,
		Year:         req.Year,
		Seats:        req.Seats,
		DailyRate:    req.DailyRate,
		Description:  req.Description,
		Image:        req.Image,
		IsAvailable:  true,
	}
	if req.IsAvailable != nil {
		car.IsAvailable = *req.IsAvailable
	}
	return car
}

func (h *AdminHandler) CreateCar(c echo.Context) error {
	var req dto.CarRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Brand == "" || req.Model == "" || req.LicensePlate == "" || req.DailyRate <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "brand, model, license_plate and daily_rate are required")
	}

	car := carFromRequest(&req)
	if err := h.cars.Create(c.Request().Context(), car); err != nil {
		return mapBookingError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToCarResponse(car))
}

func (h *AdminHandler) UpdateCar(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.CarRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	car, err := h.cars.Update(c.Request().Context(), id, carFromRequest(&req))
	if err != nil {
		return mapBookingError(err)
	}

	return c.JSON(http.StatusOK, dto.ToCarResponse(car))
}

func (h *AdminHandler) SetCarAvailability(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.SetAvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	car, err := h.cars.SetAvailability(c.Request().Context(), id, req.IsAvailable)
	if err != nil {
		return mapBookingError(err)
	}

	return c.JSON(http.StatusOK, dto.ToCarResponse(car))
}

func (h *AdminHandler) DeleteCar(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.cars.Delete(c.Request().Context(), id); err != nil {
		return mapBookingError(err)
	}

	return c.NoContent(http.StatusNoContent)
}
