package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prasetyo/car-rental-service/internal/dto"
	"github.com/prasetyo/car-rental-service/internal/service"
)

type CarHandler struct {
	svc      service.CarService
	bookings service.BookingService
}

func NewCarHandler(svc service.CarService, bookings service.BookingService) *CarHandler {
	return &CarHandler{svc: svc, bookings: bookings}
}

func (h *CarHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.ListCars)
	g.GET("/:id", h.GetCar)
	g.GET("/:id/availability", h.CheckAvailability)
}

func (h *CarHandler) ListCars(c echo.Context) error {
	cars, err := h.svc.ListAvailable(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.ToCarResponses(cars))
}

func (h *CarHandler) GetCar(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	detail, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return mapBookingError(err)
	}

	return c.JSON(http.StatusOK, dto.ToCarDetailResponse(detail.Car, detail.Upcoming))
}

// CheckAvailability is advisory for the booking form; the authoritative
// conflict check runs again under the car lock when the booking is created.
func (h *CarHandler) CheckAvailability(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	start, err := time.Parse("2006-01-02", c.QueryParam("start_date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date must be in YYYY-MM-DD format")
	}
	end, err := time.Parse("2006-01-02", c.QueryParam("end_date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date must be in YYYY-MM-DD format")
	}

	conflicts, err := h.bookings.Conflicts(c.Request().Context(), id, start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToAvailabilityResponse(len(conflicts) == 0, conflicts))
}
