package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-flight-booking/internal/application"
	"github.com/sanosuguru/go-flight-booking/internal/domain/flight"
)

type FlightHandler struct {
	service FlightServiceInterface
}

func NewFlightHandler(s FlightServiceInterface) *FlightHandler {
	return &FlightHandler{service: s}
}

type DiscountRequest struct {
	Type  string `json:"type" validate:"required,oneof=percentage fixed" example:"percentage"`
	Value int    `json:"value" validate:"min=0" example:"20"`
}

type CreateFlightRequest struct {
	FlightNumber string           `json:"flight_number" validate:"required" example:"NH006"`
	Origin       string           `json:"origin" validate:"required" example:"HND"`
	Destination  string           `json:"destination" validate:"required" example:"SFO"`
	DepartureAt  time.Time        `json:"departure_at" validate:"required"`
	ArrivalAt    time.Time        `json:"arrival_at" validate:"required"`
	Price        int              `json:"price" validate:"min=0" example:"120000"`
	TotalSeats   int              `json:"total_seats" validate:"required,min=1,max=400" example:"180"`
	Columns      int              `json:"columns,omitempty" validate:"min=0,max=10" example:"6"`
	Discount     *DiscountRequest `json:"discount,omitempty"`
}

type UpdateFlightRequest struct {
	Price    *int             `json:"price,omitempty" validate:"omitempty,min=0"`
	Active   *bool            `json:"active,omitempty"`
	Discount *DiscountRequest `json:"discount,omitempty"`
}

type FlightResponse struct {
	ID             string    `json:"id"`
	FlightNumber   string    `json:"flight_number" example:"NH006"`
	Origin         string    `json:"origin" example:"HND"`
	Destination    string    `json:"destination" example:"SFO"`
	DepartureAt    time.Time `json:"departure_at"`
	ArrivalAt      time.Time `json:"arrival_at"`
	Price          int       `json:"price" example:"120000"`
	CurrentPrice   int       `json:"current_price" example:"96000"`
	TotalSeats     int       `json:"total_seats" example:"180"`
	AvailableSeats int       `json:"available_seats" example:"42"`
	MatrixRows     int       `json:"matrix_rows" example:"30"`
	MatrixColumns  int       `json:"matrix_columns" example:"6"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

type AvailabilityResponse struct {
	FlightID       string `json:"flight_id"`
	AvailableSeats int    `json:"available_seats" example:"42"`
}

func toFlightResponse(f *flight.Flight) FlightResponse {
	return FlightResponse{
		ID: f.ID, FlightNumber: f.FlightNumber,
		Origin: f.Origin, Destination: f.Destination,
		DepartureAt: f.DepartureAt, ArrivalAt: f.ArrivalAt,
		Price: f.Price, CurrentPrice: f.DiscountedPrice(),
		TotalSeats: f.TotalSeats, AvailableSeats: f.AvailableSeats,
		MatrixRows: f.Matrix.Rows, MatrixColumns: f.Matrix.Columns,
		Active: f.Active, CreatedAt: f.CreatedAt,
	}
}

func toDiscount(req *DiscountRequest) *flight.Discount {
	if req == nil {
		return nil
	}
	return &flight.Discount{
		HasDiscount: true,
		Type:        flight.DiscountType(req.Type),
		Value:       req.Value,
	}
}

// Create godoc
// @Summary 便を作成
// @Description 新しい便と座席マトリクスを作成します
// @Tags flights
// @Accept json
// @Produce json
// @Param request body CreateFlightRequest true "便情報"
// @Success 201 {object} FlightResponse
// @Failure 400 {object} map[string]string
// @Router /flights [post]
func (h *FlightHandler) Create(c echo.Context) error {
	var req CreateFlightRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	f, err := h.service.CreateFlight(c.Request().Context(), application.CreateFlightInput{
		FlightNumber: req.FlightNumber,
		Origin:       req.Origin,
		Destination:  req.Destination,
		DepartureAt:  req.DepartureAt,
		ArrivalAt:    req.ArrivalAt,
		Price:        req.Price,
		TotalSeats:   req.TotalSeats,
		Columns:      req.Columns,
		Discount:     toDiscount(req.Discount),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, toFlightResponse(f))
}

// GetByID godoc
// @Summary 便を取得
// @Description 指定IDの便を取得します
// @Tags flights
// @Produce json
// @Param id path string true "便ID"
// @Success 200 {object} FlightResponse
// @Failure 404 {object} map[string]string
// @Router /flights/{id} [get]
func (h *FlightHandler) GetByID(c echo.Context) error {
	f, err := h.service.GetFlight(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, flight.ErrFlightNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toFlightResponse(f))
}

// List godoc
// @Summary 便一覧を取得
// @Description 便の一覧を取得します
// @Tags flights
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} FlightResponse
// @Router /flights [get]
func (h *FlightHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	flights, err := h.service.ListFlights(c.Request().Context(), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]FlightResponse, len(flights))
	for i, f := range flights {
		resp[i] = toFlightResponse(f)
	}
	return c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary 便を更新
// @Description 便の運賃・販売状態・割引を更新します
// @Tags flights
// @Accept json
// @Produce json
// @Param id path string true "便ID"
// @Param request body UpdateFlightRequest true "更新情報"
// @Success 200 {object} FlightResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /flights/{id} [put]
func (h *FlightHandler) Update(c echo.Context) error {
	var req UpdateFlightRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	f, err := h.service.UpdateFlight(c.Request().Context(), c.Param("id"), application.UpdateFlightInput{
		Price:    req.Price,
		Active:   req.Active,
		Discount: toDiscount(req.Discount),
	})
	if err != nil {
		if errors.Is(err, flight.ErrFlightNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, toFlightResponse(f))
}

// GetAvailability godoc
// @Summary 空席数を取得
// @Description 便の空席数を取得します（キャッシュ利用）
// @Tags flights
// @Produce json
// @Param id path string true "便ID"
// @Success 200 {object} AvailabilityResponse
// @Failure 404 {object} map[string]string
// @Router /flights/{id}/availability [get]
func (h *FlightHandler) GetAvailability(c echo.Context) error {
	id := c.Param("id")
	count, err := h.service.CountAvailableSeats(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, flight.ErrFlightNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{FlightID: id, AvailableSeats: count})
}
