package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-flight-booking/internal/application"
	"github.com/sanosuguru/go-flight-booking/internal/domain/booking"
	"github.com/sanosuguru/go-flight-booking/internal/domain/flight"
	"github.com/sanosuguru/go-flight-booking/internal/domain/insurance"
	"github.com/sanosuguru/go-flight-booking/internal/domain/payment"
	"github.com/sanosuguru/go-flight-booking/internal/domain/seat"
)

type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type CreateBookingRequest struct {
	FlightID      string `json:"flight_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	InsuranceID   string `json:"insurance_id,omitempty" example:"ins-basic"`
	PassengerName string `json:"passenger_name" validate:"required" example:"山田太郎"`
	ContactEmail  string `json:"contact_email" validate:"required,email" example:"yamada@example.com"`
	ContactPhone  string `json:"contact_phone,omitempty" example:"090-1234-5678"`
	TravelDate    string `json:"travel_date" validate:"required" example:"2026-09-15"`
}

// PaymentOutcomeRequest はゲートウェイからの決済結果通知
type PaymentOutcomeRequest struct {
	PaymentID string `json:"payment_id" validate:"required" example:"pay_abc123"`
	OrderID   string `json:"order_id,omitempty" example:"order-2026-001"`
	Signature string `json:"signature,omitempty"`
	Status    string `json:"status" validate:"required,oneof=completed failed" example:"completed"`
}

type BookingResponse struct {
	ID              string     `json:"id" example:"BK-20260829120000-a1b2c3"`
	FlightID        string     `json:"flight_id"`
	PassengerName   string     `json:"passenger_name"`
	Status          string     `json:"status" example:"pending"`
	PaymentStatus   string     `json:"payment_status" example:"pending"`
	SeatNumber      *string    `json:"seat_number,omitempty" example:"12C"`
	FlightAmount    int        `json:"flight_amount" example:"30000"`
	InsuranceAmount int        `json:"insurance_amount" example:"500"`
	TotalAmount     int        `json:"total_amount" example:"30500"`
	TravelDate      time.Time  `json:"travel_date"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID: b.ID, FlightID: b.FlightID, PassengerName: b.PassengerName,
		Status: string(b.Status), PaymentStatus: string(b.PaymentStatus),
		SeatNumber: b.SeatNumber, FlightAmount: b.FlightAmount,
		InsuranceAmount: b.InsuranceAmount, TotalAmount: b.TotalAmount,
		TravelDate: b.TravelDate, ConfirmedAt: b.ConfirmedAt, CreatedAt: b.CreatedAt,
	}
}

// Create godoc
// @Summary 予約を作成
// @Description 予約を保留状態で作成します。座席は決済完了時に割り当てられます
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "便が予約受付中でない"
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	travelDate, err := time.Parse("2006-01-02", req.TravelDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "搭乗日は YYYY-MM-DD 形式で指定してください")
	}

	b, err := h.service.CreateBooking(c.Request().Context(), application.CreateBookingInput{
		FlightID:      req.FlightID,
		UserID:        c.Request().Header.Get("X-User-ID"),
		InsuranceID:   req.InsuranceID,
		PassengerName: req.PassengerName,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		TravelDate:    travelDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, flight.ErrFlightNotFound), errors.Is(err, insurance.ErrInsuranceNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, flight.ErrFlightNotBookable), errors.Is(err, insurance.ErrInsuranceNotActive):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// GetByID godoc
// @Summary 予約を取得
// @Description 指定IDの予約を取得します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	b, err := h.service.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// GetUserBookings godoc
// @Summary ユーザーの予約一覧を取得
// @Description ログインユーザーの予約一覧を取得します
// @Tags bookings
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Failure 401 {object} map[string]string
// @Router /bookings [get]
func (h *BookingHandler) GetUserBookings(c echo.Context) error {
	userID := c.Request().Header.Get("X-User-ID")
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	bookings, err := h.service.GetUserBookings(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// ApplyPayment godoc
// @Summary 決済結果を適用
// @Description ゲートウェイの決済結果を予約に適用します。完了なら座席を割り当てて確定、失敗ならキャンセルします
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "予約ID"
// @Param request body PaymentOutcomeRequest true "決済結果"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "満席または状態遷移の競合"
// @Failure 422 {object} map[string]string "署名検証失敗"
// @Router /bookings/{id}/payment [put]
func (h *BookingHandler) ApplyPayment(c echo.Context) error {
	var req PaymentOutcomeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	b, err := h.service.ApplyPaymentOutcome(c.Request().Context(), c.Param("id"), payment.Outcome{
		PaymentID: req.PaymentID,
		OrderID:   req.OrderID,
		Signature: req.Signature,
		Status:    req.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, payment.ErrVerificationFailed):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, seat.ErrNoSeatsAvailable),
			errors.Is(err, booking.ErrInvalidStateTransition),
			errors.Is(err, booking.ErrAllocationContention):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, payment.ErrInvalidOutcome):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Refund godoc
// @Summary 予約を返金
// @Description 確定済み予約を返金し、座席を解放します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "返金できない状態"
// @Router /bookings/{id}/refund [post]
func (h *BookingHandler) Refund(c echo.Context) error {
	b, err := h.service.RefundBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, booking.ErrInvalidStateTransition):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}
