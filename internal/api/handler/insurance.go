package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-flight-booking/internal/application"
	"github.com/sanosuguru/go-flight-booking/internal/domain/insurance"
)

type InsuranceHandler struct {
	service InsuranceServiceInterface
}

func NewInsuranceHandler(s InsuranceServiceInterface) *InsuranceHandler {
	return &InsuranceHandler{service: s}
}

type CreateInsuranceRequest struct {
	Name        string `json:"name" validate:"required" example:"安心プラン"`
	Description string `json:"description,omitempty" example:"遅延・欠航時に全額補償"`
	Price       int    `json:"price" validate:"min=0" example:"500"`
}

type InsuranceResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name" example:"安心プラン"`
	Description string `json:"description,omitempty"`
	Price       int    `json:"price" example:"500"`
	Active      bool   `json:"active"`
}

func toInsuranceResponse(i *insurance.Insurance) InsuranceResponse {
	return InsuranceResponse{
		ID: i.ID, Name: i.Name, Description: i.Description,
		Price: i.Price, Active: i.Active,
	}
}

// Create godoc
// @Summary 保険プランを作成
// @Tags insurances
// @Accept json
// @Produce json
// @Param request body CreateInsuranceRequest true "保険プラン情報"
// @Success 201 {object} InsuranceResponse
// @Failure 400 {object} map[string]string
// @Router /insurances [post]
func (h *InsuranceHandler) Create(c echo.Context) error {
	var req CreateInsuranceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ins, err := h.service.CreateInsurance(c.Request().Context(), application.CreateInsuranceInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, toInsuranceResponse(ins))
}

// GetByID godoc
// @Summary 保険プランを取得
// @Tags insurances
// @Produce json
// @Param id path string true "保険プランID"
// @Success 200 {object} InsuranceResponse
// @Failure 404 {object} map[string]string
// @Router /insurances/{id} [get]
func (h *InsuranceHandler) GetByID(c echo.Context) error {
	ins, err := h.service.GetInsurance(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, insurance.ErrInsuranceNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toInsuranceResponse(ins))
}

// List godoc
// @Summary 販売中の保険プラン一覧を取得
// @Tags insurances
// @Produce json
// @Success 200 {array} InsuranceResponse
// @Router /insurances [get]
func (h *InsuranceHandler) List(c echo.Context) error {
	list, err := h.service.ListInsurances(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]InsuranceResponse, len(list))
	for i, ins := range list {
		resp[i] = toInsuranceResponse(ins)
	}
	return c.JSON(http.StatusOK, resp)
}
