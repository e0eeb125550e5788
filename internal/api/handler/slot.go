package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
)

type SlotHandler struct {
	service SlotServiceInterface
}

func NewSlotHandler(s SlotServiceInterface) *SlotHandler {
	return &SlotHandler{service: s}
}

type SlotResponse struct {
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Available bool      `json:"available"`
}

type SlotListResponse struct {
	SpaceID string         `json:"space_id"`
	Date    string         `json:"date"`
	Slots   []SlotResponse `json:"slots"`
}

func toSlotResponses(slots []space.Slot) []SlotResponse {
	resp := make([]SlotResponse, len(slots))
	for i, s := range slots {
		resp[i] = SlotResponse{StartAt: s.Start, EndAt: s.End, Available: s.Available}
	}
	return resp
}

// List godoc
// @Summary 空き枠を取得
// @Description 指定日の利用可能時間帯を固定長の枠に分割し、空き状況を返します
// @Tags spaces
// @Produce json
// @Param id path string true "施設ID"
// @Param date query string true "日付（YYYY-MM-DD、予約タイムゾーン）"
// @Success 200 {object} SlotListResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /spaces/{id}/slots [get]
func (h *SlotHandler) List(c echo.Context) error {
	raw := c.QueryParam("date")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "dateは必須です")
	}
	date, err := h.service.ParseDate(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "日付の形式が不正です（YYYY-MM-DD）")
	}

	spaceID := c.Param("id")
	slots, err := h.service.ListAvailableSlots(c.Request().Context(), spaceID, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SlotListResponse{
		SpaceID: spaceID,
		Date:    raw,
		Slots:   toSlotResponses(slots),
	})
}
