package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-amenity-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-amenity-reservation/internal/application"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/reservation"
)

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type CreateReservationRequest struct {
	SpaceID        string  `json:"space_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	UnitID         string  `json:"unit_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440001"`
	Title          string  `json:"title" validate:"required" example:"誕生日会"`
	StartAt        string  `json:"start_at" validate:"required" example:"2026-10-19T10:00:00+09:00"`
	EndAt          string  `json:"end_at" validate:"required" example:"2026-10-19T12:00:00+09:00"`
	ExpectedGuests int     `json:"expected_guests" validate:"gt=0" example:"20"`
	Notes          *string `json:"notes,omitempty"`
}

// ReasonRequest は却下・キャンセル時の理由
type ReasonRequest struct {
	Reason string `json:"reason" example:"設備点検のため"`
}

type ReservationResponse struct {
	ID                 string     `json:"id"`
	SpaceID            string     `json:"space_id"`
	UnitID             string     `json:"unit_id"`
	ResidentID         string     `json:"resident_id"`
	Title              string     `json:"title"`
	StartAt            time.Time  `json:"start_at"`
	EndAt              time.Time  `json:"end_at"`
	ExpectedGuests     int        `json:"expected_guests"`
	Notes              *string    `json:"notes,omitempty"`
	Status             string     `json:"status" example:"pending_approval"`
	ApprovedBy         *string    `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	RejectedBy         *string    `json:"rejected_by,omitempty"`
	RejectedAt         *time.Time `json:"rejected_at,omitempty"`
	RejectionReason    *string    `json:"rejection_reason,omitempty"`
	CanceledBy         *string    `json:"canceled_by,omitempty"`
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	LateCancellation   bool       `json:"late_cancellation,omitempty"`
	CheckedInAt        *time.Time `json:"checked_in_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	NoShowBy           *string    `json:"no_show_by,omitempty"`
	NoShowAt           *time.Time `json:"no_show_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID: r.ID, SpaceID: r.SpaceID, UnitID: r.UnitID, ResidentID: r.ResidentID,
		Title: r.Title, StartAt: r.StartAt, EndAt: r.EndAt,
		ExpectedGuests: r.ExpectedGuests, Notes: r.Notes, Status: string(r.Status),
		ApprovedBy: r.ApprovedBy, ApprovedAt: r.ApprovedAt,
		RejectedBy: r.RejectedBy, RejectedAt: r.RejectedAt, RejectionReason: r.RejectionReason,
		CanceledBy: r.CanceledBy, CanceledAt: r.CanceledAt, CancellationReason: r.CancellationReason,
		LateCancellation: r.LateCancellation,
		CheckedInAt: r.CheckedInAt, CompletedAt: r.CompletedAt,
		NoShowBy: r.NoShowBy, NoShowAt: r.NoShowAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func toReservationResponses(list []*reservation.Reservation) []ReservationResponse {
	resp := make([]ReservationResponse, len(list))
	for i, r := range list {
		resp[i] = toReservationResponse(r)
	}
	return resp
}

// Create godoc
// @Summary 予約を申請
// @Description 受付条件を満たせば、承認制の施設は pending_approval、それ以外は confirmed で作成します
// @Tags reservations
// @Accept json
// @Produce json
// @Param X-User-ID header string true "居住者ID"
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "時間帯の重複・利用停止・処理中"
// @Failure 422 {object} api.ErrorResponse "予約ポリシー違反"
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	startAt, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "開始時刻の形式が不正です")
	}
	endAt, err := time.Parse(time.RFC3339, req.EndAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "終了時刻の形式が不正です")
	}

	r, err := h.service.CreateReservation(c.Request().Context(), application.CreateReservationInput{
		SpaceID:        req.SpaceID,
		UnitID:         req.UnitID,
		ResidentID:     middleware.ActorID(c),
		Title:          req.Title,
		StartAt:        startAt,
		EndAt:          endAt,
		ExpectedGuests: req.ExpectedGuests,
		Notes:          req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

// GetByID godoc
// @Summary 予約を取得
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	r, err := h.service.GetReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// ListByUnit godoc
// @Summary 住戸の予約一覧
// @Tags reservations
// @Produce json
// @Param unit_id path string true "住戸ID"
// @Param status query string false "状態（カンマ区切り）"
// @Param from query string false "開始（RFC3339）"
// @Param to query string false "終了（RFC3339）"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ReservationResponse
// @Router /units/{unit_id}/reservations [get]
func (h *ReservationHandler) ListByUnit(c echo.Context) error {
	input := application.ListReservationsInput{UnitID: c.Param("unit_id")}

	if v := c.QueryParam("status"); v != "" {
		for _, raw := range strings.Split(v, ",") {
			s, err := reservation.ParseStatus(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			input.Statuses = append(input.Statuses, s)
		}
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &input.From}, {"to", &input.To}} {
		v := c.QueryParam(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, p.name+"の形式が不正です")
		}
		*p.dst = &t
	}
	input.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	input.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	list, err := h.service.ListUnitReservations(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponses(list))
}

// Events godoc
// @Summary 予約のイベント履歴
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {array} reservation.Event
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/{id}/events [get]
func (h *ReservationHandler) Events(c echo.Context) error {
	events, err := h.service.ListReservationEvents(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

// Approve godoc
// @Summary 予約を承認
// @Description 承認待ちの予約を確定します。承認時点で時間帯の重複を再確認します
// @Tags reservations
// @Produce json
// @Param X-User-ID header string true "管理者ID"
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /reservations/{id}/approve [post]
func (h *ReservationHandler) Approve(c echo.Context) error {
	return h.respond(c)(h.service.ApproveReservation(c.Request().Context(), c.Param("id"), middleware.ActorID(c)))
}

// Reject godoc
// @Summary 予約を却下
// @Tags reservations
// @Accept json
// @Produce json
// @Param X-User-ID header string true "管理者ID"
// @Param id path string true "予約ID"
// @Param request body ReasonRequest true "却下理由"
// @Success 200 {object} ReservationResponse
// @Router /reservations/{id}/reject [post]
func (h *ReservationHandler) Reject(c echo.Context) error {
	reason, err := bindReason(c)
	if err != nil {
		return err
	}
	return h.respond(c)(h.service.RejectReservation(c.Request().Context(), c.Param("id"), middleware.ActorID(c), reason))
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description キャンセル期限を過ぎていても受け付け、遅延キャンセルとして記録します
// @Tags reservations
// @Accept json
// @Produce json
// @Param X-User-ID header string true "操作者ID"
// @Param id path string true "予約ID"
// @Param request body ReasonRequest false "キャンセル理由"
// @Success 200 {object} ReservationResponse
// @Router /reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	reason, err := bindReason(c)
	if err != nil {
		return err
	}
	return h.respond(c)(h.service.CancelReservation(c.Request().Context(), c.Param("id"), middleware.ActorID(c), reason))
}

func (h *ReservationHandler) CheckIn(c echo.Context) error {
	return h.respond(c)(h.service.CheckInReservation(c.Request().Context(), c.Param("id"), middleware.ActorID(c)))
}

func (h *ReservationHandler) Complete(c echo.Context) error {
	return h.respond(c)(h.service.CompleteReservation(c.Request().Context(), c.Param("id"), middleware.ActorID(c)))
}

func (h *ReservationHandler) NoShow(c echo.Context) error {
	return h.respond(c)(h.service.MarkNoShowReservation(c.Request().Context(), c.Param("id"), middleware.ActorID(c)))
}

// respond は状態遷移の結果をレスポンスに変換する
func (h *ReservationHandler) respond(c echo.Context) func(*reservation.Reservation, error) error {
	return func(r *reservation.Reservation, err error) error {
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, toReservationResponse(r))
	}
}

// bindReason は本文の理由を読み取る。本文が空でもよい
func bindReason(c echo.Context) (string, error) {
	if c.Request().ContentLength == 0 {
		return "", nil
	}
	var req ReasonRequest
	if err := c.Bind(&req); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	return strings.TrimSpace(req.Reason), nil
}
