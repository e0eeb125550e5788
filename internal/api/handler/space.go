package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-amenity-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-amenity-reservation/internal/application"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
)

// defaultBlockListRange は利用停止期間一覧の既定の取得期間
const defaultBlockListRange = 30 * 24 * time.Hour

type SpaceHandler struct {
	service SpaceServiceInterface
}

func NewSpaceHandler(s SpaceServiceInterface) *SpaceHandler {
	return &SpaceHandler{service: s}
}

type CreateSpaceRequest struct {
	Name                      string `json:"name" validate:"required" example:"パーティールーム"`
	Capacity                  int    `json:"capacity" validate:"gt=0" example:"50"`
	RequiresApproval          bool   `json:"requires_approval" example:"true"`
	MaxDurationHours          *int   `json:"max_duration_hours" validate:"omitempty,gt=0" example:"8"`
	MaxAdvanceDays            int    `json:"max_advance_days" validate:"gte=0" example:"30"`
	MinAdvanceHours           int    `json:"min_advance_hours" validate:"gte=0" example:"24"`
	CancellationDeadlineHours int    `json:"cancellation_deadline_hours" validate:"gte=0" example:"48"`
	SlotDurationMinutes       int    `json:"slot_duration_minutes" validate:"gte=0" example:"60"`
}

type SpaceResponse struct {
	ID                        string    `json:"id"`
	Name                      string    `json:"name"`
	Capacity                  int       `json:"capacity"`
	RequiresApproval          bool      `json:"requires_approval"`
	MaxDurationHours          *int      `json:"max_duration_hours,omitempty"`
	MaxAdvanceDays            int       `json:"max_advance_days"`
	MinAdvanceHours           int       `json:"min_advance_hours"`
	CancellationDeadlineHours int       `json:"cancellation_deadline_hours"`
	SlotDurationMinutes       int       `json:"slot_duration_minutes,omitempty"`
	Status                    string    `json:"status"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

func toSpaceResponse(s *space.Space) SpaceResponse {
	return SpaceResponse{
		ID:                        s.ID,
		Name:                      s.Name,
		Capacity:                  s.Capacity,
		RequiresApproval:          s.RequiresApproval,
		MaxDurationHours:          s.MaxDurationHours,
		MaxAdvanceDays:            s.MaxAdvanceDays,
		MinAdvanceHours:           s.MinAdvanceHours,
		CancellationDeadlineHours: s.CancellationDeadlineHours,
		SlotDurationMinutes:       s.SlotDurationMinutes,
		Status:                    string(s.Status),
		CreatedAt:                 s.CreatedAt,
		UpdatedAt:                 s.UpdatedAt,
	}
}

type AddAvailabilityRequest struct {
	DayOfWeek *int   `json:"day_of_week" validate:"required,min=0,max=6" example:"1"`
	StartTime string `json:"start_time" validate:"required,clocktime" example:"08:00"`
	EndTime   string `json:"end_time" validate:"required,clocktime" example:"22:00"`
}

type AvailabilityResponse struct {
	ID        string `json:"id"`
	SpaceID   string `json:"space_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toAvailabilityResponse(a *space.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		ID:        a.ID,
		SpaceID:   a.SpaceID,
		DayOfWeek: int(a.DayOfWeek),
		StartTime: a.StartTime.String(),
		EndTime:   a.EndTime.String(),
	}
}

type AddBlockRequest struct {
	StartAt string  `json:"start_at" validate:"required" example:"2026-10-19T12:00:00+09:00"`
	EndAt   string  `json:"end_at" validate:"required" example:"2026-10-19T18:00:00+09:00"`
	Reason  string  `json:"reason" validate:"required" example:"空調設備の点検"`
	Notes   *string `json:"notes,omitempty"`
}

type BlockResponse struct {
	ID        string    `json:"id"`
	SpaceID   string    `json:"space_id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Reason    string    `json:"reason"`
	CreatedBy string    `json:"created_by"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toBlockResponse(b *space.Block) BlockResponse {
	return BlockResponse{
		ID:        b.ID,
		SpaceID:   b.SpaceID,
		StartAt:   b.StartAt,
		EndAt:     b.EndAt,
		Reason:    b.Reason,
		CreatedBy: b.CreatedBy,
		Notes:     b.Notes,
		CreatedAt: b.CreatedAt,
	}
}

type SetRuleRequest struct {
	Value string `json:"value" validate:"required" example:"4"`
}

type RuleResponse struct {
	SpaceID   string    `json:"space_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toRuleResponse(r *space.Rule) RuleResponse {
	return RuleResponse{SpaceID: r.SpaceID, Key: r.Key, Value: r.Value, UpdatedAt: r.UpdatedAt}
}

// Create godoc
// @Summary 施設を登録
// @Description 予約ポリシー付きで共用施設を登録します
// @Tags spaces
// @Accept json
// @Produce json
// @Param request body CreateSpaceRequest true "施設情報"
// @Success 201 {object} SpaceResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /spaces [post]
func (h *SpaceHandler) Create(c echo.Context) error {
	var req CreateSpaceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	s, err := h.service.CreateSpace(c.Request().Context(), application.CreateSpaceInput{
		Name: req.Name,
		Policy: space.Policy{
			Capacity:                  req.Capacity,
			RequiresApproval:          req.RequiresApproval,
			MaxDurationHours:          req.MaxDurationHours,
			MaxAdvanceDays:            req.MaxAdvanceDays,
			MinAdvanceHours:           req.MinAdvanceHours,
			CancellationDeadlineHours: req.CancellationDeadlineHours,
			SlotDurationMinutes:       req.SlotDurationMinutes,
		},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSpaceResponse(s))
}

// GetByID godoc
// @Summary 施設を取得
// @Tags spaces
// @Produce json
// @Param id path string true "施設ID"
// @Success 200 {object} SpaceResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /spaces/{id} [get]
func (h *SpaceHandler) GetByID(c echo.Context) error {
	s, err := h.service.GetSpace(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSpaceResponse(s))
}

// Deactivate godoc
// @Summary 施設を無効化
// @Description 以降の予約受付を停止します（既存の予約は残ります）
// @Tags spaces
// @Produce json
// @Param id path string true "施設ID"
// @Success 200 {object} SpaceResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /spaces/{id}/deactivate [post]
func (h *SpaceHandler) Deactivate(c echo.Context) error {
	s, err := h.service.DeactivateSpace(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSpaceResponse(s))
}

func (h *SpaceHandler) ListAvailability(c echo.Context) error {
	windows, err := h.service.ListAvailability(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	resp := make([]AvailabilityResponse, len(windows))
	for i, a := range windows {
		resp[i] = toAvailabilityResponse(a)
	}
	return c.JSON(http.StatusOK, resp)
}

// AddAvailability godoc
// @Summary 利用可能時間帯を追加
// @Description 曜日ごとの繰り返し時間帯を追加します（施設のタイムゾーンの壁時計時刻）
// @Tags spaces
// @Accept json
// @Produce json
// @Param id path string true "施設ID"
// @Param request body AddAvailabilityRequest true "時間帯"
// @Success 201 {object} AvailabilityResponse
// @Router /spaces/{id}/availability [post]
func (h *SpaceHandler) AddAvailability(c echo.Context) error {
	var req AddAvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	a, err := h.service.AddAvailability(c.Request().Context(), application.AddAvailabilityInput{
		SpaceID:   c.Param("id"),
		DayOfWeek: time.Weekday(*req.DayOfWeek),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toAvailabilityResponse(a))
}

func (h *SpaceHandler) RemoveAvailability(c echo.Context) error {
	if err := h.service.RemoveAvailability(c.Request().Context(), c.Param("id"), c.Param("availability_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListBlocks godoc
// @Summary 利用停止期間の一覧
// @Tags spaces
// @Produce json
// @Param id path string true "施設ID"
// @Param from query string false "開始（RFC3339、既定は現在）"
// @Param to query string false "終了（RFC3339、既定は30日後）"
// @Success 200 {array} BlockResponse
// @Router /spaces/{id}/blocks [get]
func (h *SpaceHandler) ListBlocks(c echo.Context) error {
	from := time.Now()
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "fromの形式が不正です")
		}
		from = t
	}
	to := from.Add(defaultBlockListRange)
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "toの形式が不正です")
		}
		to = t
	}

	blocks, err := h.service.ListBlocks(c.Request().Context(), c.Param("id"), from, to)
	if err != nil {
		return err
	}
	resp := make([]BlockResponse, len(blocks))
	for i, b := range blocks {
		resp[i] = toBlockResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// AddBlock godoc
// @Summary 利用停止期間を登録
// @Description メンテナンス等で施設を一時的に利用停止にします
// @Tags spaces
// @Accept json
// @Produce json
// @Param X-User-ID header string true "管理者ID"
// @Param id path string true "施設ID"
// @Param request body AddBlockRequest true "停止期間"
// @Success 201 {object} BlockResponse
// @Router /spaces/{id}/blocks [post]
func (h *SpaceHandler) AddBlock(c echo.Context) error {
	var req AddBlockRequest
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

	b, err := h.service.AddBlock(c.Request().Context(), application.AddBlockInput{
		SpaceID:   c.Param("id"),
		StartAt:   startAt,
		EndAt:     endAt,
		Reason:    req.Reason,
		CreatedBy: middleware.ActorID(c),
		Notes:     req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBlockResponse(b))
}

func (h *SpaceHandler) RemoveBlock(c echo.Context) error {
	if err := h.service.RemoveBlock(c.Request().Context(), c.Param("id"), c.Param("block_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SpaceHandler) ListRules(c echo.Context) error {
	rules, err := h.service.ListRules(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	resp := make([]RuleResponse, len(rules))
	for i, r := range rules {
		resp[i] = toRuleResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}

// SetRule godoc
// @Summary 施設ルールを設定
// @Description max_monthly_reservations_per_unit 等のルールを設定します
// @Tags spaces
// @Accept json
// @Produce json
// @Param id path string true "施設ID"
// @Param key path string true "ルールキー"
// @Param request body SetRuleRequest true "値"
// @Success 200 {object} RuleResponse
// @Router /spaces/{id}/rules/{key} [put]
func (h *SpaceHandler) SetRule(c echo.Context) error {
	var req SetRuleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	r, err := h.service.SetRule(c.Request().Context(), c.Param("id"), c.Param("key"), req.Value)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRuleResponse(r))
}
