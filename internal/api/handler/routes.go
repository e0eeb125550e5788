package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-amenity-reservation/internal/api/middleware"
)

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Health      *HealthHandler
	Space       *SpaceHandler
	Slot        *SlotHandler
	Reservation *ReservationHandler
}

// RegisterRoutes は /health と /api/v1 配下のルートを登録する
// 状態を変更する操作は X-User-ID を必須とする
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1")
	actor := middleware.RequireActor()

	spaces := v1.Group("/spaces")
	spaces.POST("", h.Space.Create)
	spaces.GET("/:id", h.Space.GetByID)
	spaces.POST("/:id/deactivate", h.Space.Deactivate)
	spaces.GET("/:id/availability", h.Space.ListAvailability)
	spaces.POST("/:id/availability", h.Space.AddAvailability)
	spaces.DELETE("/:id/availability/:availability_id", h.Space.RemoveAvailability)
	spaces.GET("/:id/blocks", h.Space.ListBlocks)
	spaces.POST("/:id/blocks", h.Space.AddBlock, actor)
	spaces.DELETE("/:id/blocks/:block_id", h.Space.RemoveBlock)
	spaces.GET("/:id/rules", h.Space.ListRules)
	spaces.PUT("/:id/rules/:key", h.Space.SetRule)
	spaces.GET("/:id/slots", h.Slot.List)

	reservations := v1.Group("/reservations")
	reservations.POST("", h.Reservation.Create, actor)
	reservations.GET("/:id", h.Reservation.GetByID)
	reservations.GET("/:id/events", h.Reservation.Events)
	reservations.POST("/:id/approve", h.Reservation.Approve, actor)
	reservations.POST("/:id/reject", h.Reservation.Reject, actor)
	reservations.POST("/:id/cancel", h.Reservation.Cancel, actor)
	reservations.POST("/:id/check-in", h.Reservation.CheckIn, actor)
	reservations.POST("/:id/complete", h.Reservation.Complete, actor)
	reservations.POST("/:id/no-show", h.Reservation.NoShow, actor)

	v1.GET("/units/:unit_id/reservations", h.Reservation.ListByUnit)
}
