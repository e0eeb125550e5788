package handler

import (
	"context"
	"time"

	"github.com/sanosuguru/go-amenity-reservation/internal/application"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
)

// SpaceServiceInterface は施設管理サービスのインターフェース
type SpaceServiceInterface interface {
	CreateSpace(ctx context.Context, input application.CreateSpaceInput) (*space.Space, error)
	GetSpace(ctx context.Context, id string) (*space.Space, error)
	DeactivateSpace(ctx context.Context, id string) (*space.Space, error)
	AddAvailability(ctx context.Context, input application.AddAvailabilityInput) (*space.Availability, error)
	RemoveAvailability(ctx context.Context, spaceID, availabilityID string) error
	ListAvailability(ctx context.Context, spaceID string) ([]*space.Availability, error)
	AddBlock(ctx context.Context, input application.AddBlockInput) (*space.Block, error)
	RemoveBlock(ctx context.Context, spaceID, blockID string) error
	ListBlocks(ctx context.Context, spaceID string, from, to time.Time) ([]*space.Block, error)
	SetRule(ctx context.Context, spaceID, key, value string) (*space.Rule, error)
	ListRules(ctx context.Context, spaceID string) (space.Rules, error)
}

// SlotServiceInterface は空き枠照会サービスのインターフェース
type SlotServiceInterface interface {
	ParseDate(v string) (time.Time, error)
	ListAvailableSlots(ctx context.Context, spaceID string, date time.Time) ([]space.Slot, error)
}

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error)
	GetReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	ListUnitReservations(ctx context.Context, input application.ListReservationsInput) ([]*reservation.Reservation, error)
	ListReservationEvents(ctx context.Context, id string) ([]reservation.Event, error)
	ApproveReservation(ctx context.Context, id, by string) (*reservation.Reservation, error)
	RejectReservation(ctx context.Context, id, by, reason string) (*reservation.Reservation, error)
	CancelReservation(ctx context.Context, id, by, reason string) (*reservation.Reservation, error)
	CheckInReservation(ctx context.Context, id, by string) (*reservation.Reservation, error)
	CompleteReservation(ctx context.Context, id, by string) (*reservation.Reservation, error)
	MarkNoShowReservation(ctx context.Context, id, by string) (*reservation.Reservation, error)
}

var (
	_ SpaceServiceInterface       = (*application.SpaceService)(nil)
	_ SlotServiceInterface        = (*application.SlotService)(nil)
	_ ReservationServiceInterface = (*application.ReservationService)(nil)
)
