package reservation

import "time"

// EventType は予約イベントの種別
type EventType string

const (
	EventRequested EventType = "ReservationRequested"
	EventConfirmed EventType = "ReservationConfirmed"
	EventRejected  EventType = "ReservationRejected"
	EventCanceled  EventType = "ReservationCanceled"
	EventCheckedIn EventType = "ReservationCheckedIn"
	EventCompleted EventType = "ReservationCompleted"
	EventNoShow    EventType = "ReservationNoShow"
)

// Event は予約の状態変化を表すドメインイベント
// 状態変更と同じトランザクションでアウトボックスに書き込まれる
type Event struct {
	ID                 string    `json:"id"`
	Type               EventType `json:"type"`
	ReservationID      string    `json:"reservation_id"`
	SpaceID            string    `json:"space_id"`
	UnitID             string    `json:"unit_id"`
	ResidentID         string    `json:"resident_id"`
	Status             Status    `json:"status"`
	ActorID            string    `json:"actor_id,omitempty"`
	Reason             string    `json:"reason,omitempty"`
	IsLateCancellation bool      `json:"is_late_cancellation,omitempty"`
	StartAt            time.Time `json:"start_at"`
	EndAt              time.Time `json:"end_at"`
	OccurredAt         time.Time `json:"occurred_at"`
}
