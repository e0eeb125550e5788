package space

import (
	"time"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
)

// Status は共用施設の状態を表す
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Space は予約可能な共用施設（パーティールーム、プール、コート等）を表す
// 予約ポリシーはこの値オブジェクトで完結し、振る舞いはアクセサのみ
type Space struct {
	ID                        string
	Name                      string
	Capacity                  int
	RequiresApproval          bool
	MaxDurationHours          *int
	MaxAdvanceDays            int
	MinAdvanceHours           int
	CancellationDeadlineHours int
	// SlotDurationMinutes が 0 の場合はシステム既定の枠長を使う
	SlotDurationMinutes int
	Status              Status
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Policy は施設作成時に指定する予約ポリシー
type Policy struct {
	Capacity                  int
	RequiresApproval          bool
	MaxDurationHours          *int
	MaxAdvanceDays            int
	MinAdvanceHours           int
	CancellationDeadlineHours int
	SlotDurationMinutes       int
}

// NewSpace は新しい施設を作成する
func NewSpace(name string, p Policy) *Space {
	now := time.Now()
	return &Space{
		Name:                      name,
		Capacity:                  p.Capacity,
		RequiresApproval:          p.RequiresApproval,
		MaxDurationHours:          p.MaxDurationHours,
		MaxAdvanceDays:            p.MaxAdvanceDays,
		MinAdvanceHours:           p.MinAdvanceHours,
		CancellationDeadlineHours: p.CancellationDeadlineHours,
		SlotDurationMinutes:       p.SlotDurationMinutes,
		Status:                    StatusActive,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

// Validate は施設の検証を行う
func (s *Space) Validate() error {
	if s.Name == "" {
		return ErrSpaceNameRequired
	}
	if s.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if s.MaxDurationHours != nil && *s.MaxDurationHours <= 0 {
		return ErrInvalidMaxDuration
	}
	if s.MaxAdvanceDays < 0 || s.MinAdvanceHours < 0 || s.CancellationDeadlineHours < 0 {
		return ErrInvalidAdvancePolicy
	}
	if s.SlotDurationMinutes < 0 {
		return ErrInvalidSlotDuration
	}
	return nil
}

// IsActive は施設が予約受付中かを返す
func (s *Space) IsActive() bool {
	return s.Status == StatusActive
}

// Deactivate は施設を論理的に無効化する
func (s *Space) Deactivate() error {
	if s.Status == StatusInactive {
		return ErrSpaceAlreadyInactive
	}
	s.Status = StatusInactive
	s.UpdatedAt = time.Now()
	return nil
}

// MaxDuration は最大利用時間を返す（未設定なら false）
func (s *Space) MaxDuration() (time.Duration, bool) {
	if s.MaxDurationHours == nil {
		return 0, false
	}
	return time.Duration(*s.MaxDurationHours) * time.Hour, true
}

func (s *Space) MinAdvance() time.Duration {
	return time.Duration(s.MinAdvanceHours) * time.Hour
}

func (s *Space) MaxAdvance() time.Duration {
	return time.Duration(s.MaxAdvanceDays) * 24 * time.Hour
}

func (s *Space) CancellationDeadline() time.Duration {
	return time.Duration(s.CancellationDeadlineHours) * time.Hour
}

// SlotDuration は施設固有の枠長、未設定なら fallback を返す
func (s *Space) SlotDuration(fallback time.Duration) time.Duration {
	if s.SlotDurationMinutes > 0 {
		return time.Duration(s.SlotDurationMinutes) * time.Minute
	}
	return fallback
}

// Availability は曜日ごとの繰り返し利用可能時間帯
type Availability struct {
	ID        string
	SpaceID   string
	DayOfWeek time.Weekday
	StartTime timeslot.ClockTime
	EndTime   timeslot.ClockTime
	CreatedAt time.Time
}

// NewAvailability は新しい利用可能時間帯を作成する
func NewAvailability(spaceID string, day time.Weekday, start, end timeslot.ClockTime) *Availability {
	return &Availability{
		SpaceID:   spaceID,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
		CreatedAt: time.Now(),
	}
}

// Validate は時間帯の検証を行う
func (a *Availability) Validate() error {
	if a.SpaceID == "" {
		return ErrSpaceIDRequired
	}
	if a.DayOfWeek < time.Sunday || a.DayOfWeek > time.Saturday {
		return ErrInvalidDayOfWeek
	}
	if !a.StartTime.Valid() || !a.EndTime.Valid() || a.StartTime >= a.EndTime {
		return ErrInvalidWindow
	}
	return nil
}

// On は date の暦日におけるこの時間帯の実時刻区間を返す
func (a *Availability) On(date time.Time, loc *time.Location) timeslot.Interval {
	return timeslot.Interval{Start: a.StartTime.On(date, loc), End: a.EndTime.On(date, loc)}
}

// Block はメンテナンス等による臨時の利用停止期間
type Block struct {
	ID        string
	SpaceID   string
	StartAt   time.Time
	EndAt     time.Time
	Reason    string
	CreatedBy string
	Notes     *string
	CreatedAt time.Time
}

// NewBlock は新しい利用停止期間を作成する
func NewBlock(spaceID string, startAt, endAt time.Time, reason, createdBy string, notes *string) *Block {
	return &Block{
		SpaceID:   spaceID,
		StartAt:   startAt,
		EndAt:     endAt,
		Reason:    reason,
		CreatedBy: createdBy,
		Notes:     notes,
		CreatedAt: time.Now(),
	}
}

// Validate は利用停止期間の検証を行う
func (b *Block) Validate() error {
	if b.SpaceID == "" {
		return ErrSpaceIDRequired
	}
	if !b.StartAt.Before(b.EndAt) {
		return ErrInvalidBlockRange
	}
	if b.Reason == "" {
		return ErrBlockReasonRequired
	}
	if b.CreatedBy == "" {
		return ErrBlockCreatorRequired
	}
	return nil
}

// Interval は停止期間を区間で返す
func (b *Block) Interval() timeslot.Interval {
	return timeslot.Interval{Start: b.StartAt, End: b.EndAt}
}
