package reservation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
)

// Reservation は共用施設の予約エンティティを表す
// 状態は遷移表（status.go）に従ってのみ変化し、変化ごとにイベントを記録する
type Reservation struct {
	ID             string
	SpaceID        string
	UnitID         string
	ResidentID     string
	Title          string
	StartAt        time.Time
	EndAt          time.Time
	ExpectedGuests int
	Notes          *string
	Status         Status

	ApprovedBy *string
	ApprovedAt *time.Time

	RejectedBy      *string
	RejectedAt      *time.Time
	RejectionReason *string

	CanceledBy         *string
	CanceledAt         *time.Time
	CancellationReason *string
	LateCancellation   bool

	CheckedInAt *time.Time
	CompletedAt *time.Time

	NoShowBy *string
	NoShowAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	events []Event
}

// Request は予約申請の入力
type Request struct {
	SpaceID        string
	UnitID         string
	ResidentID     string
	Title          string
	StartAt        time.Time
	EndAt          time.Time
	ExpectedGuests int
	Notes          *string
}

// Validate は申請の形式的な検証を行う
func (r Request) Validate() error {
	if r.SpaceID == "" {
		return ErrSpaceIDRequired
	}
	if r.UnitID == "" {
		return ErrUnitIDRequired
	}
	if r.ResidentID == "" {
		return ErrResidentIDRequired
	}
	if !r.StartAt.Before(r.EndAt) {
		return ErrInvalidTimeRange
	}
	if r.ExpectedGuests < 1 {
		return ErrInvalidGuestCount
	}
	return nil
}

// Interval は申請の予約区間を返す
func (r Request) Interval() timeslot.Interval {
	return timeslot.Interval{Start: r.StartAt, End: r.EndAt}
}

// NewReservation は受付済みの申請から予約を作成する
// 承認制の施設では pending_approval、それ以外は即時 confirmed となる
func NewReservation(req Request, requiresApproval bool, now time.Time) (*Reservation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	r := &Reservation{
		ID:             uuid.NewString(),
		SpaceID:        req.SpaceID,
		UnitID:         req.UnitID,
		ResidentID:     req.ResidentID,
		Title:          title,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		ExpectedGuests: req.ExpectedGuests,
		Notes:          req.Notes,
		Status:         StatusPendingApproval,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.record(EventRequested, req.ResidentID, "", now)

	if !requiresApproval {
		r.Status = StatusConfirmed
		r.record(EventConfirmed, req.ResidentID, "", now)
	}
	return r, nil
}

// Interval は予約区間を返す
func (r *Reservation) Interval() timeslot.Interval {
	return timeslot.Interval{Start: r.StartAt, End: r.EndAt}
}

// BlocksSlot は予約が枠を占有しているかを返す
func (r *Reservation) BlocksSlot() bool {
	return r.Status.BlocksSlot()
}

// Approve は承認待ちの予約を確定する
// 他予約との重複確認は呼び出し側が施設ロック下で行う
func (r *Reservation) Approve(by string, now time.Time) error {
	if by == "" {
		return ErrActorRequired
	}
	if err := r.transition(ActionApprove, now); err != nil {
		return err
	}
	r.ApprovedBy = &by
	r.ApprovedAt = &now
	r.record(EventConfirmed, by, "", now)
	return nil
}

// Reject は承認待ちの予約を却下する
func (r *Reservation) Reject(by, reason string, now time.Time) error {
	if by == "" {
		return ErrActorRequired
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	if err := r.transition(ActionReject, now); err != nil {
		return err
	}
	r.RejectedBy = &by
	r.RejectedAt = &now
	r.RejectionReason = &reason
	r.record(EventRejected, by, reason, now)
	return nil
}

// Cancel は予約をキャンセルする
// 開始時刻から deadline を引いた時刻を過ぎていれば直前キャンセルとして記録する（キャンセル自体は成立する）
func (r *Reservation) Cancel(by, reason string, deadline time.Duration, now time.Time) error {
	if by == "" {
		return ErrActorRequired
	}
	if err := r.transition(ActionCancel, now); err != nil {
		return err
	}
	r.CanceledBy = &by
	r.CanceledAt = &now
	if reason = strings.TrimSpace(reason); reason != "" {
		r.CancellationReason = &reason
	}
	r.LateCancellation = now.After(r.StartAt.Add(-deadline))
	r.record(EventCanceled, by, reason, now)
	return nil
}

// CheckIn は確定済みの予約の利用開始を記録する
func (r *Reservation) CheckIn(now time.Time) error {
	if err := r.transition(ActionCheckIn, now); err != nil {
		return err
	}
	r.CheckedInAt = &now
	r.record(EventCheckedIn, r.ResidentID, "", now)
	return nil
}

// Complete は利用中の予約を完了する
func (r *Reservation) Complete(now time.Time) error {
	if err := r.transition(ActionComplete, now); err != nil {
		return err
	}
	r.CompletedAt = &now
	r.record(EventCompleted, r.ResidentID, "", now)
	return nil
}

// MarkNoShow は利用中の予約を無断不使用として記録する
func (r *Reservation) MarkNoShow(by string, now time.Time) error {
	if by == "" {
		return ErrActorRequired
	}
	if err := r.transition(ActionMarkNoShow, now); err != nil {
		return err
	}
	r.NoShowBy = &by
	r.NoShowAt = &now
	r.record(EventNoShow, by, "", now)
	return nil
}

func (r *Reservation) transition(action Action, now time.Time) error {
	next, err := NextStatus(r.Status, action)
	if err != nil {
		return err
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

func (r *Reservation) record(t EventType, actor, reason string, now time.Time) {
	r.events = append(r.events, Event{
		ID:                 uuid.NewString(),
		Type:               t,
		ReservationID:      r.ID,
		SpaceID:            r.SpaceID,
		UnitID:             r.UnitID,
		ResidentID:         r.ResidentID,
		Status:             r.Status,
		ActorID:            actor,
		Reason:             reason,
		IsLateCancellation: t == EventCanceled && r.LateCancellation,
		StartAt:            r.StartAt,
		EndAt:              r.EndAt,
		OccurredAt:         now,
	})
}

// PullEvents は記録済みのイベントを取り出し、内部のバッファを空にする
func (r *Reservation) PullEvents() []Event {
	events := r.events
	r.events = nil
	return events
}
