package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-amenity-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-amenity-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-amenity-reservation/internal/pkg/metrics"
)

// EventPublisher は予約イベントを状態変更と同じトランザクションで記録する
type EventPublisher interface {
	Publish(ctx context.Context, tx transaction.Tx, events []reservation.Event) error
}

// EventHistory は記録済みの予約イベントを参照する
type EventHistory interface {
	ListByReservation(ctx context.Context, reservationID string) ([]reservation.Event, error)
}

type ReservationService struct {
	txManager       transaction.Manager
	validator       *BookingValidator
	spaceRepo       space.Repository
	reservationRepo reservation.Repository
	publisher       EventPublisher
	history         EventHistory
	lockManager     redisinfra.LockManagerInterface
	slotCache       redisinfra.SlotCacheInterface
	settings        BookingSettings
	clock           Clock
	metrics         *metrics.Metrics
}

// NewReservationService は予約サービスを作成する
// lockManager と slotCache は nil でもよい（Redis を使わない構成）
func NewReservationService(
	txm transaction.Manager,
	validator *BookingValidator,
	sr space.Repository,
	rr reservation.Repository,
	publisher EventPublisher,
	lm redisinfra.LockManagerInterface,
	cache redisinfra.SlotCacheInterface,
	settings BookingSettings,
) *ReservationService {
	return &ReservationService{
		txManager:       txm,
		validator:       validator,
		spaceRepo:       sr,
		reservationRepo: rr,
		publisher:       publisher,
		lockManager:     lm,
		slotCache:       cache,
		settings:        settings,
		clock:           SystemClock,
	}
}

// WithClock は時刻の取得元を差し替える
func (s *ReservationService) WithClock(c Clock) *ReservationService {
	s.clock = c
	return s
}

// WithEventHistory はイベント履歴の参照先を設定する
func (s *ReservationService) WithEventHistory(h EventHistory) *ReservationService {
	s.history = h
	return s
}

// WithMetrics はメトリクスの記録先を設定する
func (s *ReservationService) WithMetrics(m *metrics.Metrics) *ReservationService {
	s.metrics = m
	return s
}

type CreateReservationInput struct {
	SpaceID        string
	UnitID         string
	ResidentID     string
	Title          string
	StartAt        time.Time
	EndAt          time.Time
	ExpectedGuests int
	Notes          *string
}

// CreateReservation は予約申請を検証し、受付可能なら予約を作成する
func (s *ReservationService) CreateReservation(ctx context.Context, input CreateReservationInput) (*reservation.Reservation, error) {
	req := reservation.Request{
		SpaceID:        input.SpaceID,
		UnitID:         input.UnitID,
		ResidentID:     input.ResidentID,
		Title:          input.Title,
		StartAt:        input.StartAt,
		EndAt:          input.EndAt,
		ExpectedGuests: input.ExpectedGuests,
		Notes:          input.Notes,
	}

	release, err := s.acquireSpaceLock(ctx, input.SpaceID)
	if err != nil {
		s.metrics.ObserveAdmission(rejectionLabel(err))
		return nil, err
	}
	defer release()

	now := s.clock.Now()
	var res *reservation.Reservation
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		sp, err := s.validator.Validate(ctx, tx, req, now)
		if err != nil {
			return err
		}
		r, err := reservation.NewReservation(req, sp.RequiresApproval, now)
		if err != nil {
			return err
		}
		if err := s.reservationRepo.Create(ctx, tx, r); err != nil {
			return err
		}
		if err := s.publisher.Publish(ctx, tx, r.PullEvents()); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		label := rejectionLabel(err)
		s.metrics.ObserveAdmission(label)
		logger.Info("予約申請を受け付けませんでした",
			logger.SpaceID(input.SpaceID),
			logger.UnitID(input.UnitID),
			logger.Rejection(label),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.ObserveAdmission("admitted")
	s.invalidateSlots(ctx, res.SpaceID)
	logger.Info("予約を受け付けました",
		logger.ReservationID(res.ID),
		logger.SpaceID(res.SpaceID),
		zap.String("status", string(res.Status)),
	)
	return res, nil
}

// ApproveReservation は承認待ちの予約を確定する
// 申請後に他の予約が同じ時間帯を確保していた場合は ErrOverlappingReservation を返す
func (s *ReservationService) ApproveReservation(ctx context.Context, id, by string) (*reservation.Reservation, error) {
	return s.transition(ctx, id, reservation.ActionApprove, by, true,
		func(ctx context.Context, tx transaction.Tx, r *reservation.Reservation, now time.Time) error {
			if _, err := reservation.NextStatus(r.Status, reservation.ActionApprove); err != nil {
				return err
			}
			if err := s.validator.CheckOverlap(ctx, tx, r.SpaceID, r.Interval(), r.ID); err != nil {
				return err
			}
			return r.Approve(by, now)
		})
}

// RejectReservation は承認待ちの予約を却下する
func (s *ReservationService) RejectReservation(ctx context.Context, id, by, reason string) (*reservation.Reservation, error) {
	return s.transition(ctx, id, reservation.ActionReject, by, false,
		func(_ context.Context, _ transaction.Tx, r *reservation.Reservation, now time.Time) error {
			return r.Reject(by, reason, now)
		})
}

// CancelReservation は予約をキャンセルする
// キャンセル期限を過ぎていても成立し、直前キャンセルとしてイベントに記録する
func (s *ReservationService) CancelReservation(ctx context.Context, id, by, reason string) (*reservation.Reservation, error) {
	return s.transition(ctx, id, reservation.ActionCancel, by, false,
		func(ctx context.Context, _ transaction.Tx, r *reservation.Reservation, now time.Time) error {
			sp, err := s.spaceRepo.GetByID(ctx, r.SpaceID)
			if err != nil {
				return fmt.Errorf("施設取得に失敗: %w", err)
			}
			return r.Cancel(by, reason, sp.CancellationDeadline(), now)
		})
}

// CheckInReservation は確定済みの予約の利用開始を記録する
func (s *ReservationService) CheckInReservation(ctx context.Context, id, by string) (*reservation.Reservation, error) {
	return s.transition(ctx, id, reservation.ActionCheckIn, by, false,
		func(_ context.Context, _ transaction.Tx, r *reservation.Reservation, now time.Time) error {
			return r.CheckIn(now)
		})
}

// CompleteReservation は利用中の予約を完了する
func (s *ReservationService) CompleteReservation(ctx context.Context, id, by string) (*reservation.Reservation, error) {
	return s.transition(ctx, id, reservation.ActionComplete, by, false,
		func(_ context.Context, _ transaction.Tx, r *reservation.Reservation, now time.Time) error {
			return r.Complete(now)
		})
}

// MarkNoShowReservation は利用中の予約を無断不使用として記録する
func (s *ReservationService) MarkNoShowReservation(ctx context.Context, id, by string) (*reservation.Reservation, error) {
	return s.transition(ctx, id, reservation.ActionMarkNoShow, by, false,
		func(_ context.Context, _ transaction.Tx, r *reservation.Reservation, now time.Time) error {
			return r.MarkNoShow(by, now)
		})
}

type transitionFunc func(ctx context.Context, tx transaction.Tx, r *reservation.Reservation, now time.Time) error

// transition は予約行をロックして apply を適用し、更新とイベント記録を同じトランザクションで行う
// lockSpace が true の場合は予約行より先に施設ロックを取得する（受付と同じ順序）
func (s *ReservationService) transition(ctx context.Context, id string, action reservation.Action, by string, lockSpace bool, apply transitionFunc) (*reservation.Reservation, error) {
	var spaceID string
	if lockSpace {
		current, err := s.reservationRepo.GetByID(ctx, id)
		if err != nil {
			s.metrics.ObserveTransition(string(action), rejectionLabel(err))
			return nil, err
		}
		spaceID = current.SpaceID

		release, err := s.acquireSpaceLock(ctx, spaceID)
		if err != nil {
			s.metrics.ObserveTransition(string(action), rejectionLabel(err))
			return nil, err
		}
		defer release()
	}

	now := s.clock.Now()
	var res *reservation.Reservation
	err := transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		if lockSpace {
			if err := s.reservationRepo.LockSpace(ctx, tx, spaceID); err != nil {
				return err
			}
		}
		r, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := apply(ctx, tx, r, now); err != nil {
			return err
		}
		if err := s.reservationRepo.Update(ctx, tx, r); err != nil {
			return err
		}
		if err := s.publisher.Publish(ctx, tx, r.PullEvents()); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		label := rejectionLabel(err)
		s.metrics.ObserveTransition(string(action), label)
		logger.Info("予約の状態遷移に失敗しました",
			logger.ReservationID(id),
			zap.String("action", string(action)),
			logger.ActorID(by),
			logger.Rejection(label),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.ObserveTransition(string(action), "success")
	s.invalidateSlots(ctx, res.SpaceID)
	logger.Info("予約の状態を更新しました",
		logger.ReservationID(res.ID),
		zap.String("action", string(action)),
		logger.ActorID(by),
		zap.String("status", string(res.Status)),
	)
	return res, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	return s.reservationRepo.GetByID(ctx, id)
}

// ListReservationEvents は予約のイベント履歴を発生順に返す
func (s *ReservationService) ListReservationEvents(ctx context.Context, id string) ([]reservation.Event, error) {
	if _, err := s.reservationRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []reservation.Event{}, nil
	}
	return s.history.ListByReservation(ctx, id)
}

type ListReservationsInput struct {
	UnitID   string
	Statuses []reservation.Status
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// ListUnitReservations は住戸の予約を開始時刻順に返す
func (s *ReservationService) ListUnitReservations(ctx context.Context, input ListReservationsInput) ([]*reservation.Reservation, error) {
	if input.UnitID == "" {
		return nil, reservation.ErrUnitIDRequired
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	filter := reservation.ListFilter{
		UnitID:   input.UnitID,
		Statuses: input.Statuses,
		Limit:    limit,
		Offset:   input.Offset,
	}
	if input.From != nil || input.To != nil {
		within := timeslot.Interval{Start: time.Time{}, End: time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)}
		if input.From != nil {
			within.Start = *input.From
		}
		if input.To != nil {
			within.End = *input.To
		}
		filter.Within = &within
	}
	return s.reservationRepo.List(ctx, filter)
}

// acquireSpaceLock は施設単位の分散ロックを取得し、解放関数を返す
// Redis が利用できない場合は DB の施設ロックのみで直列化する
func (s *ReservationService) acquireSpaceLock(ctx context.Context, spaceID string) (func(), error) {
	noop := func() {}
	if s.lockManager == nil {
		return noop, nil
	}

	started := time.Now()
	lock, err := s.lockManager.AcquireLockWithRetry(ctx, redisinfra.SpaceLockKey(spaceID),
		s.settings.LockTTL, s.settings.LockRetries, s.settings.LockRetryDelay)
	s.metrics.ObserveLock("redis", started, err)
	if err != nil {
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			return nil, reservation.ErrSpaceBusy
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("分散ロックを取得できないためDBロックのみで処理します",
			logger.SpaceID(spaceID), zap.Error(err))
		return noop, nil
	}

	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("分散ロック解放エラー", logger.SpaceID(spaceID), zap.Error(err))
		}
	}, nil
}

func (s *ReservationService) invalidateSlots(ctx context.Context, spaceID string) {
	if s.slotCache == nil {
		return
	}
	if err := s.slotCache.Invalidate(ctx, spaceID); err != nil {
		logger.Warn("空き枠キャッシュ無効化エラー", logger.SpaceID(spaceID), zap.Error(err))
	}
}
