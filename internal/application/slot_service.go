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
	redisinfra "github.com/sanosuguru/go-amenity-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-amenity-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-amenity-reservation/internal/pkg/metrics"
)

// DateLayout は日付指定の書式
const DateLayout = "2006-01-02"

// SlotService は施設の空き枠一覧を提供する
// ロックを取らない読み取り専用の処理で、結果は予約の保証ではない
type SlotService struct {
	spaceRepo       space.Repository
	reservationRepo reservation.Repository
	cache           redisinfra.SlotCacheInterface
	settings        BookingSettings
	metrics         *metrics.Metrics
}

func NewSlotService(sr space.Repository, rr reservation.Repository, cache redisinfra.SlotCacheInterface, settings BookingSettings) *SlotService {
	return &SlotService{spaceRepo: sr, reservationRepo: rr, cache: cache, settings: settings}
}

// WithMetrics はメトリクスの記録先を設定する
func (s *SlotService) WithMetrics(m *metrics.Metrics) *SlotService {
	s.metrics = m
	return s
}

// ParseDate は予約タイムゾーンで日付を解釈する
func (s *SlotService) ParseDate(v string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, v, s.settings.location())
}

// ListAvailableSlots は date の暦日の予約枠を開始時刻順に返す
// 利用可能時間帯が無い日、無効化された施設は空の一覧を返す
func (s *SlotService) ListAvailableSlots(ctx context.Context, spaceID string, date time.Time) ([]space.Slot, error) {
	loc := s.settings.location()
	sp, err := s.spaceRepo.GetByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if !sp.IsActive() {
		return []space.Slot{}, nil
	}

	day := timeslot.StartOfDay(date, loc)
	dateKey := day.Format(DateLayout)

	// 保存はミスを確認した世代に対してのみ行う
	var (
		ver      int64
		storable bool
	)
	if s.cache != nil {
		slots, v, err := s.cache.Get(ctx, spaceID, dateKey)
		switch {
		case err == nil:
			s.metrics.ObserveSlotCache("hit")
			logger.Debug("キャッシュヒット", logger.SpaceID(spaceID), zap.String("date", dateKey))
			return slots, nil
		case errors.Is(err, redisinfra.ErrCacheMiss):
			s.metrics.ObserveSlotCache("miss")
			ver, storable = v, true
		default:
			s.metrics.ObserveSlotCache("error")
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	slots, err := s.enumerate(ctx, sp, day, loc)
	if err != nil {
		return nil, err
	}

	if storable {
		if cacheErr := s.cache.Set(ctx, spaceID, dateKey, ver, slots, s.settings.SlotCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return slots, nil
}

func (s *SlotService) enumerate(ctx context.Context, sp *space.Space, day time.Time, loc *time.Location) ([]space.Slot, error) {
	windows, err := s.spaceRepo.ListAvailability(ctx, sp.ID)
	if err != nil {
		return nil, fmt.Errorf("利用可能時間帯の取得に失敗: %w", err)
	}
	cal := space.NewCalendar(windows, nil, loc)
	if len(cal.WindowsOn(day)) == 0 {
		return []space.Slot{}, nil
	}

	// 24:00 までの時間帯を含めるため翌日0時までを対象にする
	within := timeslot.Interval{Start: day, End: day.AddDate(0, 0, 1)}

	reservations, err := s.reservationRepo.ListBlockingInRange(ctx, sp.ID, within)
	if err != nil {
		return nil, fmt.Errorf("予約の取得に失敗: %w", err)
	}
	blocks, err := s.spaceRepo.ListBlocks(ctx, sp.ID, within)
	if err != nil {
		return nil, fmt.Errorf("利用停止期間の取得に失敗: %w", err)
	}

	busy := make([]timeslot.Interval, 0, len(reservations)+len(blocks))
	for _, r := range reservations {
		if r.BlocksSlot() {
			busy = append(busy, r.Interval())
		}
	}
	for _, b := range blocks {
		busy = append(busy, b.Interval())
	}

	return space.EnumerateSlots(day, cal, sp.SlotDuration(s.settings.DefaultSlotDuration), busy), nil
}
