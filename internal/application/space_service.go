package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
	redisinfra "github.com/sanosuguru/go-amenity-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-amenity-reservation/internal/pkg/logger"
)

// SpaceService は施設と、その利用可能時間帯・利用停止期間・ルールを管理する
type SpaceService struct {
	spaceRepo space.Repository
	slotCache redisinfra.SlotCacheInterface
}

func NewSpaceService(spaceRepo space.Repository, cache redisinfra.SlotCacheInterface) *SpaceService {
	return &SpaceService{spaceRepo: spaceRepo, slotCache: cache}
}

type CreateSpaceInput struct {
	Name   string
	Policy space.Policy
}

func (s *SpaceService) CreateSpace(ctx context.Context, input CreateSpaceInput) (*space.Space, error) {
	sp := space.NewSpace(input.Name, input.Policy)
	if err := sp.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.spaceRepo.Create(ctx, sp); err != nil {
		return nil, fmt.Errorf("施設作成に失敗しました: %w", err)
	}
	logger.Info("施設を作成しました", logger.SpaceID(sp.ID), zap.String("name", sp.Name))
	return sp, nil
}

func (s *SpaceService) GetSpace(ctx context.Context, id string) (*space.Space, error) {
	return s.spaceRepo.GetByID(ctx, id)
}

// DeactivateSpace は施設を無効化する。既存の予約には影響しない
func (s *SpaceService) DeactivateSpace(ctx context.Context, id string) (*space.Space, error) {
	sp, err := s.spaceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sp.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.spaceRepo.Update(ctx, sp); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return sp, nil
}

type AddAvailabilityInput struct {
	SpaceID   string
	DayOfWeek time.Weekday
	StartTime string
	EndTime   string
}

func (s *SpaceService) AddAvailability(ctx context.Context, input AddAvailabilityInput) (*space.Availability, error) {
	if _, err := s.spaceRepo.GetByID(ctx, input.SpaceID); err != nil {
		return nil, err
	}
	start, err := timeslot.ParseClockTime(input.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", space.ErrInvalidWindow, err)
	}
	end, err := timeslot.ParseClockTime(input.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", space.ErrInvalidWindow, err)
	}
	a := space.NewAvailability(input.SpaceID, input.DayOfWeek, start, end)
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.spaceRepo.AddAvailability(ctx, a); err != nil {
		return nil, err
	}
	s.invalidate(ctx, input.SpaceID)
	return a, nil
}

func (s *SpaceService) RemoveAvailability(ctx context.Context, spaceID, availabilityID string) error {
	if err := s.spaceRepo.DeleteAvailability(ctx, spaceID, availabilityID); err != nil {
		return err
	}
	s.invalidate(ctx, spaceID)
	return nil
}

func (s *SpaceService) ListAvailability(ctx context.Context, spaceID string) ([]*space.Availability, error) {
	if _, err := s.spaceRepo.GetByID(ctx, spaceID); err != nil {
		return nil, err
	}
	return s.spaceRepo.ListAvailability(ctx, spaceID)
}

type AddBlockInput struct {
	SpaceID   string
	StartAt   time.Time
	EndAt     time.Time
	Reason    string
	CreatedBy string
	Notes     *string
}

func (s *SpaceService) AddBlock(ctx context.Context, input AddBlockInput) (*space.Block, error) {
	if _, err := s.spaceRepo.GetByID(ctx, input.SpaceID); err != nil {
		return nil, err
	}
	b := space.NewBlock(input.SpaceID, input.StartAt, input.EndAt, input.Reason, input.CreatedBy, input.Notes)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.spaceRepo.AddBlock(ctx, b); err != nil {
		return nil, err
	}
	s.invalidate(ctx, input.SpaceID)
	logger.Info("利用停止期間を登録しました",
		logger.SpaceID(b.SpaceID),
		zap.Time("start_at", b.StartAt),
		zap.Time("end_at", b.EndAt),
	)
	return b, nil
}

func (s *SpaceService) RemoveBlock(ctx context.Context, spaceID, blockID string) error {
	if err := s.spaceRepo.DeleteBlock(ctx, spaceID, blockID); err != nil {
		return err
	}
	s.invalidate(ctx, spaceID)
	return nil
}

// ListBlocks は区間と重なる利用停止期間を返す
func (s *SpaceService) ListBlocks(ctx context.Context, spaceID string, from, to time.Time) ([]*space.Block, error) {
	within, err := timeslot.NewInterval(from, to)
	if err != nil {
		return nil, space.ErrInvalidBlockRange
	}
	if _, err := s.spaceRepo.GetByID(ctx, spaceID); err != nil {
		return nil, err
	}
	return s.spaceRepo.ListBlocks(ctx, spaceID, within)
}

// SetRule は施設ルールを設定する
func (s *SpaceService) SetRule(ctx context.Context, spaceID, key, value string) (*space.Rule, error) {
	if _, err := s.spaceRepo.GetByID(ctx, spaceID); err != nil {
		return nil, err
	}
	r := space.NewRule(spaceID, key, value)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.spaceRepo.UpsertRule(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SpaceService) ListRules(ctx context.Context, spaceID string) (space.Rules, error) {
	if _, err := s.spaceRepo.GetByID(ctx, spaceID); err != nil {
		return nil, err
	}
	return s.spaceRepo.ListRules(ctx, spaceID)
}

func (s *SpaceService) invalidate(ctx context.Context, spaceID string) {
	if s.slotCache == nil {
		return
	}
	if err := s.slotCache.Invalidate(ctx, spaceID); err != nil {
		logger.Warn("空き枠キャッシュ無効化エラー", logger.SpaceID(spaceID), zap.Error(err))
	}
}
