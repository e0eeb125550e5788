package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/directory"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-amenity-reservation/internal/pkg/logger"
)

// BookingValidator は予約申請を受け付けてよいかを判定する
//
// 判定は下記の順で行い、最初に失敗したチェックの理由を返す。
//
//	0. 入力の整合性（開始 < 終了、人数 >= 1）
//	1. 施設が存在し有効
//	2. 住戸が存在し有効
//	3. 居住者が存在し有効
//	4. 住戸に利用制限が無い
//	5. 利用可能時間帯に収まる（時間帯が未設定なら省略）
//	6. 最低事前通知時間
//	7. 最大先行予約日数
//	8. 最大利用時間
//	9. 定員
//	10. 住戸の月間予約上限
//	11. 施設ロック下で他の予約と重ならない
//	12. 利用停止期間と重ならない
//
// 11 以降は tx で施設ロックを取得した状態で評価する。ロックは tx の終了まで保持される。
type BookingValidator struct {
	spaces       space.Repository
	reservations reservation.Repository
	units        directory.UnitDirectory
	residents    directory.ResidentDirectory
	accessBlocks directory.AccessBlockChecker
	loc          *time.Location
}

func NewBookingValidator(
	spaces space.Repository,
	reservations reservation.Repository,
	units directory.UnitDirectory,
	residents directory.ResidentDirectory,
	accessBlocks directory.AccessBlockChecker,
	loc *time.Location,
) *BookingValidator {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingValidator{
		spaces:       spaces,
		reservations: reservations,
		units:        units,
		residents:    residents,
		accessBlocks: accessBlocks,
		loc:          loc,
	}
}

// Validate は申請を検証し、受付可能なら対象の施設を返す
func (v *BookingValidator) Validate(ctx context.Context, tx transaction.Tx, req reservation.Request, now time.Time) (*space.Space, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	interval := req.Interval()

	sp, err := v.spaces.GetByID(ctx, req.SpaceID)
	if err != nil {
		return nil, fmt.Errorf("施設取得に失敗: %w", err)
	}
	if !sp.IsActive() {
		return nil, reservation.ErrSpaceInactive
	}

	unit, err := v.units.FindUnit(ctx, req.UnitID)
	if err != nil {
		return nil, fmt.Errorf("住戸取得に失敗: %w", err)
	}
	if !unit.IsActive() {
		return nil, reservation.ErrUnitInactive
	}

	resident, err := v.residents.FindResident(ctx, req.ResidentID)
	if err != nil {
		return nil, fmt.Errorf("居住者取得に失敗: %w", err)
	}
	if !resident.IsActive() {
		return nil, reservation.ErrResidentInactive
	}

	blocked, err := v.accessBlocks.HasActiveAccessBlock(ctx, req.UnitID)
	if err != nil {
		return nil, fmt.Errorf("利用制限の確認に失敗: %w", err)
	}
	if blocked {
		return nil, reservation.ErrUnitAccessBlocked
	}

	windows, err := v.spaces.ListAvailability(ctx, sp.ID)
	if err != nil {
		return nil, fmt.Errorf("利用可能時間帯の取得に失敗: %w", err)
	}
	if !space.NewCalendar(windows, nil, v.loc).IsWithinAvailability(interval) {
		return nil, reservation.ErrOutsideAvailability
	}

	if now.Add(sp.MinAdvance()).After(interval.Start) {
		return nil, reservation.ErrBelowMinimumAdvance
	}
	if interval.Start.After(now.Add(sp.MaxAdvance())) {
		return nil, reservation.ErrAboveMaximumAdvance
	}

	if maxDur, ok := sp.MaxDuration(); ok && interval.Duration() > maxDur {
		return nil, reservation.ErrDurationExceedsMax
	}

	if req.ExpectedGuests > sp.Capacity {
		return nil, reservation.ErrCapacityExceeded
	}

	// 月間件数と重複は同じ施設ロックの下で数える
	if err := v.reservations.LockSpace(ctx, tx, sp.ID); err != nil {
		return nil, err
	}
	if err := v.checkMonthlyLimit(ctx, tx, sp.ID, req.UnitID, interval); err != nil {
		return nil, err
	}
	if err := v.CheckOverlap(ctx, tx, sp.ID, interval, ""); err != nil {
		return nil, err
	}

	blocks, err := v.spaces.ListBlocks(ctx, sp.ID, interval)
	if err != nil {
		return nil, fmt.Errorf("利用停止期間の取得に失敗: %w", err)
	}
	if space.NewCalendar(nil, blocks, v.loc).IsBlocked(interval) {
		return nil, reservation.ErrSpaceBlocked
	}

	return sp, nil
}

// CheckOverlap は施設ロックを保持した tx 内で、区間と重なる枠占有中の予約が無いことを確認する
// 承認時の再検証でも使う（excludeID に自身を指定）
func (v *BookingValidator) CheckOverlap(ctx context.Context, tx transaction.Tx, spaceID string, interval timeslot.Interval, excludeID string) error {
	overlapping, err := v.reservations.FindOverlapping(ctx, tx, spaceID, interval, excludeID)
	if err != nil {
		return fmt.Errorf("重複予約の確認に失敗: %w", err)
	}
	if len(overlapping) > 0 {
		return reservation.ErrOverlappingReservation
	}
	return nil
}

func (v *BookingValidator) checkMonthlyLimit(ctx context.Context, tx transaction.Tx, spaceID, unitID string, interval timeslot.Interval) error {
	rules, err := v.spaces.ListRules(ctx, spaceID)
	if err != nil {
		return fmt.Errorf("施設ルールの取得に失敗: %w", err)
	}
	limit, ok, err := rules.MonthlyReservationLimit()
	if err != nil {
		// 解釈できない値は未設定として扱う
		logger.Warn("月間予約上限ルールを無視します", logger.SpaceID(spaceID), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	month := timeslot.MonthRange(interval.Start, v.loc)
	count, err := v.reservations.CountByUnit(ctx, tx, spaceID, unitID, month, reservation.QuotaStatuses)
	if err != nil {
		return fmt.Errorf("月間予約数の取得に失敗: %w", err)
	}
	if count >= limit {
		return reservation.ErrMonthlyLimitExceeded
	}
	return nil
}
