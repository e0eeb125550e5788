package space

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RuleMaxMonthlyReservationsPerUnit は住戸ごとの月間予約上限を表すルールキー
const RuleMaxMonthlyReservationsPerUnit = "max_monthly_reservations_per_unit"

// Rule は施設単位の自由形式のキー/値設定
type Rule struct {
	SpaceID   string
	Key       string
	Value     string
	UpdatedAt time.Time
}

// NewRule は新しいルールを作成する
func NewRule(spaceID, key, value string) *Rule {
	return &Rule{
		SpaceID:   spaceID,
		Key:       strings.TrimSpace(key),
		Value:     strings.TrimSpace(value),
		UpdatedAt: time.Now(),
	}
}

// Validate はルールの検証を行う
func (r *Rule) Validate() error {
	if r.SpaceID == "" {
		return ErrSpaceIDRequired
	}
	if r.Key == "" {
		return ErrRuleKeyRequired
	}
	if r.Key == RuleMaxMonthlyReservationsPerUnit {
		if _, err := parseLimit(r.Value); err != nil {
			return err
		}
	}
	return nil
}

// Rules は施設に紐づくルールの集合
type Rules []*Rule

// Get はキーに対応する値を返す
func (rs Rules) Get(key string) (string, bool) {
	for _, r := range rs {
		if r.Key == key {
			return r.Value, true
		}
	}
	return "", false
}

// MonthlyReservationLimit は住戸ごとの月間予約上限を返す
// ルールが無い場合は ok=false（無制限）
func (rs Rules) MonthlyReservationLimit() (limit int, ok bool, err error) {
	v, found := rs.Get(RuleMaxMonthlyReservationsPerUnit)
	if !found {
		return 0, false, nil
	}
	limit, err = parseLimit(v)
	if err != nil {
		return 0, false, err
	}
	return limit, true, nil
}

// parseLimit は1以上の整数のみ受け付ける。予約を止める場合は施設を無効化する
func parseLimit(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidRuleValue, RuleMaxMonthlyReservationsPerUnit, v)
	}
	return n, nil
}
