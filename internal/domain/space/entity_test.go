package space

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
)

func intPtr(v int) *int { return &v }

func TestNewSpace(t *testing.T) {
	s := NewSpace("パーティールーム", Policy{
		Capacity:                  50,
		RequiresApproval:          true,
		MaxDurationHours:          intPtr(8),
		MaxAdvanceDays:            60,
		MinAdvanceHours:           24,
		CancellationDeadlineHours: 48,
	})

	require.NoError(t, s.Validate())
	assert.Equal(t, "パーティールーム", s.Name)
	assert.Equal(t, 50, s.Capacity)
	assert.True(t, s.RequiresApproval)
	assert.True(t, s.IsActive())
	assert.NotZero(t, s.CreatedAt)

	d, ok := s.MaxDuration()
	assert.True(t, ok)
	assert.Equal(t, 8*time.Hour, d)
	assert.Equal(t, 24*time.Hour, s.MinAdvance())
	assert.Equal(t, 60*24*time.Hour, s.MaxAdvance())
	assert.Equal(t, 48*time.Hour, s.CancellationDeadline())
	assert.Equal(t, time.Hour, s.SlotDuration(time.Hour))
}

func TestSpace_Validate(t *testing.T) {
	tests := []struct {
		name        string
		space       *Space
		expectedErr error
	}{
		{"有効な施設", &Space{Name: "プール", Capacity: 10}, nil},
		{"施設名が空", &Space{Name: "", Capacity: 10}, ErrSpaceNameRequired},
		{"定員が0", &Space{Name: "プール", Capacity: 0}, ErrInvalidCapacity},
		{"定員が負", &Space{Name: "プール", Capacity: -1}, ErrInvalidCapacity},
		{"最大利用時間が0", &Space{Name: "プール", Capacity: 10, MaxDurationHours: intPtr(0)}, ErrInvalidMaxDuration},
		{"最低事前時間が負", &Space{Name: "プール", Capacity: 10, MinAdvanceHours: -1}, ErrInvalidAdvancePolicy},
		{"枠長が負", &Space{Name: "プール", Capacity: 10, SlotDurationMinutes: -30}, ErrInvalidSlotDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.space.Validate()
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSpace_Deactivate(t *testing.T) {
	s := NewSpace("コート", Policy{Capacity: 4})

	require.NoError(t, s.Deactivate())
	assert.False(t, s.IsActive())

	assert.ErrorIs(t, s.Deactivate(), ErrSpaceAlreadyInactive)
}

func TestSpace_MaxDurationUnset(t *testing.T) {
	s := NewSpace("コート", Policy{Capacity: 4, SlotDurationMinutes: 30})
	_, ok := s.MaxDuration()
	assert.False(t, ok)
	assert.Equal(t, 30*time.Minute, s.SlotDuration(time.Hour))
}

func TestAvailability_Validate(t *testing.T) {
	tests := []struct {
		name        string
		a           *Availability
		expectedErr error
	}{
		{"有効な時間帯", NewAvailability("space-1", time.Monday, timeslot.MustClockTime("08:00"), timeslot.MustClockTime("22:00")), nil},
		{"施設IDが空", NewAvailability("", time.Monday, timeslot.MustClockTime("08:00"), timeslot.MustClockTime("22:00")), ErrSpaceIDRequired},
		{"曜日が範囲外", NewAvailability("space-1", time.Weekday(7), timeslot.MustClockTime("08:00"), timeslot.MustClockTime("22:00")), ErrInvalidDayOfWeek},
		{"開始と終了が同じ", NewAvailability("space-1", time.Monday, timeslot.MustClockTime("08:00"), timeslot.MustClockTime("08:00")), ErrInvalidWindow},
		{"終了が開始より前", NewAvailability("space-1", time.Monday, timeslot.MustClockTime("22:00"), timeslot.MustClockTime("08:00")), ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate()
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestBlock_Validate(t *testing.T) {
	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	t.Run("有効な利用停止期間", func(t *testing.T) {
		b := NewBlock("space-1", start, start.Add(6*time.Hour), "床の補修", "admin-1", nil)
		require.NoError(t, b.Validate())
		assert.Equal(t, 6*time.Hour, b.Interval().Duration())
	})

	t.Run("終了が開始より前", func(t *testing.T) {
		b := NewBlock("space-1", start, start, "床の補修", "admin-1", nil)
		assert.ErrorIs(t, b.Validate(), ErrInvalidBlockRange)
	})

	t.Run("理由が空", func(t *testing.T) {
		b := NewBlock("space-1", start, start.Add(time.Hour), "", "admin-1", nil)
		assert.ErrorIs(t, b.Validate(), ErrBlockReasonRequired)
	})

	t.Run("登録者が空", func(t *testing.T) {
		b := NewBlock("space-1", start, start.Add(time.Hour), "床の補修", "", nil)
		assert.ErrorIs(t, b.Validate(), ErrBlockCreatorRequired)
	})
}

func TestRules_MonthlyReservationLimit(t *testing.T) {
	t.Run("ルールなしは無制限", func(t *testing.T) {
		_, ok, err := Rules{}.MonthlyReservationLimit()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ルールありは上限を返す", func(t *testing.T) {
		rules := Rules{NewRule("space-1", RuleMaxMonthlyReservationsPerUnit, " 2 ")}
		limit, ok, err := rules.MonthlyReservationLimit()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 2, limit)
	})

	t.Run("不正な値はエラー", func(t *testing.T) {
		rules := Rules{NewRule("space-1", RuleMaxMonthlyReservationsPerUnit, "two")}
		_, ok, err := rules.MonthlyReservationLimit()
		assert.ErrorIs(t, err, ErrInvalidRuleValue)
		assert.False(t, ok)
		assert.ErrorIs(t, rules[0].Validate(), ErrInvalidRuleValue)
	})

	t.Run("0以下は不正", func(t *testing.T) {
		for _, v := range []string{"0", "-1"} {
			rules := Rules{NewRule("space-1", RuleMaxMonthlyReservationsPerUnit, v)}
			_, ok, err := rules.MonthlyReservationLimit()
			assert.ErrorIs(t, err, ErrInvalidRuleValue, v)
			assert.False(t, ok, v)
			assert.ErrorIs(t, rules[0].Validate(), ErrInvalidRuleValue, v)
		}
	})

	t.Run("他のキーは自由形式", func(t *testing.T) {
		r := NewRule("space-1", "quiet_hours", "after 21:00")
		require.NoError(t, r.Validate())
		v, ok := Rules{r}.Get("quiet_hours")
		assert.True(t, ok)
		assert.Equal(t, "after 21:00", v)
	})
}
