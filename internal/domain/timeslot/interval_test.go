package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2026, 10, 19, h, m, 0, 0, time.UTC)
}

func TestNewInterval(t *testing.T) {
	_, err := NewInterval(at(10, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewInterval(at(11, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	i, err := NewInterval(at(10, 0), at(14, 0))
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, i.Duration())
}

func TestInterval_Overlaps(t *testing.T) {
	base := Interval{Start: at(10, 0), End: at(12, 0)}
	tests := []struct {
		name     string
		other    Interval
		expected bool
	}{
		{"部分的に重なる", Interval{Start: at(11, 0), End: at(13, 0)}, true},
		{"内包される", Interval{Start: at(10, 30), End: at(11, 30)}, true},
		{"内包する", Interval{Start: at(9, 0), End: at(13, 0)}, true},
		{"終了と開始が接する", Interval{Start: at(12, 0), End: at(13, 0)}, false},
		{"開始と終了が接する", Interval{Start: at(8, 0), End: at(10, 0)}, false},
		{"完全に離れている", Interval{Start: at(14, 0), End: at(15, 0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, base.Overlaps(tt.other))
			assert.Equal(t, tt.expected, tt.other.Overlaps(base))
		})
	}
}

func TestInterval_Contains(t *testing.T) {
	window := Interval{Start: at(8, 0), End: at(22, 0)}
	assert.True(t, window.Contains(Interval{Start: at(8, 0), End: at(22, 0)}))
	assert.True(t, window.Contains(Interval{Start: at(10, 0), End: at(14, 0)}))
	assert.False(t, window.Contains(Interval{Start: at(7, 0), End: at(9, 0)}))
	assert.False(t, window.Contains(Interval{Start: at(21, 0), End: at(23, 0)}))
}

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		in      string
		want    ClockTime
		wantErr bool
	}{
		{"08:00", 8 * 60, false},
		{"22:30", 22*60 + 30, false},
		{"09:15:00", 9*60 + 15, false},
		{"24:00", 24 * 60, false},
		{"25:00", 0, true},
		{"8", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClockTime(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClockTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockTime_On(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)

	date := time.Date(2026, 10, 19, 0, 0, 0, 0, loc)
	got := MustClockTime("10:30").On(date, loc)
	assert.Equal(t, time.Date(2026, 10, 19, 10, 30, 0, 0, loc), got)
	assert.Equal(t, "10:30", ClockOf(got, loc).String())

	end := MustClockTime("24:00").On(date, loc)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, loc), end)
}

func TestMonthRange(t *testing.T) {
	r := MonthRange(time.Date(2026, 12, 15, 10, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), r.End)
}
