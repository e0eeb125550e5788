package space

import (
	"sort"
	"time"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
)

// Calendar は施設の週次利用可能時間帯と利用停止期間から空き判定を行う
type Calendar struct {
	windows []*Availability
	blocks  []*Block
	loc     *time.Location
}

// NewCalendar は新しいカレンダーを作成する
// loc は壁時計時刻を解釈するタイムゾーン
func NewCalendar(windows []*Availability, blocks []*Block, loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{windows: windows, blocks: blocks, loc: loc}
}

// HasWindows は利用可能時間帯が1件以上設定されているかを返す
func (c *Calendar) HasWindows() bool {
	return len(c.windows) > 0
}

// IsWithinAvailability は区間が開始日の曜日のいずれかの時間帯に完全に収まるかを返す
// 時間帯が1件も設定されていない施設は常に利用可能として扱う
func (c *Calendar) IsWithinAvailability(i timeslot.Interval) bool {
	if !c.HasWindows() {
		return true
	}
	for _, w := range c.WindowsOn(i.Start) {
		if w.On(i.Start, c.loc).Contains(i) {
			return true
		}
	}
	return false
}

// IsBlocked は区間がいずれかの利用停止期間と重なるかを返す
func (c *Calendar) IsBlocked(i timeslot.Interval) bool {
	for _, b := range c.blocks {
		if b.Interval().Overlaps(i) {
			return true
		}
	}
	return false
}

// WindowsOn は date の曜日に該当する時間帯を開始時刻順で返す
func (c *Calendar) WindowsOn(date time.Time) []*Availability {
	day := date.In(c.loc).Weekday()
	var result []*Availability
	for _, w := range c.windows {
		if w.DayOfWeek == day {
			result = append(result, w)
		}
	}
	sort.SliceStable(result, func(a, b int) bool {
		return result[a].StartTime < result[b].StartTime
	})
	return result
}

// Location はカレンダーのタイムゾーンを返す
func (c *Calendar) Location() *time.Location {
	return c.loc
}
