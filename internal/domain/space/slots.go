package space

import (
	"sort"
	"time"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
)

// DefaultSlotDuration はシステム既定の予約枠の長さ
const DefaultSlotDuration = time.Hour

// Slot は表示用の固定長予約枠
type Slot struct {
	Start     time.Time
	End       time.Time
	Available bool
}

// EnumerateSlots は date の曜日に該当する時間帯を granularity ごとに分割し、
// busy（有効な予約と利用停止期間）と重なる枠を利用不可としてマークする
//
// 時間帯が無い日は空のリストを返す（予約検証と違い、未設定を全開放とはみなさない）。
// 時間帯の末尾で granularity に満たない端数は枠にしない。
func EnumerateSlots(date time.Time, cal *Calendar, granularity time.Duration, busy []timeslot.Interval) []Slot {
	if granularity <= 0 {
		granularity = DefaultSlotDuration
	}
	windows := cal.WindowsOn(date)
	slots := make([]Slot, 0)
	for _, w := range windows {
		span := w.On(date, cal.Location())
		for start := span.Start; ; start = start.Add(granularity) {
			end := start.Add(granularity)
			if end.After(span.End) {
				break
			}
			candidate := timeslot.Interval{Start: start, End: end}
			slots = append(slots, Slot{
				Start:     start,
				End:       end,
				Available: !overlapsAny(candidate, busy),
			})
		}
	}
	sort.SliceStable(slots, func(a, b int) bool {
		return slots[a].Start.Before(slots[b].Start)
	})
	return slots
}

func overlapsAny(i timeslot.Interval, others []timeslot.Interval) bool {
	for _, o := range others {
		if o.Overlaps(i) {
			return true
		}
	}
	return false
}
