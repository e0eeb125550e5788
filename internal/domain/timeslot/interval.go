package timeslot

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInterval  = errors.New("終了時刻は開始時刻より後である必要があります")
	ErrInvalidClockTime = errors.New("時刻はHH:MM形式である必要があります")
)

// Interval は半開区間 [Start, End) を表す
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval は区間を作成する（Start < End が必須）
func NewInterval(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

// Duration は区間の長さを返す
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps は2つの区間が1瞬でも重なるかを返す
// 端点が接するだけの場合は重ならない
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// Contains は other が完全に含まれるかを返す
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}

// ClockTime は日付を持たない壁時計の時刻（0時からの分）
type ClockTime int

const minutesPerDay = 24 * 60

// ParseClockTime は "HH:MM" または "HH:MM:SS" をパースする
// 終日枠を表すため "24:00" も許可する
func ParseClockTime(s string) (ClockTime, error) {
	if s == "24:00" || s == "24:00:00" {
		return ClockTime(minutesPerDay), nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
}

// MustClockTime はテストや定数用のヘルパー
func MustClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf は t の loc における壁時計時刻を返す
func ClockOf(t time.Time, loc *time.Location) ClockTime {
	lt := t.In(loc)
	return ClockTime(lt.Hour()*60 + lt.Minute())
}

// On は date と同じ暦日の loc における時刻を返す
func (c ClockTime) On(date time.Time, loc *time.Location) time.Time {
	d := date.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), int(c)/60, int(c)%60, 0, 0, loc)
}

// Valid は時刻が 00:00〜24:00 の範囲かを返す
func (c ClockTime) Valid() bool {
	return c >= 0 && c <= minutesPerDay
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// SameDay は2つの時刻が loc において同じ暦日かを返す
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// StartOfDay は loc における t の暦日の0時を返す
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// MonthRange は loc における t の暦月を区間で返す
func MonthRange(t time.Time, loc *time.Location) Interval {
	lt := t.In(loc)
	start := time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, loc)
	return Interval{Start: start, End: start.AddDate(0, 1, 0)}
}
