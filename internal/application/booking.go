package application

import (
	"time"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
)

// Clock は現在時刻を提供する
type Clock interface {
	Now() time.Time
}

// ClockFunc は関数を Clock として扱う
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock はシステム時刻を返す Clock
var SystemClock Clock = ClockFunc(time.Now)

// BookingSettings は予約処理全体の設定
type BookingSettings struct {
	// Location は曜日・壁時計時刻・暦月を解釈するタイムゾーン
	Location *time.Location
	// DefaultSlotDuration は施設に枠長が設定されていない場合の枠長
	DefaultSlotDuration time.Duration

	LockTTL        time.Duration
	LockRetries    int
	LockRetryDelay time.Duration

	SlotCacheTTL time.Duration
}

// DefaultBookingSettings は既定の設定を返す
func DefaultBookingSettings() BookingSettings {
	return BookingSettings{
		Location:            time.UTC,
		DefaultSlotDuration: space.DefaultSlotDuration,
		LockTTL:             10 * time.Second,
		LockRetries:         3,
		LockRetryDelay:      100 * time.Millisecond,
		SlotCacheTTL:        30 * time.Second,
	}
}

func (s BookingSettings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
