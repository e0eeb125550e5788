package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
	redisinfra "github.com/sanosuguru/go-amenity-reservation/internal/infrastructure/redis"
)

func TestSlotService_ListAvailableSlots(t *testing.T) {
	ctx := context.Background()

	t.Run("月曜は1時間枠が14件", func(t *testing.T) {
		e := newTestEnv(false)
		slots, err := e.slotService.ListAvailableSlots(ctx, e.spaceID, nextMonday)
		require.NoError(t, err)
		require.Len(t, slots, 14)
		assert.Equal(t, at(nextMonday, 8, 0), slots[0].Start)
		assert.Equal(t, at(nextMonday, 22, 0), slots[13].End)
		for _, s := range slots {
			assert.True(t, s.Available)
		}
	})

	t.Run("枠の長さは施設設定に従う", func(t *testing.T) {
		e := newTestEnv(false)
		sp := e.store.spaces[e.spaceID]
		sp.SlotDurationMinutes = 90

		slots, err := e.slotService.ListAvailableSlots(ctx, e.spaceID, nextMonday)
		require.NoError(t, err)
		// 14時間を90分で割ると9枠、端数30分は枠にしない
		require.Len(t, slots, 9)
		assert.Equal(t, at(nextMonday, 21, 30), slots[8].End)
	})

	t.Run("時間帯が未設定なら空", func(t *testing.T) {
		e := newTestEnv(false)
		e.store.windows[e.spaceID] = nil
		slots, err := e.slotService.ListAvailableSlots(ctx, e.spaceID, nextMonday)
		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("無効化された施設は空", func(t *testing.T) {
		e := newTestEnv(false)
		_, err := e.spaceSvc.DeactivateSpace(ctx, e.spaceID)
		require.NoError(t, err)
		slots, err := e.slotService.ListAvailableSlots(ctx, e.spaceID, nextMonday)
		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("存在しない施設", func(t *testing.T) {
		e := newTestEnv(false)
		_, err := e.slotService.ListAvailableSlots(ctx, "missing", nextMonday)
		assert.ErrorIs(t, err, space.ErrSpaceNotFound)
	})
}

func TestSlotService_Cache(t *testing.T) {
	ctx := context.Background()
	date := nextMonday.Format(DateLayout)

	t.Run("キャッシュヒット時は再計算しない", func(t *testing.T) {
		e := newTestEnv(false)
		cached := []space.Slot{{Start: at(nextMonday, 8, 0), End: at(nextMonday, 9, 0), Available: false}}
		cache := new(MockSlotCache)
		cache.On("Get", mock.Anything, e.spaceID, date).Return(cached, int64(0), nil)

		svc := NewSlotService(e.store, e.store.reservationRepo(), cache, DefaultBookingSettings())
		slots, err := svc.ListAvailableSlots(ctx, e.spaceID, nextMonday)
		require.NoError(t, err)
		assert.Equal(t, cached, slots)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("キャッシュミス時は計算結果を保存する", func(t *testing.T) {
		e := newTestEnv(false)
		settings := DefaultBookingSettings()
		cache := new(MockSlotCache)
		cache.On("Get", mock.Anything, e.spaceID, date).Return(nil, int64(3), redisinfra.ErrCacheMiss)
		cache.On("Set", mock.Anything, e.spaceID, date, int64(3), mock.MatchedBy(func(s []space.Slot) bool { return len(s) == 14 }), settings.SlotCacheTTL).
			Return(nil)

		svc := NewSlotService(e.store, e.store.reservationRepo(), cache, settings)
		slots, err := svc.ListAvailableSlots(ctx, e.spaceID, nextMonday)
		require.NoError(t, err)
		assert.Len(t, slots, 14)
		cache.AssertExpectations(t)
	})

	t.Run("計算中に無効化されてもミスを確認した世代に保存する", func(t *testing.T) {
		e := newTestEnv(false)
		cache := new(MockSlotCache)
		cache.On("Get", mock.Anything, e.spaceID, date).Return(nil, int64(7), redisinfra.ErrCacheMiss)
		// 計算中に無効化で世代が 8 に進んでも、保存先は 7 のまま
		cache.On("Set", mock.Anything, e.spaceID, date, int64(7), mock.Anything, mock.Anything).Return(nil).Once()

		svc := NewSlotService(e.store, e.store.reservationRepo(), cache, DefaultBookingSettings())
		_, err := svc.ListAvailableSlots(ctx, e.spaceID, nextMonday)
		require.NoError(t, err)
		cache.AssertExpectations(t)
		cache.AssertNotCalled(t, "Set", mock.Anything, e.spaceID, date, int64(8), mock.Anything, mock.Anything)
	})

	t.Run("取得エラー時は保存しない", func(t *testing.T) {
		e := newTestEnv(false)
		cache := new(MockSlotCache)
		cache.On("Get", mock.Anything, e.spaceID, date).Return(nil, int64(0), errors.New("redis down"))

		svc := NewSlotService(e.store, e.store.reservationRepo(), cache, DefaultBookingSettings())
		slots, err := svc.ListAvailableSlots(ctx, e.spaceID, nextMonday)
		require.NoError(t, err)
		assert.Len(t, slots, 14)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSlotService_ParseDate(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	settings := DefaultBookingSettings()
	settings.Location = tokyo
	svc := NewSlotService(nil, nil, nil, settings)

	d, err := svc.ParseDate("2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, tokyo), d)

	_, err = svc.ParseDate("19/10/2026")
	assert.Error(t, err)
}
