package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SlotCacheInterface は空き枠スナップショットのキャッシュ
type SlotCacheInterface interface {
	Get(ctx context.Context, spaceID, date string) ([]space.Slot, int64, error)
	Set(ctx context.Context, spaceID, date string, ver int64, slots []space.Slot, ttl time.Duration) error
	Invalidate(ctx context.Context, spaceID string) error
}

var _ SlotCacheInterface = (*SlotCache)(nil)

// SlotCache は施設・日付ごとの空き枠一覧をキャッシュする
// 無効化は施設単位の世代番号を進めることで行い、古い世代のキーは TTL で消える
// Set には Get で読んだ世代を渡す。計算中に無効化された一覧は古い世代に書かれ、読まれない
type SlotCache struct {
	client *redis.Client
}

// NewSlotCache は新しいSlotCacheインスタンスを作成する
func NewSlotCache(client *redis.Client) *SlotCache {
	return &SlotCache{client: client}
}

type cachedSlot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// Get は空き枠一覧をキャッシュから取得する
// ミスの場合も読んだ世代を返す
func (c *SlotCache) Get(ctx context.Context, spaceID, date string) ([]space.Slot, int64, error) {
	ver, err := c.version(ctx, spaceID)
	if err != nil {
		return nil, 0, err
	}
	raw, err := c.client.Get(ctx, c.slotsKey(spaceID, ver, date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ver, ErrCacheMiss
		}
		return nil, ver, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}

	var entries []cachedSlot
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, ver, fmt.Errorf("キャッシュの復元に失敗: %w", err)
	}
	slots := make([]space.Slot, len(entries))
	for i, e := range entries {
		slots[i] = space.Slot{Start: e.Start, End: e.End, Available: e.Available}
	}
	return slots, ver, nil
}

// Set は世代 ver の空き枠一覧としてキャッシュに保存する
func (c *SlotCache) Set(ctx context.Context, spaceID, date string, ver int64, slots []space.Slot, ttl time.Duration) error {
	entries := make([]cachedSlot, len(slots))
	for i, s := range slots {
		entries[i] = cachedSlot{Start: s.Start, End: s.End, Available: s.Available}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("キャッシュのエンコードに失敗: %w", err)
	}
	if err := c.client.Set(ctx, c.slotsKey(spaceID, ver, date), raw, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は施設の全日付のキャッシュを無効化する
func (c *SlotCache) Invalidate(ctx context.Context, spaceID string) error {
	if err := c.client.Incr(ctx, c.versionKey(spaceID)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *SlotCache) version(ctx context.Context, spaceID string) (int64, error) {
	ver, err := c.client.Get(ctx, c.versionKey(spaceID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("キャッシュ世代の取得に失敗: %w", err)
	}
	return ver, nil
}

func (c *SlotCache) versionKey(spaceID string) string {
	return fmt.Sprintf("slots:ver:%s", spaceID)
}

func (c *SlotCache) slotsKey(spaceID string, ver int64, date string) string {
	return fmt.Sprintf("slots:%s:%d:%s", spaceID, ver, date)
}
