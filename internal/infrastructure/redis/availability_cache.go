package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// AvailabilityCache は便の空席数キャッシュを管理する
// 座席状態をコミットするたびに無効化される読み取り用キャッシュ
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetAvailableCount は便の空席数をキャッシュから取得する
func (c *AvailabilityCache) GetAvailableCount(ctx context.Context, flightID string) (int, error) {
	key := c.availableCountKey(flightID)
	val, err := c.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailableCount は便の空席数をキャッシュに保存する
func (c *AvailabilityCache) SetAvailableCount(ctx context.Context, flightID string, count int, ttl time.Duration) error {
	key := c.availableCountKey(flightID)
	err := c.client.Set(ctx, key, count, ttl).Err()
	if err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は便のキャッシュを無効化する
func (c *AvailabilityCache) Invalidate(ctx context.Context, flightID string) error {
	key := c.availableCountKey(flightID)
	err := c.client.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) availableCountKey(flightID string) string {
	return fmt.Sprintf("flights:available:%s", flightID)
}
