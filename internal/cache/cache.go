package cache

import (
	"context"
	"time"
)

// Store 查询结果缓存，值以 JSON 存储
type Store interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Incr 原子自增并返回新值，键不存在时从 0 开始
	Incr(ctx context.Context, key string) (int64, error)
	Close() error
}
