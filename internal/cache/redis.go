package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/congdong-blog/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisStore 基于 Redis 的共享缓存，多实例部署时失效信号对所有实例可见
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisClient 按配置创建 Redis 客户端，未启用时返回 nil
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	addr := strings.TrimSpace(cfg.Host)
	if addr == "" {
		addr = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", addr, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisStore 创建 Redis 缓存
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "blog"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// GetJSON 获取 JSON 缓存
func (s *RedisStore) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := s.client.Get(ctx, s.buildKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func (s *RedisStore) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.buildKey(key), payload, ttl).Err()
}

// Incr 原子自增
func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, s.buildKey(key)).Result()
}

// Close 关闭客户端
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) buildKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return s.prefix
	}
	return fmt.Sprintf("%s:%s", s.prefix, trimmed)
}
