package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/congdong-blog/internal/http/response"
	"github.com/congdong-blog/internal/i18n"
	"github.com/congdong-blog/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
}

// RateCounter 固定窗口计数，返回窗口内的累计次数与剩余时间
type RateCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

type redisRateCounter struct {
	client *redis.Client
}

// NewRedisRateCounter 基于 Redis 的计数器，未启用 Redis 时返回 nil（不限流）
func NewRedisRateCounter(client *redis.Client) RateCounter {
	if client == nil {
		return nil
	}
	return &redisRateCounter{client: client}
}

func (r *redisRateCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	seconds := int(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	result, err := rateLimitScript.Run(ctx, r.client, []string{key}, seconds).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(result) < 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit reply: %v", result)
	}
	return result[0], time.Duration(result[1]) * time.Second, nil
}

// RateLimitMiddleware 频率限制中间件，计数器不可用时放行并记录告警
func RateLimitMiddleware(counter RateCounter, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		window := time.Duration(rule.WindowSeconds) * time.Second
		count, ttl, err := counter.Hit(c.Request.Context(), key, window)
		if err != nil {
			logger.Warnw("rate_limit_counter_failed", "rule", rule.Prefix, "error", err)
			c.Next()
			return
		}
		if count > int64(rule.MaxRequests) {
			waitSeconds := int(ttl / time.Second)
			if waitSeconds < 1 {
				waitSeconds = rule.WindowSeconds
			}
			msg := i18n.Sprintf(i18n.ResolveLocale(c), "error.rate_limited", waitSeconds)
			response.Error(c, response.CodeTooManyRequests, msg)
			c.Abort()
			return
		}

		c.Next()
	}
}

// KeyByIP 使用客户端 IP 作为限流 key；作者名由用户随意填写，不参与计数
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}
