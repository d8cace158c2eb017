package worker

import (
	"context"
	"errors"
	"time"

	"github.com/congdong-blog/internal/config"
	"github.com/congdong-blog/internal/logger"
	"github.com/congdong-blog/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	poolHealthInterval = time.Minute
	poolHealthTimeout  = 10 * time.Second
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.pool != nil {
		go runPoolHealthLoop(ctx, s.consumer.pool, poolHealthInterval)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runPoolHealthLoop 定期探活并记录连接池状态，探活失败的连接由连接池自行丢弃
func runPoolHealthLoop(ctx context.Context, pool PoolChecker, interval time.Duration) {
	if pool == nil {
		return
	}
	runOnce := func() {
		checkPool(ctx, pool)
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func checkPool(ctx context.Context, pool PoolChecker) bool {
	probeCtx, cancel := context.WithTimeout(ctx, poolHealthTimeout)
	defer cancel()
	stats := pool.Stats()
	if err := pool.Ping(probeCtx); err != nil {
		logger.Warnw("worker_pool_health_failed",
			"error", err,
			"open_conns", stats.OpenConns,
			"in_use", stats.InUse,
			"discarded", stats.Discarded,
		)
		return false
	}
	logger.Debugw("worker_pool_health_ok",
		"open_conns", stats.OpenConns,
		"in_use", stats.InUse,
		"idle", stats.Idle,
		"wait_count", stats.WaitCount,
		"probe_failures", stats.ProbeFailures,
	)
	return true
}
