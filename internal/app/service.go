package app

import (
	"context"
	"errors"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

// Service 可启停的后台服务（HTTP、队列 worker）
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// StopHook 所有服务停止后执行的清理，例如关闭连接池
type StopHook func(ctx context.Context) error

// Runner 服务运行器
type Runner struct {
	services []Service
	hooks    []StopHook
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// OnStop 注册停止后清理，按注册的逆序执行
func (r *Runner) OnStop(hook StopHook) {
	if r == nil || hook == nil {
		return
	}
	r.hooks = append(r.hooks, hook)
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}
	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// Run 启动全部服务，任一服务退出或收到信号后统一停止
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, logger *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(r.services))
	for _, svc := range r.services {
		if svc == nil {
			errCh <- errors.New("service is nil")
			continue
		}
		go func(service Service) {
			logger.Infow("service_start", "service", service.Name())
			errCh <- service.Start(ctx)
			logger.Infow("service_exit", "service", service.Name())
		}(svc)
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-errCh:
		runErr = err
	}
	cancel()

	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	r.stop(stopCtx, logger)

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func (r *Runner) stop(ctx context.Context, logger *zap.SugaredLogger) {
	for _, svc := range r.services {
		if svc == nil {
			continue
		}
		started := time.Now()
		if err := svc.Stop(ctx); err != nil {
			logger.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
			continue
		}
		logger.Infow("service_stopped", "service", svc.Name(), "elapsed_ms", time.Since(started).Milliseconds())
	}
	for i := len(r.hooks) - 1; i >= 0; i-- {
		if err := r.hooks[i](ctx); err != nil {
			logger.Warnw("service_stop_hook_failed", "error", err)
		}
	}
}
