package app

import (
	"context"
	"errors"

	"github.com/congdong-blog/internal/config"
	"github.com/congdong-blog/internal/models"
	"github.com/congdong-blog/internal/provider"
	"github.com/congdong-blog/internal/router"
	"github.com/congdong-blog/internal/worker"

	"gorm.io/gorm"
)

// BuildRunner 构建服务运行器，返回的容器需在运行结束后关闭
func BuildRunner(ctx context.Context, cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}

	container, err := provider.NewContainer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// 队列关闭时 all 模式只启动 HTTP
	if (mode == ModeAll && cfg.Queue.Enabled) || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			_ = container.Close()
			return nil, nil, err
		}
		services = append(services, workerService)
	}

	if len(services) == 0 {
		_ = container.Close()
		return nil, nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), container, nil
}

// Migrate 建表并回填旧数据
func Migrate(ctx context.Context, container *provider.Container) (models.BackfillResult, error) {
	var result models.BackfillResult
	if container == nil || container.Pool == nil {
		return result, errors.New("container not initialized")
	}
	err := container.Pool.WithConn(ctx, func(db *gorm.DB) error {
		if err := models.AutoMigrate(db); err != nil {
			return err
		}
		var err error
		result, err = models.BackfillLegacyRows(db, container.Config.Blog.DefaultAuthor)
		return err
	})
	return result, err
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, container, err := BuildRunner(context.Background(), opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	runner.OnStop(func(context.Context) error {
		return container.Close()
	})

	if !opts.SkipMigrate {
		result, err := Migrate(context.Background(), container)
		if err != nil {
			_ = container.Close()
			return err
		}
		if result.Total() > 0 {
			opts.Logger.Infow("app_legacy_rows_backfilled",
				"categories", result.Categories,
				"post_authors", result.PostAuthors,
				"statuses", result.Statuses,
				"created_at", result.CreatedAt,
				"comment_authors", result.CommentAuthors,
			)
		}
	}
	warnDefaultAdminPassword(opts, container)

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode, "db_driver", container.Pool.Driver())
	return RunWithOptions(runner, opts)
}

func warnDefaultAdminPassword(opts Options, container *provider.Container) {
	auth := container.AuthService
	switch {
	case auth == nil:
	case auth.PasswordMissing():
		opts.Logger.Warnw("app_admin_password_missing", "fallback", "default", "hint", "set ADMIN_PASSWORD or admin.password_hash")
	case auth.UsingDefaultPassword():
		opts.Logger.Warnw("app_admin_default_password", "hint", "change ADMIN_PASSWORD from the default value")
	}
}
