package provider

import (
	"context"
	"errors"

	"github.com/congdong-blog/internal/cache"
	"github.com/congdong-blog/internal/config"
	"github.com/congdong-blog/internal/constants"
	"github.com/congdong-blog/internal/database"
	"github.com/congdong-blog/internal/logger"
	"github.com/congdong-blog/internal/queue"
	"github.com/congdong-blog/internal/repository"
	"github.com/congdong-blog/internal/service"
	"github.com/congdong-blog/internal/storage"

	"github.com/redis/go-redis/v9"
)

// Container 依赖注入容器，持有连接池与缓存，由 Close 统一释放
type Container struct {
	Config      *config.Config
	Pool        *database.Pool
	Redis       *redis.Client
	Cache       cache.Store
	QueueClient *queue.Client

	// 图片存储；MirrorStore 仅在开启镜像且主存储为本地时存在
	ImageStore  storage.ImageStore
	MirrorStore storage.ImageStore

	// Repositories（未绑定连接，按工作单元通过 WithTx 绑定）
	PostRepo     repository.PostRepository
	CommentRepo  repository.CommentRepository
	ReactionRepo repository.ReactionRepository

	// Services
	AuthService  *service.AuthService
	ImageService *service.ImageService
	PostService  *service.PostService
}

// NewContainer 初始化容器
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	pool, err := database.Open(ctx, cfg.Database, database.WithLogLevel(database.LogLevelForMode(cfg.Server.Mode)))
	if err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, Pool: pool}

	if err := c.initInfra(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.initRepositories()
	if err := c.initServices(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) initInfra(ctx context.Context) error {
	cfg := c.Config

	// Redis 不可用时列表缓存退回进程内缓存，客户端仍保留给限流（失败时放行）
	c.Redis = cache.NewRedisClient(&cfg.Redis)
	c.Cache = cache.NewMemoryStore()
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			logger.Warnw("provider_redis_ping_failed", "error", err, "fallback", "memory")
		} else {
			c.Cache = cache.NewRedisStore(c.Redis, cfg.Redis.Prefix)
		}
	}

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
	} else {
		c.QueueClient = queueClient
	}

	imageStore, err := storage.New(cfg.Upload)
	if err != nil {
		return err
	}
	c.ImageStore = imageStore

	if cfg.Upload.Mirror.Enabled && imageStore.Driver() == constants.StorageDriverLocal {
		mirror, err := storage.NewS3Store(cfg.Upload.S3)
		if err != nil {
			logger.Warnw("provider_init_mirror_store_failed", "error", err)
		} else {
			c.MirrorStore = mirror
		}
	}
	return nil
}

func (c *Container) initRepositories() {
	c.PostRepo = repository.NewPostRepository(nil)
	c.CommentRepo = repository.NewCommentRepository(nil)
	c.ReactionRepo = repository.NewReactionRepository(nil)
}

func (c *Container) initServices() error {
	cfg := c.Config

	authService, err := service.NewAuthService(cfg.Admin)
	if err != nil {
		logger.Errorw("provider_init_auth_failed", "error", err)
		return err
	}
	c.AuthService = authService

	c.ImageService = service.NewImageService(cfg.Upload, c.ImageStore)
	var mirror service.ImageMirrorEnqueuer
	if c.QueueClient != nil {
		mirror = c.QueueClient
	}
	c.PostService = service.NewPostService(
		c.Pool,
		c.PostRepo,
		c.CommentRepo,
		c.ReactionRepo,
		c.Cache,
		c.ImageService,
		mirror,
		service.PostServiceOptions{
			ModerationEnabled: cfg.Blog.ModerationEnabled,
			DefaultAuthor:     cfg.Blog.DefaultAuthor,
			ListCacheTTL:      cfg.Cache.PostListTTL(),
			MirrorImages:      c.MirrorStore != nil,
		},
	)
	return nil
}

// Close 释放队列客户端、缓存与连接池
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.QueueClient != nil {
		errs = append(errs, c.QueueClient.Close())
	}
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	// RedisStore 关闭时已释放客户端
	if _, shared := c.Cache.(*cache.RedisStore); !shared && c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.Pool != nil {
		errs = append(errs, c.Pool.Close())
	}
	return errors.Join(errs...)
}
