package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/congdong-blog/internal/cache"
	"github.com/congdong-blog/internal/constants"
	"github.com/congdong-blog/internal/logger"
	"github.com/congdong-blog/internal/models"
	"github.com/congdong-blog/internal/queue"
	"github.com/congdong-blog/internal/repository"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

const postListGenerationKey = "posts:generation"

// ConnRunner 以单条租用连接执行一个工作单元
type ConnRunner interface {
	WithConn(ctx context.Context, fn func(db *gorm.DB) error) error
}

// ImageMirrorEnqueuer 图片镜像任务投递
type ImageMirrorEnqueuer interface {
	Enabled() bool
	EnqueueImageMirror(payload queue.ImageMirrorPayload, opts ...asynq.Option) error
}

// PostServiceOptions 文章服务行为开关
type PostServiceOptions struct {
	ModerationEnabled bool
	DefaultAuthor     string
	ListCacheTTL      time.Duration
	MirrorImages      bool
}

// PostService 文章业务服务
type PostService struct {
	conns        ConnRunner
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	reactionRepo repository.ReactionRepository
	cache        cache.Store
	images       *ImageService
	mirror       ImageMirrorEnqueuer
	opts         PostServiceOptions
}

// NewPostService 创建文章服务
func NewPostService(
	conns ConnRunner,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	reactionRepo repository.ReactionRepository,
	store cache.Store,
	images *ImageService,
	mirror ImageMirrorEnqueuer,
	opts PostServiceOptions,
) *PostService {
	return &PostService{
		conns:        conns,
		postRepo:     postRepo,
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		cache:        store,
		images:       images,
		mirror:       mirror,
		opts:         opts,
	}
}

// ModerationEnabled 是否开启审核
func (s *PostService) ModerationEnabled() bool {
	return s.opts.ModerationEnabled
}

// CreatePostInput 创建文章输入
type CreatePostInput struct {
	Title    string
	Content  string
	Category string
	Author   string
	Image    *ImageInput
}

// UpdatePostInput 更新文章输入
type UpdatePostInput struct {
	Title    string
	Content  string
	Category string
	Author   string
}

// ListPosts 公开文章列表，短时缓存，写操作后立即失效
func (s *PostService) ListPosts(ctx context.Context, categoryFilter, search string) ([]models.Post, error) {
	filter := repository.PostListFilter{
		Search:        strings.TrimSpace(search),
		OnlyPublished: s.opts.ModerationEnabled,
	}
	if !models.IsAllCategory(categoryFilter) {
		filter.Category = strings.TrimSpace(categoryFilter)
	}

	cacheKey := s.listCacheKey(ctx, filter)
	if cacheKey != "" {
		var cached []models.Post
		hit, err := s.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			logger.Warnw("post_list_cache_get_failed", "key", cacheKey, "error", err)
		} else if hit {
			return cached, nil
		}
	}

	var posts []models.Post
	err := s.conns.WithConn(ctx, func(db *gorm.DB) error {
		var err error
		posts, err = s.postRepo.WithTx(db).List(filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}

	if cacheKey != "" {
		if err := s.cache.SetJSON(ctx, cacheKey, posts, s.opts.ListCacheTTL); err != nil {
			logger.Warnw("post_list_cache_set_failed", "key", cacheKey, "error", err)
		}
	}
	return posts, nil
}

// listCacheKey 缓存键包含当前代数，写操作递增代数使旧键失效
func (s *PostService) listCacheKey(ctx context.Context, filter repository.PostListFilter) string {
	if s.cache == nil || s.opts.ListCacheTTL <= 0 {
		return ""
	}
	var generation int64
	if _, err := s.cache.GetJSON(ctx, postListGenerationKey, &generation); err != nil {
		logger.Warnw("post_list_generation_get_failed", "error", err)
		return ""
	}
	sum := sha256.Sum256([]byte(filter.Category + "\x00" + filter.Search))
	return fmt.Sprintf("posts:list:%d:%t:%s", generation, filter.OnlyPublished, hex.EncodeToString(sum[:8]))
}

func (s *PostService) invalidateList(ctx context.Context) {
	if s.cache == nil || s.opts.ListCacheTTL <= 0 {
		return
	}
	// 请求被取消也必须完成失效
	if _, err := s.cache.Incr(context.WithoutCancel(ctx), postListGenerationKey); err != nil {
		logger.Warnw("post_list_cache_invalidate_failed", "error", err)
	}
}

// GetPost 获取文章详情，开启审核时仅返回已发布文章
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post *models.Post
	err := s.conns.WithConn(ctx, func(db *gorm.DB) error {
		var err error
		post, err = s.postRepo.WithTx(db).GetByID(id, s.opts.ModerationEnabled)
		return err
	})
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// CreatePost 创建文章，图片先于数据行写入
func (s *PostService) CreatePost(ctx context.Context, input CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" {
		return nil, ErrPostTitleRequired
	}
	if content == "" {
		return nil, ErrPostContentRequired
	}

	var prepared *PreparedImage
	if input.Image != nil {
		if s.images == nil {
			return nil, ErrImageInvalid
		}
		var err error
		prepared, err = s.images.Prepare(*input.Image)
		if err != nil {
			return nil, err
		}
		if err := s.images.Save(ctx, prepared); err != nil {
			return nil, fmt.Errorf("save image: %w", err)
		}
	}

	post := &models.Post{
		Title:    title,
		Content:  content,
		Author:   models.NormalizeAuthor(input.Author, s.opts.DefaultAuthor),
		Category: models.NormalizeCategory(input.Category),
		Status:   constants.PostStatusPublished,
	}
	if s.opts.ModerationEnabled {
		post.Status = constants.PostStatusPending
	}
	if prepared != nil {
		name := prepared.Name
		post.Image = &name
	}

	err := s.conns.WithConn(ctx, func(db *gorm.DB) error {
		return s.postRepo.WithTx(db).Create(post)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateList(ctx)

	if prepared != nil {
		s.enqueueMirror(post.ID, prepared)
	}
	logger.Infow("post_created",
		"post_id", post.ID,
		"category", post.Category,
		"status", post.Status,
		"has_image", prepared != nil,
	)
	return post, nil
}

func (s *PostService) enqueueMirror(postID uint, img *PreparedImage) {
	if !s.opts.MirrorImages || s.mirror == nil || !s.mirror.Enabled() {
		return
	}
	if s.images.Store().Driver() != constants.StorageDriverLocal {
		return
	}
	payload := queue.ImageMirrorPayload{Name: img.Name, ContentType: img.ContentType, PostID: postID}
	if err := s.mirror.EnqueueImageMirror(payload); err != nil {
		logger.Warnw("post_image_mirror_enqueue_failed", "post_id", postID, "image", img.Name, "error", err)
	}
}

// UpdatePost 单条 UPDATE 修改标题、内容、分类与作者，重复执行结果一致
func (s *PostService) UpdatePost(ctx context.Context, id uint, input UpdatePostInput) error {
	fields := repository.PostUpdateFields{
		Title:    strings.TrimSpace(input.Title),
		Content:  strings.TrimSpace(input.Content),
		Category: models.NormalizeCategory(input.Category),
		Author:   models.NormalizeAuthor(input.Author, s.opts.DefaultAuthor),
	}
	if fields.Title == "" {
		return ErrPostTitleRequired
	}
	if fields.Content == "" {
		return ErrPostContentRequired
	}

	var affected int64
	err := s.conns.WithConn(ctx, func(db *gorm.DB) error {
		var err error
		affected, err = s.postRepo.WithTx(db).UpdateFields(id, fields)
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPostNotFound
	}
	s.invalidateList(ctx)
	return nil
}

// DeletePost 在同一事务中删除文章及其表情与评论，图片文件保留
func (s *PostService) DeletePost(ctx context.Context, id uint) error {
	err := s.conns.WithConn(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			if _, err := s.reactionRepo.WithTx(tx).DeleteByPost(id); err != nil {
				return err
			}
			if _, err := s.commentRepo.WithTx(tx).DeleteByPost(id); err != nil {
				return err
			}
			affected, err := s.postRepo.WithTx(tx).Delete(id)
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrPostNotFound
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	s.invalidateList(ctx)
	logger.Infow("post_deleted", "post_id", id)
	return nil
}

// PublishPost 待审核文章转为已发布，不支持反向
func (s *PostService) PublishPost(ctx context.Context, id uint) error {
	err := s.conns.WithConn(ctx, func(db *gorm.DB) error {
		repo := s.postRepo.WithTx(db)
		affected, err := repo.Publish(id)
		if err != nil {
			return err
		}
		if affected > 0 {
			return nil
		}
		post, err := repo.GetByID(id, false)
		if err != nil {
			return err
		}
		if post == nil {
			return ErrPostNotFound
		}
		if post.IsPublished() {
			return ErrPostAlreadyPublished
		}
		return fmt.Errorf("publish post %d: status %q not publishable", id, post.Status)
	})
	if err != nil {
		return err
	}
	s.invalidateList(ctx)
	logger.Infow("post_published", "post_id", id)
	return nil
}

// ListAdmin 管理端文章列表，包含所有状态
func (s *PostService) ListAdmin(ctx context.Context, page, pageSize int) ([]models.Post, int64, error) {
	var (
		posts []models.Post
		total int64
	)
	err := s.conns.WithConn(ctx, func(db *gorm.DB) error {
		var err error
		posts, total, err = s.postRepo.WithTx(db).ListPage(repository.PostListFilter{
			Page:     page,
			PageSize: pageSize,
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ensurePostVisible 在当前连接上确认文章存在且对公众可见
func (s *PostService) ensurePostVisible(db *gorm.DB, postID uint) error {
	post, err := s.postRepo.WithTx(db).GetByID(postID, s.opts.ModerationEnabled)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrPostNotFound
	}
	return nil
}
