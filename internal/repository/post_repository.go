package repository

import (
	"errors"
	"strings"

	"github.com/congdong-blog/internal/constants"
	"github.com/congdong-blog/internal/models"

	"gorm.io/gorm"
)

var postSearchColumns = []string{"title", "content", "author"}

// PostRepository 文章数据访问接口
type PostRepository interface {
	List(filter PostListFilter) ([]models.Post, error)
	ListPage(filter PostListFilter) ([]models.Post, int64, error)
	GetByID(id uint, onlyPublished bool) (*models.Post, error)
	Create(post *models.Post) error
	UpdateFields(id uint, fields PostUpdateFields) (int64, error)
	Publish(id uint) (int64, error)
	Delete(id uint) (int64, error)
	WithTx(tx *gorm.DB) PostRepository
}

// GormPostRepository GORM 实现
type GormPostRepository struct {
	db *gorm.DB
}

// NewPostRepository 创建文章仓库，db 为空时需先通过 WithTx 绑定连接
func NewPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

// WithTx 绑定事务或租用连接
func (r *GormPostRepository) WithTx(tx *gorm.DB) PostRepository {
	if tx == nil {
		return r
	}
	return &GormPostRepository{db: tx}
}

// List 公开文章列表，按创建时间倒序，不分页
func (r *GormPostRepository) List(filter PostListFilter) ([]models.Post, error) {
	query := r.baseListQuery(filter)
	search := strings.TrimSpace(filter.Search)
	pushdown := search != "" && isPostgres(r.db)
	if pushdown {
		condition, argCount := buildLikeCondition(r.db, postSearchColumns)
		like := "%" + escapeLike(search) + "%"
		query = query.Where(condition, repeatLikeArgs(like, argCount)...)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at DESC, id DESC"
	}

	var posts []models.Post
	if err := query.Order(orderBy).Find(&posts).Error; err != nil {
		return nil, err
	}
	if search == "" || pushdown {
		return posts, nil
	}
	// sqlite 的 LIKE 只折叠 ASCII，非 postgres 时在内存中按 Unicode 过滤
	return filterPostsBySearch(posts, search), nil
}

// ListPage 管理端分页列表，默认按 id 倒序
func (r *GormPostRepository) ListPage(filter PostListFilter) ([]models.Post, int64, error) {
	query := r.baseListQuery(filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "id DESC"
	}
	var posts []models.Post
	if err := query.Scopes(pageScope(filter.Page, filter.PageSize)).Order(orderBy).Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *GormPostRepository) baseListQuery(filter PostListFilter) *gorm.DB {
	query := r.db.Model(&models.Post{})
	if filter.OnlyPublished {
		query = query.Where("status = ?", constants.PostStatusPublished)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	return query
}

func filterPostsBySearch(posts []models.Post, search string) []models.Post {
	term := strings.ToLower(search)
	filtered := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		if containsFold(post.Title, term) || containsFold(post.Content, term) || containsFold(post.Author, term) {
			filtered = append(filtered, post)
		}
	}
	return filtered
}

// GetByID 根据 ID 获取文章，不存在时返回 nil
func (r *GormPostRepository) GetByID(id uint, onlyPublished bool) (*models.Post, error) {
	query := r.db.Where("id = ?", id)
	if onlyPublished {
		query = query.Where("status = ?", constants.PostStatusPublished)
	}
	var post models.Post
	if err := query.First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create 创建文章
func (r *GormPostRepository) Create(post *models.Post) error {
	return r.db.Create(post).Error
}

// UpdateFields 单条 UPDATE 修改文章，返回命中行数
func (r *GormPostRepository) UpdateFields(id uint, fields PostUpdateFields) (int64, error) {
	result := r.db.Model(&models.Post{}).Where("id = ?", id).Updates(map[string]interface{}{
		"title":    fields.Title,
		"content":  fields.Content,
		"category": fields.Category,
		"author":   fields.Author,
	})
	return result.RowsAffected, result.Error
}

// Publish 将待审核文章置为已发布，返回命中行数
func (r *GormPostRepository) Publish(id uint) (int64, error) {
	result := r.db.Model(&models.Post{}).
		Where("id = ? AND status = ?", id, constants.PostStatusPending).
		Update("status", constants.PostStatusPublished)
	return result.RowsAffected, result.Error
}

// Delete 删除文章，返回命中行数
func (r *GormPostRepository) Delete(id uint) (int64, error) {
	result := r.db.Where("id = ?", id).Delete(&models.Post{})
	return result.RowsAffected, result.Error
}

// pageScope 管理端分页，页码从 1 开始，pageSize<=0 时不分页
func pageScope(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return db
		}
		if page < 1 {
			page = 1
		}
		return db.Limit(pageSize).Offset((page - 1) * pageSize)
	}
}
