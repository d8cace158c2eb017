package repository

import (
	"github.com/congdong-blog/internal/models"

	"gorm.io/gorm"
)

// CommentRepository 评论数据访问接口
type CommentRepository interface {
	Create(comment *models.Comment) error
	ListByPost(postID uint) ([]models.Comment, error)
	DeleteByPost(postID uint) (int64, error)
	WithTx(tx *gorm.DB) CommentRepository
}

// GormCommentRepository GORM 实现
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository 创建评论仓库
func NewCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

// WithTx 绑定事务或租用连接
func (r *GormCommentRepository) WithTx(tx *gorm.DB) CommentRepository {
	if tx == nil {
		return r
	}
	return &GormCommentRepository{db: tx}
}

// Create 创建评论
func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// ListByPost 按时间正序列出文章评论
func (r *GormCommentRepository) ListByPost(postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.Where("post_id = ?", postID).Order("created_at ASC, id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// DeleteByPost 删除文章下的全部评论
func (r *GormCommentRepository) DeleteByPost(postID uint) (int64, error) {
	result := r.db.Where("post_id = ?", postID).Delete(&models.Comment{})
	return result.RowsAffected, result.Error
}
