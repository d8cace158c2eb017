package repository

import (
	"github.com/congdong-blog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository 表情计数数据访问接口
type ReactionRepository interface {
	Increment(postID uint, emoji string) (*models.Reaction, error)
	ListByPost(postID uint) ([]models.Reaction, error)
	DeleteByPost(postID uint) (int64, error)
	WithTx(tx *gorm.DB) ReactionRepository
}

// GormReactionRepository GORM 实现
type GormReactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository 创建表情计数仓库
func NewReactionRepository(db *gorm.DB) *GormReactionRepository {
	return &GormReactionRepository{db: db}
}

// WithTx 绑定事务或租用连接
func (r *GormReactionRepository) WithTx(tx *gorm.DB) ReactionRepository {
	if tx == nil {
		return r
	}
	return &GormReactionRepository{db: tx}
}

// Increment 单条 upsert 语句原子加一，随后读取当前计数
func (r *GormReactionRepository) Increment(postID uint, emoji string) (*models.Reaction, error) {
	row := models.Reaction{PostID: postID, Emoji: emoji, Count: 1}
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_id"}, {Name: "emoji"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count": gorm.Expr("reactions.count + ?", 1),
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	var current models.Reaction
	if err := r.db.Where("post_id = ? AND emoji = ?", postID, emoji).First(&current).Error; err != nil {
		return nil, err
	}
	return &current, nil
}

// ListByPost 列出文章下计数大于零的表情
func (r *GormReactionRepository) ListByPost(postID uint) ([]models.Reaction, error) {
	var reactions []models.Reaction
	if err := r.db.Where("post_id = ? AND count > 0", postID).Find(&reactions).Error; err != nil {
		return nil, err
	}
	return reactions, nil
}

// DeleteByPost 删除文章下的全部表情计数
func (r *GormReactionRepository) DeleteByPost(postID uint) (int64, error) {
	result := r.db.Where("post_id = ?", postID).Delete(&models.Reaction{})
	return result.RowsAffected, result.Error
}
