package models

import (
	"fmt"
	"time"

	"github.com/congdong-blog/internal/constants"

	"gorm.io/gorm"
)

// AutoMigrate 创建或补齐 posts / comments / reactions 表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Post{},
		&Comment{},
		&Reaction{},
	)
}

// BackfillResult 旧数据回填统计
type BackfillResult struct {
	Categories     int64 `json:"categories"`
	PostAuthors    int64 `json:"post_authors"`
	Statuses       int64 `json:"statuses"`
	CreatedAt      int64 `json:"created_at"`
	CommentAuthors int64 `json:"comment_authors"`
}

// Total 回填的总行数
func (r BackfillResult) Total() int64 {
	return r.Categories + r.PostAuthors + r.Statuses + r.CreatedAt + r.CommentAuthors
}

// BackfillLegacyRows 修正旧版本遗留的空值与非法分类，可重复执行
func BackfillLegacyRows(db *gorm.DB, defaultAuthor string) (BackfillResult, error) {
	var result BackfillResult
	author := NormalizeAuthor("", defaultAuthor)

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Post{}).
			Where("category IS NULL OR TRIM(category) = '' OR category NOT IN ?", constants.Categories).
			Update("category", constants.CategoryOther)
		if res.Error != nil {
			return fmt.Errorf("backfill category: %w", res.Error)
		}
		result.Categories = res.RowsAffected

		res = tx.Model(&Post{}).
			Where("author IS NULL OR TRIM(author) = ''").
			Update("author", author)
		if res.Error != nil {
			return fmt.Errorf("backfill post author: %w", res.Error)
		}
		result.PostAuthors = res.RowsAffected

		res = tx.Model(&Post{}).
			Where("status IS NULL OR status NOT IN ?", []string{constants.PostStatusPending, constants.PostStatusPublished}).
			Update("status", constants.PostStatusPublished)
		if res.Error != nil {
			return fmt.Errorf("backfill status: %w", res.Error)
		}
		result.Statuses = res.RowsAffected

		res = tx.Model(&Post{}).
			Where("created_at IS NULL").
			Update("created_at", time.Now())
		if res.Error != nil {
			return fmt.Errorf("backfill created_at: %w", res.Error)
		}
		result.CreatedAt = res.RowsAffected

		res = tx.Model(&Comment{}).
			Where("author IS NULL OR TRIM(author) = ''").
			Update("author", author)
		if res.Error != nil {
			return fmt.Errorf("backfill comment author: %w", res.Error)
		}
		result.CommentAuthors = res.RowsAffected
		return nil
	})
	return result, err
}
