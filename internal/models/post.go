package models

import (
	"time"

	"github.com/congdong-blog/internal/constants"
)

// Post 社区文章表
type Post struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                   // 主键
	Title     string    `gorm:"type:text" json:"title"`                                 // 标题
	Content   string    `gorm:"type:text" json:"content"`                               // 内容（允许简单标记）
	Image     *string   `gorm:"type:varchar(512)" json:"image"`                         // 图片文件名
	Author    string    `gorm:"type:varchar(255)" json:"author"`                        // 作者
	Category  string    `gorm:"type:varchar(100);index" json:"category"`                // 分类
	Status    string    `gorm:"type:varchar(20);index;default:published" json:"status"` // 审核状态
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                // 创建时间
}

// TableName 指定表名
func (Post) TableName() string {
	return "posts"
}

// IsPublished 是否已发布
func (p Post) IsPublished() bool {
	return p.Status == "" || p.Status == constants.PostStatusPublished
}

// ImageName 返回图片文件名，无图片时为空
func (p Post) ImageName() string {
	if p.Image == nil {
		return ""
	}
	return *p.Image
}
