package models

import "time"

// Comment 文章评论表，post_id 不建外键
type Comment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	PostID    uint      `gorm:"index" json:"post_id"`
	Author    string    `gorm:"type:varchar(255)" json:"author"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Comment) TableName() string {
	return "comments"
}
