package models

// Reaction 表情计数表，(post_id, emoji) 联合主键，只增不减
type Reaction struct {
	PostID uint   `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	Emoji  string `gorm:"primaryKey;type:varchar(16)" json:"emoji"`
	Count  int64  `gorm:"not null;default:1" json:"count"`
}

// TableName 指定表名
func (Reaction) TableName() string {
	return "reactions"
}
