package models

import (
	"strings"

	"github.com/congdong-blog/internal/constants"
)

// NormalizeCategory 分类不在固定集合内时归入"Khác"
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	for _, item := range constants.Categories {
		if item == category {
			return item
		}
	}
	return constants.CategoryOther
}

// IsAllCategory 判断是否为不过滤的"全部"选项
func IsAllCategory(filter string) bool {
	filter = strings.TrimSpace(filter)
	return filter == "" ||
		strings.EqualFold(filter, constants.CategoryAll) ||
		filter == constants.CategoryAllLocal
}

// NormalizeAuthor 作者为空时使用默认署名
func NormalizeAuthor(author, fallback string) string {
	author = strings.TrimSpace(author)
	if author != "" {
		return author
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback
	}
	return constants.DefaultAuthor
}

// IsValidEmoji 表情是否在固定集合内
func IsValidEmoji(emoji string) bool {
	for _, item := range constants.Emojis {
		if item == emoji {
			return true
		}
	}
	return false
}
