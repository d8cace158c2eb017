package public

import (
	"github.com/congdong-blog/internal/constants"
	"github.com/congdong-blog/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetConfig 获取前台配置：分类、表情与审核开关
func (h *Handler) GetConfig(c *gin.Context) {
	maxSize := int64(0)
	if h.Config != nil {
		maxSize = h.Config.Upload.MaxSize
	}
	response.Success(c, gin.H{
		"categories":         constants.Categories,
		"category_all":       constants.CategoryAllLocal,
		"emojis":             constants.Emojis,
		"moderation_enabled": h.PostService.ModerationEnabled(),
		"image_max_size":     maxSize,
	})
}
