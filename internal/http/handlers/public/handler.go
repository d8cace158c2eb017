package public

import "github.com/congdong-blog/internal/provider"

// Handler 前台/公开接口处理器入口
// 说明：该处理器仅用于访客侧 API，不需要管理口令。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
