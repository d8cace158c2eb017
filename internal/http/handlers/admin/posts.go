package admin

import (
	handlershared "github.com/congdong-blog/internal/http/handlers/shared"
	"github.com/congdong-blog/internal/http/response"
	"github.com/congdong-blog/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminPosts 获取文章列表 (Admin)，包含待审核文章
func (h *Handler) GetAdminPosts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)

	posts, total, err := h.PostService.ListAdmin(c.Request.Context(), page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	views := handlershared.BuildPostViews(h.ImageStore, posts)
	response.SuccessWithPage(c, views, handlershared.BuildPagination(page, pageSize, total))
}

// UpdatePostRequest 更新文章请求
type UpdatePostRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Author   string `json:"author"`
}

// UpdatePost 更新文章
func (h *Handler) UpdatePost(c *gin.Context) {
	id, ok := handlershared.ParsePostID(c)
	if !ok {
		return
	}
	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	err := h.PostService.UpdatePost(c.Request.Context(), id, service.UpdatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Author:   req.Author,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_post_updated", "post_id", id)
	response.Success(c, gin.H{"id": id})
}

// DeletePost 删除文章，同时删除其评论与表情计数
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := handlershared.ParsePostID(c)
	if !ok {
		return
	}
	if err := h.PostService.DeletePost(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_post_deleted", "post_id", id)
	response.Success(c, nil)
}

// PublishPost 审核通过
func (h *Handler) PublishPost(c *gin.Context) {
	id, ok := handlershared.ParsePostID(c)
	if !ok {
		return
	}
	if err := h.PostService.PublishPost(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_post_published", "post_id", id)
	response.Success(c, gin.H{"id": id})
}

// GetPoolStats 连接池运行状态
func (h *Handler) GetPoolStats(c *gin.Context) {
	response.Success(c, h.Pool.Stats())
}
