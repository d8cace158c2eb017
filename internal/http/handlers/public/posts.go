package public

import (
	"strings"

	handlershared "github.com/congdong-blog/internal/http/handlers/shared"
	"github.com/congdong-blog/internal/http/response"
	"github.com/congdong-blog/internal/service"

	"github.com/gin-gonic/gin"
)

// GetPosts 获取文章列表，支持分类与关键词过滤
func (h *Handler) GetPosts(c *gin.Context) {
	posts, err := h.PostService.ListPosts(c.Request.Context(), c.Query("category"), c.Query("search"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, handlershared.BuildPostViews(h.ImageStore, posts))
}

// GetPost 获取文章详情
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	post, err := h.PostService.GetPost(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, handlershared.BuildPostView(h.ImageStore, *post))
}

// CreatePost 发表文章（multipart 表单，图片可选）
func (h *Handler) CreatePost(c *gin.Context) {
	input := service.CreatePostInput{
		Title:    c.PostForm("title"),
		Content:  c.PostForm("content"),
		Category: c.PostForm("category"),
		Author:   c.PostForm("author"),
	}

	fileHeader, err := c.FormFile("image")
	if err == nil && fileHeader != nil && fileHeader.Size > 0 {
		file, openErr := fileHeader.Open()
		if openErr != nil {
			respondError(c, response.CodeBadRequest, "error.image_invalid", openErr)
			return
		}
		defer file.Close()
		input.Image = &service.ImageInput{Filename: fileHeader.Filename, Reader: file}
	}

	post, err := h.PostService.CreatePost(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, handlershared.BuildPostView(h.ImageStore, *post))
}

// CreateCommentRequest 发表评论请求
type CreateCommentRequest struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// GetComments 获取文章评论
func (h *Handler) GetComments(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	comments, err := h.PostService.ListComments(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, comments)
}

// CreateComment 发表评论
func (h *Handler) CreateComment(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	comment, err := h.PostService.AddComment(c.Request.Context(), id, req.Author, req.Content)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, comment)
}

// CreateReactionRequest 表情反应请求
type CreateReactionRequest struct {
	Emoji string `json:"emoji"`
}

// GetReactions 获取文章表情计数
func (h *Handler) GetReactions(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	reactions, err := h.PostService.ListReactions(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, reactions)
}

// CreateReaction 表情计数加一
func (h *Handler) CreateReaction(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	var req CreateReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	reaction, err := h.PostService.AddReaction(c.Request.Context(), id, strings.TrimSpace(req.Emoji))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, reaction)
}
