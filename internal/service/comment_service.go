package service

import (
	"context"
	"strings"

	"github.com/congdong-blog/internal/logger"
	"github.com/congdong-blog/internal/models"

	"gorm.io/gorm"
)

// AddComment 添加评论，作者为空时使用默认署名
func (s *PostService) AddComment(ctx context.Context, postID uint, author, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrCommentContentRequired
	}
	comment := &models.Comment{
		PostID:  postID,
		Author:  models.NormalizeAuthor(author, s.opts.DefaultAuthor),
		Content: content,
	}
	err := s.conns.WithConn(ctx, func(db *gorm.DB) error {
		if err := s.ensurePostVisible(db, postID); err != nil {
			return err
		}
		return s.commentRepo.WithTx(db).Create(comment)
	})
	if err != nil {
		return nil, err
	}
	logger.Debugw("comment_created", "post_id", postID, "comment_id", comment.ID)
	return comment, nil
}

// ListComments 按时间正序列出评论
func (s *PostService) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.conns.WithConn(ctx, func(db *gorm.DB) error {
		if err := s.ensurePostVisible(db, postID); err != nil {
			return err
		}
		var err error
		comments, err = s.commentRepo.WithTx(db).ListByPost(postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}
