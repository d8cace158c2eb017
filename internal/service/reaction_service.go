package service

import (
	"context"
	"sort"

	"github.com/congdong-blog/internal/constants"
	"github.com/congdong-blog/internal/models"

	"gorm.io/gorm"
)

// AddReaction 表情计数原子加一，并发请求不会丢失计数
func (s *PostService) AddReaction(ctx context.Context, postID uint, emoji string) (*models.Reaction, error) {
	if !models.IsValidEmoji(emoji) {
		return nil, ErrInvalidEmoji
	}
	var reaction *models.Reaction
	err := s.conns.WithConn(ctx, func(db *gorm.DB) error {
		if err := s.ensurePostVisible(db, postID); err != nil {
			return err
		}
		var err error
		reaction, err = s.reactionRepo.WithTx(db).Increment(postID, emoji)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reaction, nil
}

// ListReactions 列出计数大于零的表情，按固定展示顺序
func (s *PostService) ListReactions(ctx context.Context, postID uint) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := s.conns.WithConn(ctx, func(db *gorm.DB) error {
		if err := s.ensurePostVisible(db, postID); err != nil {
			return err
		}
		var err error
		reactions, err = s.reactionRepo.WithTx(db).ListByPost(postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(reactions, func(i, j int) bool {
		return emojiRank(reactions[i].Emoji) < emojiRank(reactions[j].Emoji)
	})
	if reactions == nil {
		reactions = []models.Reaction{}
	}
	return reactions, nil
}

func emojiRank(emoji string) int {
	for i, item := range constants.Emojis {
		if item == emoji {
			return i
		}
	}
	return len(constants.Emojis)
}
