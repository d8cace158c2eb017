//go:build integration
// +build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/congdong-blog/internal/constants"
	"github.com/congdong-blog/internal/database"
	"github.com/congdong-blog/internal/models"
	"github.com/congdong-blog/internal/testutil"

	"gorm.io/gorm"
)

// setupPostgresIntegrationPool 初始化 PostgreSQL 集成测试连接池。
func setupPostgresIntegrationPool(t *testing.T) *database.Pool {
	t.Helper()

	target := testutil.StartPostgres(t)
	pool, err := database.Open(context.Background(), target.Config)
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{&models.Reaction{}, &models.Comment{}, &models.Post{}}
	err = pool.WithConn(context.Background(), func(db *gorm.DB) error {
		_ = db.Migrator().DropTable(cleanupModels...)
		return models.AutoMigrate(db)
	})
	if err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = pool.WithConn(context.Background(), func(db *gorm.DB) error {
			return db.Migrator().DropTable(cleanupModels...)
		})
		_ = pool.Close()
	})
	return pool
}

func TestPostgresSearchAndReactionUpsert(t *testing.T) {
	pool := setupPostgresIntegrationPool(t)
	ctx := context.Background()

	var postID uint
	err := pool.WithConn(ctx, func(db *gorm.DB) error {
		repo := NewPostRepository(nil).WithTx(db)
		now := time.Now()
		for _, title := range []string{"Truyện THUỶ DƯƠNG", "giảm 50% hôm nay", "giảm 500 hôm nay"} {
			post := &models.Post{Title: title, Content: "x", Author: "a", Category: constants.CategoryOther, Status: constants.PostStatusPublished, CreatedAt: now}
			if err := repo.Create(post); err != nil {
				return err
			}
			if postID == 0 {
				postID = post.ID
			}
		}

		posts, err := repo.List(PostListFilter{Search: "thuỷ dương"})
		if err != nil {
			return err
		}
		if len(posts) != 1 {
			t.Fatalf("ILIKE search want 1 got %d", len(posts))
		}
		posts, err = repo.List(PostListFilter{Search: "50%"})
		if err != nil {
			return err
		}
		if len(posts) != 1 {
			t.Fatalf("escaped wildcard search want 1 got %d", len(posts))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("postgres search failed: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- pool.WithConn(ctx, func(db *gorm.DB) error {
				_, err := NewReactionRepository(db).Increment(postID, "❤️")
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent increment failed: %v", err)
		}
	}

	err = pool.WithConn(ctx, func(db *gorm.DB) error {
		rows, err := NewReactionRepository(db).ListByPost(postID)
		if err != nil {
			return err
		}
		if len(rows) != 1 || rows[0].Count != workers {
			t.Fatalf("reaction count want %d got %+v", workers, rows)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("list reactions failed: %v", err)
	}
}
