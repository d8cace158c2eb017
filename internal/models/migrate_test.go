package models

import (
	"path/filepath"
	"testing"

	"github.com/congdong-blog/internal/constants"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openModelsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "models.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	return db
}

func TestBackfillLegacyRows(t *testing.T) {
	db := openModelsTestDB(t)

	legacy := []string{
		"CREATE TABLE posts (id INTEGER PRIMARY KEY AUTOINCREMENT, title text, content text, image varchar(512))",
		"CREATE TABLE comments (id INTEGER PRIMARY KEY AUTOINCREMENT, post_id integer, author varchar(255), content text)",
		"INSERT INTO posts (title, content) VALUES ('old one', 'body')",
		"INSERT INTO posts (title, content) VALUES ('old two', 'body')",
		"INSERT INTO comments (post_id, author, content) VALUES (1, '', 'hi')",
	}
	for _, stmt := range legacy {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("prepare legacy schema failed: %v", err)
		}
	}

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	for _, column := range []string{"author", "category", "status", "created_at"} {
		if !db.Migrator().HasColumn(&Post{}, column) {
			t.Fatalf("posts.%s should be added", column)
		}
	}
	// 新版本写入的合法行不应被改动
	if err := db.Exec("INSERT INTO posts (title, content, author, category, status) VALUES ('new', 'body', 'Lan', ?, 'pending')", constants.CategoryMeme).Error; err != nil {
		t.Fatalf("insert current row failed: %v", err)
	}
	if err := db.Exec("UPDATE posts SET category = 'Unknown' WHERE id = 2").Error; err != nil {
		t.Fatalf("corrupt category failed: %v", err)
	}

	result, err := BackfillLegacyRows(db, "")
	if err != nil {
		t.Fatalf("backfill failed: %v", err)
	}
	if result.Categories != 2 {
		t.Fatalf("categories want 2 got %d", result.Categories)
	}
	if result.PostAuthors != 2 || result.CommentAuthors != 1 {
		t.Fatalf("authors want 2/1 got %d/%d", result.PostAuthors, result.CommentAuthors)
	}

	var posts []Post
	if err := db.Order("id ASC").Find(&posts).Error; err != nil {
		t.Fatalf("load posts failed: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("posts want 3 got %d", len(posts))
	}
	for _, post := range posts[:2] {
		if post.Category != constants.CategoryOther {
			t.Fatalf("post %d category want %s got %s", post.ID, constants.CategoryOther, post.Category)
		}
		if post.Author != constants.DefaultAuthor {
			t.Fatalf("post %d author want %s got %s", post.ID, constants.DefaultAuthor, post.Author)
		}
		if post.Status != constants.PostStatusPublished {
			t.Fatalf("post %d status want published got %s", post.ID, post.Status)
		}
		if post.CreatedAt.IsZero() {
			t.Fatalf("post %d created_at should be backfilled", post.ID)
		}
	}
	if posts[2].Category != constants.CategoryMeme || posts[2].Author != "Lan" || posts[2].Status != constants.PostStatusPending {
		t.Fatalf("current row should stay untouched: %+v", posts[2])
	}

	again, err := BackfillLegacyRows(db, "")
	if err != nil {
		t.Fatalf("second backfill failed: %v", err)
	}
	if again.Total() != 0 {
		t.Fatalf("backfill should be idempotent, got %+v", again)
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		constants.CategoryMeme:               constants.CategoryMeme,
		"  " + constants.CategoryPoetry + " ": constants.CategoryPoetry,
		"":                                   constants.CategoryOther,
		"Sports":                             constants.CategoryOther,
		constants.CategoryAllLocal:           constants.CategoryOther,
	}
	for input, want := range cases {
		if got := NormalizeCategory(input); got != want {
			t.Fatalf("NormalizeCategory(%q) want %s got %s", input, want, got)
		}
	}
}

func TestIsAllCategory(t *testing.T) {
	for _, filter := range []string{"", " ", "All", "all", constants.CategoryAllLocal} {
		if !IsAllCategory(filter) {
			t.Fatalf("%q should mean all categories", filter)
		}
	}
	if IsAllCategory(constants.CategoryMeme) {
		t.Fatalf("a concrete category should filter")
	}
}

func TestNormalizeAuthorAndEmoji(t *testing.T) {
	if got := NormalizeAuthor("  ", ""); got != constants.DefaultAuthor {
		t.Fatalf("blank author want %s got %s", constants.DefaultAuthor, got)
	}
	if got := NormalizeAuthor("", "Ẩn danh"); got != "Ẩn danh" {
		t.Fatalf("configured fallback want Ẩn danh got %s", got)
	}
	if got := NormalizeAuthor(" Minh ", "x"); got != "Minh" {
		t.Fatalf("author should be trimmed, got %q", got)
	}
	if !IsValidEmoji("❤️") || IsValidEmoji("🔥") {
		t.Fatalf("emoji validation mismatch")
	}
}
