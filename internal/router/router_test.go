package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/congdong-blog/internal/cache"
	"github.com/congdong-blog/internal/config"
	"github.com/congdong-blog/internal/constants"
	"github.com/congdong-blog/internal/models"
	"github.com/congdong-blog/internal/provider"

	"github.com/gin-gonic/gin"
)

type apiResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupRouterTest(t *testing.T) (*gin.Engine, *provider.Container) {
	t.Helper()
	return setupRouterTestWith(t, nil)
}

func setupRouterTestWith(t *testing.T, mutate func(cfg *config.Config)) (*gin.Engine, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "release"},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(dir, "blog.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
			Pool:   config.DatabasePoolConfig{MaxOpenConns: 4},
		},
		Admin: config.AdminConfig{Password: "admin-pass"},
		Blog:  config.BlogConfig{DefaultAuthor: constants.DefaultAuthor},
		Cache: config.CacheConfig{PostListTTLSeconds: 5},
		Upload: config.UploadConfig{
			Driver:            constants.StorageDriverLocal,
			Dir:               filepath.Join(dir, "images"),
			MaxSize:           1 << 20,
			AllowedTypes:      []string{"image/png"},
			AllowedExtensions: []string{".png"},
		},
	}
	if mutate != nil {
		mutate(cfg)
	}
	container, err := provider.NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })
	if err := container.Pool.WithConn(context.Background(), models.AutoMigrate); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return SetupRouter(cfg, container), container
}

func doRequest(t *testing.T, r *gin.Engine, req *http.Request) apiResponse {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func newPostForm(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field failed: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/posts", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestPublicPostFlow(t *testing.T) {
	r, _ := setupRouterTest(t)

	resp := doRequest(t, r, newPostForm(t, map[string]string{
		"title": "Hello", "content": "World", "category": "Meme", "author": "Alice",
	}))
	if resp.StatusCode != 0 {
		t.Fatalf("create post status_code want 0 got %d msg=%s", resp.StatusCode, resp.Msg)
	}
	var created struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil || created.ID == 0 {
		t.Fatalf("created post id missing: %s", resp.Data)
	}

	resp = doRequest(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/public/posts?category=All", nil))
	var posts []struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	}
	if err := json.Unmarshal(resp.Data, &posts); err != nil {
		t.Fatalf("decode posts failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Title != "Hello" || posts[0].Author != "Alice" {
		t.Fatalf("unexpected posts: %s", resp.Data)
	}

	commentsPath := "/api/v1/public/posts/1/comments"
	resp = doRequest(t, r, jsonRequest(http.MethodPost, commentsPath, `{"author":"Bob","content":"Nice!"}`))
	if resp.StatusCode != 0 {
		t.Fatalf("add comment status_code want 0 got %d", resp.StatusCode)
	}
	reactionsPath := "/api/v1/public/posts/1/reactions"
	for i := 0; i < 2; i++ {
		resp = doRequest(t, r, jsonRequest(http.MethodPost, reactionsPath, `{"emoji":"❤️"}`))
		if resp.StatusCode != 0 {
			t.Fatalf("add reaction status_code want 0 got %d", resp.StatusCode)
		}
	}
	resp = doRequest(t, r, httptest.NewRequest(http.MethodGet, reactionsPath, nil))
	var reactions []struct {
		Emoji string `json:"emoji"`
		Count int64  `json:"count"`
	}
	if err := json.Unmarshal(resp.Data, &reactions); err != nil {
		t.Fatalf("decode reactions failed: %v", err)
	}
	if len(reactions) != 1 || reactions[0].Count != 2 {
		t.Fatalf("unexpected reactions: %s", resp.Data)
	}
}

func TestUnreachableRedisFallsBackAndFailsOpen(t *testing.T) {
	r, c := setupRouterTestWith(t, func(cfg *config.Config) {
		cfg.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}
		cfg.Security.PostRateLimit = config.RateLimitConfig{WindowSeconds: 60, MaxRequests: 1}
	})
	if _, ok := c.Cache.(*cache.MemoryStore); !ok {
		t.Fatalf("cache want memory fallback got %T", c.Cache)
	}

	resp := doRequest(t, r, newPostForm(t, map[string]string{"title": "Hello", "content": "World"}))
	if resp.StatusCode != 0 {
		t.Fatalf("create post want 0 got %d msg=%s", resp.StatusCode, resp.Msg)
	}
	for i := 0; i < 3; i++ {
		resp = doRequest(t, r, jsonRequest(http.MethodPost, "/api/v1/public/posts/1/comments", `{"content":"hay"}`))
		if resp.StatusCode != 0 {
			t.Fatalf("comment %d want 0 got %d msg=%s", i, resp.StatusCode, resp.Msg)
		}
	}
}

func TestPublicErrorMapping(t *testing.T) {
	r, _ := setupRouterTest(t)

	resp := doRequest(t, r, newPostForm(t, map[string]string{"title": "", "content": "x"}))
	if resp.StatusCode != 400 {
		t.Fatalf("blank title want 400 got %d", resp.StatusCode)
	}
	resp = doRequest(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/public/posts/99", nil))
	if resp.StatusCode != 404 {
		t.Fatalf("missing post want 404 got %d", resp.StatusCode)
	}
	resp = doRequest(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/public/posts/abc", nil))
	if resp.StatusCode != 400 {
		t.Fatalf("bad id want 400 got %d", resp.StatusCode)
	}
	resp = doRequest(t, r, jsonRequest(http.MethodPost, "/api/v1/public/posts/99/reactions", `{"emoji":"🔥"}`))
	if resp.StatusCode != 400 {
		t.Fatalf("invalid emoji want 400 got %d", resp.StatusCode)
	}
}

func TestAdminRoutesRequirePassword(t *testing.T) {
	r, _ := setupRouterTest(t)
	doRequest(t, r, newPostForm(t, map[string]string{"title": "a", "content": "b"}))

	resp := doRequest(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/admin/posts", nil))
	if resp.StatusCode != 401 {
		t.Fatalf("missing password want 401 got %d", resp.StatusCode)
	}

	req := jsonRequest(http.MethodPut, "/api/v1/admin/posts/1", `{"title":"a2","content":"b2","category":"Thơ ca"}`)
	req.Header.Set(constants.AdminPasswordHeader, "admin-pass")
	resp = doRequest(t, r, req)
	if resp.StatusCode != 0 {
		t.Fatalf("update want 0 got %d msg=%s", resp.StatusCode, resp.Msg)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/posts/1/publish", nil)
	req.Header.Set(constants.AdminPasswordHeader, "admin-pass")
	resp = doRequest(t, r, req)
	if resp.StatusCode != 409 {
		t.Fatalf("publishing a published post want 409 got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/admin/posts/1", nil)
	req.Header.Set(constants.AdminPasswordHeader, "admin-pass")
	resp = doRequest(t, r, req)
	if resp.StatusCode != 0 {
		t.Fatalf("delete want 0 got %d", resp.StatusCode)
	}
	resp = doRequest(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/public/posts/1", nil))
	if resp.StatusCode != 404 {
		t.Fatalf("deleted post want 404 got %d", resp.StatusCode)
	}
}

func TestHealthzReportsUnavailablePool(t *testing.T) {
	r, container := setupRouterTest(t)

	resp := doRequest(t, r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.StatusCode != 0 {
		t.Fatalf("healthz want 0 got %d", resp.StatusCode)
	}

	if err := container.Pool.Close(); err != nil {
		t.Fatalf("close pool failed: %v", err)
	}
	resp = doRequest(t, r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.StatusCode != 503 {
		t.Fatalf("closed pool want 503 got %d", resp.StatusCode)
	}
	resp = doRequest(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/public/posts", nil))
	if resp.StatusCode != 503 {
		t.Fatalf("list on closed pool want 503 got %d", resp.StatusCode)
	}
}
