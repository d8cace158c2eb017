package shared

import (
	"github.com/congdong-blog/internal/models"
	"github.com/congdong-blog/internal/storage"
)

// PostView 文章响应结构，附带图片访问地址。
type PostView struct {
	models.Post
	ImageURL string `json:"image_url,omitempty"`
}

// BuildPostView 组装单篇文章响应。
func BuildPostView(store storage.ImageStore, post models.Post) PostView {
	view := PostView{Post: post}
	if name := post.ImageName(); name != "" && store != nil {
		view.ImageURL = store.URL(name)
	}
	return view
}

// BuildPostViews 组装文章列表响应。
func BuildPostViews(store storage.ImageStore, posts []models.Post) []PostView {
	views := make([]PostView, 0, len(posts))
	for _, post := range posts {
		views = append(views, BuildPostView(store, post))
	}
	return views
}
