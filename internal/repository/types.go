package repository

// PostListFilter 查询文章列表的过滤条件
type PostListFilter struct {
	Page          int
	PageSize      int
	Category      string // 为空表示不过滤
	Search        string
	OnlyPublished bool
	OrderBy       string
}

// PostUpdateFields 管理端可修改的文章字段
type PostUpdateFields struct {
	Title    string
	Content  string
	Category string
	Author   string
}
