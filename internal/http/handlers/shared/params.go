package shared

import (
	"strconv"
	"strings"

	"github.com/congdong-blog/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ParsePostID 解析路径中的文章 ID，非法时直接写入错误响应。
func ParsePostID(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, "error.post_id_invalid", nil)
		return 0, false
	}
	return uint(id), true
}

const (
	defaultAdminPageSize = 20
	maxAdminPageSize     = 100
)

// ParsePagination 读取 page/page_size，非法值回落到第 1 页与默认页大小
func ParsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.Query("page_size"))
	if err != nil || pageSize <= 0 {
		pageSize = defaultAdminPageSize
	}
	return page, min(pageSize, maxAdminPageSize)
}

// BuildPagination 生成分页信息。
func BuildPagination(page, pageSize int, total int64) response.Pagination {
	return response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
}
