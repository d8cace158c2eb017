package shared

import (
	"errors"

	"github.com/congdong-blog/internal/database"
	"github.com/congdong-blog/internal/http/response"
	"github.com/congdong-blog/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedHandlerError 定义业务错误到接口错误响应的映射关系。
type MappedHandlerError struct {
	Target error
	Code   int
	Key    string
}

// DatabaseErrorRules 连接层错误统一返回 503，客户端可稍后重试。
var DatabaseErrorRules = []MappedHandlerError{
	{Target: database.ErrReconnecting, Code: response.CodeServiceUnavailable, Key: "error.db_reconnecting"},
	{Target: database.ErrPoolClosed, Code: response.CodeServiceUnavailable, Key: "error.db_reconnecting"},
	{Target: database.ErrPoolExhausted, Code: response.CodeServiceUnavailable, Key: "error.db_busy"},
}

// PostErrorRules 文章、评论与表情相关的业务错误。
var PostErrorRules = []MappedHandlerError{
	{Target: service.ErrPostNotFound, Code: response.CodeNotFound, Key: "error.post_not_found"},
	{Target: service.ErrPostTitleRequired, Code: response.CodeBadRequest, Key: "error.post_title_required"},
	{Target: service.ErrPostContentRequired, Code: response.CodeBadRequest, Key: "error.post_content_required"},
	{Target: service.ErrCommentContentRequired, Code: response.CodeBadRequest, Key: "error.comment_content_required"},
	{Target: service.ErrInvalidEmoji, Code: response.CodeBadRequest, Key: "error.invalid_emoji"},
	{Target: service.ErrImageTooLarge, Code: response.CodeBadRequest, Key: "error.image_too_large"},
	{Target: service.ErrImageInvalid, Code: response.CodeBadRequest, Key: "error.image_invalid"},
	{Target: service.ErrPostAlreadyPublished, Code: response.CodeConflict, Key: "error.post_already_published"},
	{Target: service.ErrValidation, Code: response.CodeBadRequest, Key: "error.bad_request"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.not_found"},
}

// RespondWithMappedError 按规则顺序匹配错误，未命中时按兜底码记录并返回。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			if rule.Code >= response.CodeInternal {
				RequestLog(c).Warnw("handler_dependency_unavailable", "code", rule.Code, "error", err)
			}
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// RespondServiceError 使用数据库与文章规则映射服务层错误。
func RespondServiceError(c *gin.Context, err error) {
	rules := make([]MappedHandlerError, 0, len(DatabaseErrorRules)+len(PostErrorRules))
	rules = append(rules, DatabaseErrorRules...)
	rules = append(rules, PostErrorRules...)
	RespondWithMappedError(c, err, rules, response.CodeInternal, "error.internal_error")
}
