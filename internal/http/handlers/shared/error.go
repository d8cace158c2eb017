package shared

import (
	"github.com/congdong-blog/internal/http/response"
	"github.com/congdong-blog/internal/i18n"
	"github.com/congdong-blog/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应；服务端错误记 error 级别，客户端错误仅记 debug
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	if err != nil {
		log := RequestLog(c)
		if code >= response.CodeInternal {
			log.Errorw("handler_error", "code", code, "key", key, "error", err)
		} else {
			log.Debugw("handler_rejected", "code", code, "key", key, "error", err)
		}
	}
	response.Error(c, code, msg)
}
