package public

import (
	handlershared "github.com/congdong-blog/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func parsePostID(c *gin.Context) (uint, bool) {
	return handlershared.ParsePostID(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}
