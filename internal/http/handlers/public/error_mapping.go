package public

import (
	handlershared "github.com/congdong-blog/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func respondServiceError(c *gin.Context, err error) {
	handlershared.RespondServiceError(c, err)
}
