package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sazonbot/internal/pkg/common"
)

// BodySizeLimit 限制請求體大小，maxSize <= 0 時不限制。
// 已知 Content-Length 過大時直接拒絕；其餘情況由 MaxBytesReader 在讀取時截斷，
// 錯誤由 handlers.BindJSON 轉成 413。
func BodySizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxSize <= 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxSize {
			common.LogWarn("Request body too large",
				zap.Int64("content_length", c.Request.ContentLength),
				zap.Int64("max_size", maxSize),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(common.ErrRequestTooLarge.Status, common.ErrorResponse{
				Code:    common.ErrRequestTooLarge.Code,
				Message: common.ErrRequestTooLarge.Message,
				Details: "max_size=" + strconv.FormatInt(maxSize, 10),
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
