package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xaiowei11/classmatch-web/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// maxBytes: 允许的最大请求体字节数，上传路由按 import.max_upload_mb 另行设置
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		// 检查是否因为超出限制而失败
		if c.IsAborted() {
			return
		}
		for _, err := range c.Errors {
			if err.Err != nil && err.Err.Error() == "http: request body too large" {
				response.TooLarge(c, 10005, "请求体过大")
				return
			}
		}
	}
}
