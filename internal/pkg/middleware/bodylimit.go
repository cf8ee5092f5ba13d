package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps request bodies at 1 MiB. Plan requests are small;
// anything bigger is abuse or a bug.
const MaxBodyBytes int64 = 1 << 20

// BodyLimit rejects oversized request bodies. Declared lengths over the
// cap are refused up front; chunked bodies are wrapped so the JSON
// decoder hits a MaxBytesError instead of buffering without bound.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "request body too large",
				"code":  "PAYLOAD_TOO_LARGE",
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
