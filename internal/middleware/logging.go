package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"docbrain-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// maxLoggedBody caps the request and response bodies copied into the log.
const maxLoggedBody = 2048

// bodyLogWriter captures the response body.
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		w.body.Write(b[:min(room, len(b))])
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger logs every request with its latency, status and (truncated)
// bodies. Multipart uploads and websocket upgrades are logged without bodies.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		captureBodies := !strings.HasPrefix(c.ContentType(), "multipart/") &&
			c.GetHeader("Upgrade") == ""

		var requestBody []byte
		if captureBodies && c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		blw := &bodyLogWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		if captureBodies {
			c.Writer = blw
		}

		c.Next()

		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"requestBody", truncate(requestBody),
			"responseBody", blw.body.String(),
		)
	}
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}
	return string(b)
}
