package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/optocase-backend/internal/platform/apierr"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

// Error writes the failure envelope `{"error": {code, message}, ...payload}`.
// apierr values keep their status/code and merge any payload maps into the
// envelope (a CASE_COMPLETED failure carries the blocking attempt this way).
// Every other error is logged and collapsed to a bare 500 SERVER_ERROR so
// storage details never reach a client.
func Error(c *gin.Context, log *logger.Logger, err error) {
	if ae, ok := apierr.As(err); ok {
		body := gin.H{"error": APIError{Message: ae.Error(), Code: ae.Code}}
		if m, ok := ae.Payload.(map[string]any); ok {
			for k, v := range m {
				if k == "error" {
					continue
				}
				body[k] = v
			}
		} else if ae.Payload != nil {
			body["details"] = ae.Payload
		}
		c.JSON(ae.Status, body)
		return
	}

	if log != nil {
		log.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": APIError{Message: "internal server error", Code: "SERVER_ERROR"},
	})
}

// ErrorCode is for boundary-level failures the middleware raises itself
// (missing params, auth misses) where no apierr exists yet.
func ErrorCode(c *gin.Context, status int, code string, msg string) {
	c.JSON(status, gin.H{"error": APIError{Message: msg, Code: code}})
}
