package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/objectset-backend/internal/logger"
)

const sessionKeyContextKey = "session_key"

// SessionMiddleware extracts the opaque session key that scopes
// protected sets. Requests without one see only unscoped sets.
type SessionMiddleware struct {
	log *logger.Logger
}

func NewSessionMiddleware(log *logger.Logger) *SessionMiddleware {
	return &SessionMiddleware{log: log.With("middleware", "SessionMiddleware")}
}

func (m *SessionMiddleware) ExtractSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader("X-Session-Key"))
		if key != "" {
			c.Set(sessionKeyContextKey, key)
		}
		c.Next()
	}
}

// SessionKey returns the request's session key, or "" when the caller
// sent none.
func SessionKey(c *gin.Context) string {
	val, ok := c.Get(sessionKeyContextKey)
	if !ok {
		return ""
	}
	key, _ := val.(string)
	return key
}
