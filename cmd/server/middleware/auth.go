package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/filedepot/filedepot/internal/sessions"
)

// TokenHeader carries the session token on authenticated requests.
const TokenHeader = "X-Token"

const userIDKey = "userID"

// TokenAuth rejects requests whose X-Token header is absent or does not
// resolve to a live session.
func TokenAuth(store *sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(TokenHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		userID, ok, err := store.Resolve(c.Request.Context(), token)
		if err != nil || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// OptionalTokenAuth resolves the token when present but lets anonymous
// requests through; visibility rules downstream decide what they may see.
func OptionalTokenAuth(store *sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := c.GetHeader(TokenHeader); token != "" {
			if userID, ok, err := store.Resolve(c.Request.Context(), token); err == nil && ok {
				c.Set(userIDKey, userID)
			}
		}
		c.Next()
	}
}

// UserIDFromContext extracts the authenticated user id set by TokenAuth.
func UserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
