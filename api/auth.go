package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(token string) (userID string, ok bool)
}

// StaticTokens maps bearer tokens to user ids.
type StaticTokens map[string]string

func (t StaticTokens) Authenticate(token string) (string, bool) {
	user, ok := t[token]
	return user, ok && user != ""
}

// ParseStaticTokens parses "token:user,token:user".
func ParseStaticTokens(raw string) StaticTokens {
	tokens := StaticTokens{}
	for _, pair := range strings.Split(raw, ",") {
		token, user, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || token == "" || user == "" {
			continue
		}
		tokens[token] = user
	}
	return tokens
}

// BearerAuth rejects requests without a valid Authorization header and
// stores the user id in the context. Browsers cannot set headers on
// websocket upgrades, so a token query parameter is accepted as well.
func BearerAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || token == c.GetHeader("Authorization") {
			token = c.Query("token")
		}
		if auth == nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		userID, ok := auth.Authenticate(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
