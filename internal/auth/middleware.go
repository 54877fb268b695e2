package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// identityKey is the gin context key holding the resolved caller identity.
const identityKey = "auth_identity"

// GinAuth resolves the caller identity for every request. With auth
// disabled the identity is Anonymous and nothing is rejected; with auth
// enabled a missing or invalid bearer token is a 401.
func (s *Service) GinAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.enabled {
			c.Set(identityKey, Anonymous)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "authentication_required",
				"message": "Bearer token required",
			})
			return
		}
		identity, err := s.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "authentication_failed",
				"message": "Invalid or expired token",
			})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// Identity returns the caller identity resolved by GinAuth, or Anonymous
// when none was set.
func Identity(c *gin.Context) string {
	if v, ok := c.Get(identityKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return Anonymous
}
