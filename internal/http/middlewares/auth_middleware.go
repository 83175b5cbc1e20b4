package middlewares

import (
	"net/http"
	"strings"

	"github.com/citypulse/cityhub/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifySessionToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

const ctxUserIDKey = "auth.userID"

// RequireAuth gates a route behind a bearer session token. A missing token
// and an invalid one produce distinct messages, matching the API contract.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "no_token",
					"message": "No token provided",
				},
			})
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "no_token",
					"message": "No token provided",
				},
			})
			return
		}

		claims, err := m.jwt.VerifySessionToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "invalid_token",
					"message": "Invalid token",
				},
			})
			return
		}

		// Stash the verified subject on the context
		c.Set(ctxUserIDKey, claims.Subject)

		c.Next()
	}
}

// Helper so handlers don't need to know the magic key.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
