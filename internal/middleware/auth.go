package middleware

import (
	"net/http"

	"github.com/Monthlyaway/shortlink-redirect/internal/auth"
	"github.com/gin-gonic/gin"
)

// UserIDKey holds the authenticated user id in the gin context
const UserIDKey = "userID"

// OptionalAuth identifies the caller when an Authorization header is present.
// Anonymous requests pass through; a bad credential is rejected.
func OptionalAuth(a auth.Authenticator) gin.HandlerFunc {
	return authenticate(a, false)
}

// RequireAuth rejects requests without a valid credential
func RequireAuth(a auth.Authenticator) gin.HandlerFunc {
	return authenticate(a, true)
}

func authenticate(a auth.Authenticator, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.CurrentUser(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			_ = c.Error(err)
			abortUnauthorized(c)
			return
		}
		if user == nil {
			if required {
				abortUnauthorized(c)
				return
			}
			c.Next()
			return
		}
		c.Set(UserIDKey, user.ID)
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" for anonymous callers
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": "authentication required",
		"data":    nil,
	})
}
