package httpapi

import (
	"net/http"
	"strings"

	"courier/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const accountIDKey = "accountID"

// RequireSession resolves the bearer token into an account id and stores it
// on the request context. Identity resolution happens here and nowhere else;
// everything behind this middleware receives the caller as an explicit id.
func RequireSession(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response{
				Success: false,
				Message: "missing bearer token",
			})
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			fail(c, err)
			c.Abort()
			return
		}
		accountID, err := claims.Account()
		if err != nil {
			fail(c, err)
			c.Abort()
			return
		}

		c.Set(accountIDKey, accountID)
		c.Next()
	}
}

// sessionAccount reads the account id stored by RequireSession.
func sessionAccount(c *gin.Context) uuid.UUID {
	return c.MustGet(accountIDKey).(uuid.UUID)
}
