package handler

import (
	"net/http"
	"strings"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"github.com/gin-gonic/gin"
)

const userKey = "user"

type TokenParser interface {
	Parse(token string) (domain.User, error)
}

// RequireAuth пропускает запрос только с действительным Bearer-токеном
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		user, err := tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.User {
	user, _ := c.MustGet(userKey).(domain.User)
	return user
}
