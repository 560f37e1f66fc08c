package middleware

import (
	"net/http"
	"strings"

	"stickman_shake/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
)

// JWT requires a bearer token and puts user_id and email into the context.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		id, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ctxUserID, id.UserID)
		c.Set(ctxEmail, id.Email)
		c.Next()
	}
}

// UserID извлекает user_id из контекста Gin
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// Identity returns the authenticated identity set by JWT.
func Identity(c *gin.Context) (service.Identity, bool) {
	uid, ok := UserID(c)
	if !ok {
		return service.Identity{}, false
	}
	return service.Identity{UserID: uid, Email: c.GetString(ctxEmail)}, true
}
