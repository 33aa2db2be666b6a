package middleware

import (
	"net/http"

	"github.com/Retroinn/MotoCrew/database/model"
	"github.com/Retroinn/MotoCrew/web/session"

	"github.com/gin-gonic/gin"
)

// RoleRequired rejects requests whose session user does not carry one of the
// given roles.
func RoleRequired(roles ...model.UserRole) gin.HandlerFunc {
	allowed := make(map[model.UserRole]bool)
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		user := session.GetLoginUser(c)
		if user == nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !allowed[user.Role] {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
