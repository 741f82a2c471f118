package middleware

import (
	"github.com/gin-gonic/gin"

	"shopstock/internal/core/apperror"
	appctx "shopstock/internal/core/context"
)

// RequirePage lets the request through when the session may open page.
// Admins may open every page.
func RequirePage(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := appctx.GetSession(c.Request.Context())
		if session == nil {
			_ = c.Error(apperror.NewUnauthorized("authentication required"))
			c.Abort()
			return
		}

		if !session.CanAccess(page) {
			_ = c.Error(
				apperror.NewForbidden("page not allowed for this role").
					WithDetail("page", page).
					WithDetail("role", session.Role),
			)
			c.Abort()
			return
		}

		c.Next()
	}
}
