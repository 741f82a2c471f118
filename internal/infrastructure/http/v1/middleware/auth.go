package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"shopstock/internal/core/apperror"
	appctx "shopstock/internal/core/context"
)

// JWTValidator turns a bearer token into a session.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.Session, error)
}

// Auth middleware validates JWT tokens and puts the session into the
// request context.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "missing or malformed authorization header")
			return
		}

		session, err := validator.ValidateToken(token)
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}

		setSession(c, session)
		c.Next()
	}
}

// StaticSession attaches a fixed session to every request. It stands in for
// Auth when no signing secret is configured.
func StaticSession(session appctx.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := session
		setSession(c, &s)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setSession(c *gin.Context, session *appctx.Session) {
	c.Request = c.Request.WithContext(appctx.WithSession(c.Request.Context(), session))
	c.Set("user_id", session.UserID)
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
