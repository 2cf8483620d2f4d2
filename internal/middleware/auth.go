package middleware

import (
	"context"
	"net/http"
	"strings"

	"pixelnest/internal/apperror"
	"pixelnest/internal/models"

	"github.com/gin-gonic/gin"
)

const CurrentUserKey = "currentUser"

// TokenCookie is the HTTP-only cookie holding the session token.
const TokenCookie = "token"

type Resolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// TokenFromRequest reads the session token from the cookie, falling back
// to an Authorization: Bearer header.
func TokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(TokenCookie); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// AuthRequired resolves the session token and stores the user on the
// context, or aborts with 401.
func AuthRequired(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := resolver.Resolve(c.Request.Context(), TokenFromRequest(c))
		if err != nil {
			status := http.StatusUnauthorized
			message := "Authentication required"
			if ae, ok := apperror.From(err); ok {
				status = ae.StatusCode()
				message = ae.Message
			}
			c.AbortWithStatusJSON(status, gin.H{
				"success": false,
				"message": message,
				"error":   message,
			})
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthRequired.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
