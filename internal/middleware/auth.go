// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bierstube/storefront/internal/i18n"
	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/utils"
)

// CallerKey is the gin context key holding the resolved models.Caller.
const CallerKey = "caller"

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abortWith(c *gin.Context, status int, code, key string) {
	lang := utils.GetLangFromContext(c)
	utils.ErrorResponse(c, status, code, i18n.T(lang, key), nil)
	c.Abort()
}

func AuthRequired(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortWith(c, http.StatusUnauthorized, "UNAUTHENTICATED", i18n.KeyAuthRequired)
			return
		}

		caller, err := tokens.Resolve(token)
		if err != nil {
			abortWith(c, http.StatusUnauthorized, "UNAUTHENTICATED", i18n.KeyAuthInvalidToken)
			return
		}

		c.Set(CallerKey, caller)
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetCaller(c).Privileged() {
			abortWith(c, http.StatusForbidden, "UNAUTHORIZED", i18n.KeyAdminAccessDenied)
			return
		}
		c.Next()
	}
}

// OptionalAuth resolves the caller when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if caller, err := tokens.Resolve(token); err == nil {
				c.Set(CallerKey, caller)
			}
		}
		c.Next()
	}
}

// GetCaller returns the caller set by the auth middleware, or Anonymous.
func GetCaller(c *gin.Context) models.Caller {
	if v, exists := c.Get(CallerKey); exists {
		if caller, ok := v.(models.Caller); ok {
			return caller
		}
	}
	return models.Anonymous()
}
