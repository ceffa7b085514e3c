package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	problems "github.com/Apurer/go-gin-orders-server/internal/shared/errors"
)

const (
	principalKey = "auth.principal"
	adminKey     = "auth.admin"

	// TokenQueryParam carries the token where headers cannot be set, as on websocket upgrades.
	TokenQueryParam = "access_token"
)

// TokenFromRequest reads a bearer token from the Authorization header or the access_token query.
func TokenFromRequest(c *gin.Context) string {
	if authz := c.GetHeader("Authorization"); authz != "" {
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(c.Query(TokenQueryParam))
}

// RequireSession rejects requests without a valid token and stores the principal.
func RequireSession(v *Verifier, admins AdminList) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := v.Verify(TokenFromRequest(c))
		if err != nil {
			problems.Respond(c, problems.ErrUnauthorized.WithDetail(err.Error()))
			c.Abort()
			return
		}
		c.Set(principalKey, principal)
		c.Set(adminKey, admins.Contains(principal.Email))
		c.Next()
	}
}

// RequireAdmin must run after RequireSession.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			problems.Respond(c, problems.ErrForbidden.WithDetail("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by RequireSession.
func PrincipalFrom(c *gin.Context) (*Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*Principal)
	return principal, ok && principal != nil
}

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(adminKey)
}
