package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace/internal/domain"
)

const principalKey = "auth.principal"

// Authenticate rejects requests without a valid Authorization bearer token
// and stores the principal on the context.
func Authenticate(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := v.Verify(c.GetHeader("Authorization"))
		if err != nil {
			abort(c, http.StatusUnauthorized, err)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole lets through principals holding one of roles.
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, domain.Unauthenticated("missing bearer token"))
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, domain.Unauthorized("role "+string(p.Role)+" may not perform this action"))
	}
}

func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func abort(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err})
}
