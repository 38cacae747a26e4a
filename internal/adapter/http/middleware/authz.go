package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/logging"
	"github.com/aq2208/gorder-oms/internal/security"
	"github.com/gin-gonic/gin"
)

// Authenticator resolves a raw bearer token into a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (security.Principal, error)
}

type Authz struct {
	auth Authenticator
}

func NewAuthz(auth Authenticator) *Authz {
	return &Authz{auth: auth}
}

// Require checks the bearer token and ensures all required permissions are
// present. The principal is attached to the request context.
func (a *Authz) Require(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			unauth(c, "Unauthorized", "No token, authorization denied")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		p, err := a.auth.Authenticate(c.Request.Context(), raw)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrSessionExpired):
			unauth(c, "SessionExpired", "Session expired, please log in again")
			return
		case errors.Is(err, domain.ErrUnauthorized):
			unauth(c, "Unauthorized", "Token is not valid")
			return
		default:
			_ = c.Error(err)
			logging.From(c).Error("authenticate", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false, "error": "Something went wrong!", "code": "InternalError",
			})
			return
		}

		if !hasAll(p, requiredPerms) {
			forbidden(c, "Forbidden", "missing required permissions")
			return
		}

		c.Set("principal", p)
		c.Request = c.Request.WithContext(security.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func hasAll(p security.Principal, req []string) bool {
	for _, r := range req {
		if !p.Has(r) {
			return false
		}
	}
	return true
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": desc, "code": code})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="insufficient_scope", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": desc, "code": code})
}
