// README: Firebase bearer-token auth; resolves the caller to an internal user id.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pickmeup/internal/infra"
	"pickmeup/internal/modules/user"
	"pickmeup/internal/types"
)

const (
	ctxCallerUID = "caller_uid"
	ctxCallerID  = "caller_id"
)

// UserResolver maps a verified identity to a registered user, creating it
// on first sign-in.
type UserResolver interface {
	Resolve(ctx context.Context, id user.Identity) (*user.User, error)
}

func Auth(verifier infra.TokenVerifier, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxCallerUID, token.UID)

		if users != nil {
			u, err := users.Resolve(c.Request.Context(), user.IdentityFromClaims(token.UID, token.Claims))
			if err != nil {
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			c.Set(ctxCallerID, u.ID)
		}
		c.Next()
	}
}

// CallerUID returns the Firebase uid set by Auth.
func CallerUID(c *gin.Context) string {
	return c.GetString(ctxCallerUID)
}

// CallerID returns the internal user id set by Auth, or zero.
func CallerID(c *gin.Context) types.ID {
	v, ok := c.Get(ctxCallerID)
	if !ok {
		return 0
	}
	id, _ := v.(types.ID)
	return id
}
