package middleware

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/vitalboard/server/internal/auth"
	"github.com/vitalboard/server/pkg/errors"
	"github.com/vitalboard/server/pkg/response"
)

const (
	CtxClaimsKey = "sessionClaims"
	CtxEmailKey  = "sessionEmail"
	CtxNameKey   = "sessionName"
)

// Session enforces a valid session cookie using the supplied JWT service.
func Session(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := iauth.Token(c)
		if token == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.Verify(token)
		if err != nil {
			// Normalise all validation failures to 401
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		// Propagate identity into request context
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxEmailKey, claims.Email())
		c.Set(CtxNameKey, claims.Name)

		c.Next()
	}
}

// SessionEmail returns the authenticated email set by Session, or an
// empty string on unauthenticated requests.
func SessionEmail(c *gin.Context) string {
	return c.GetString(CtxEmailKey)
}
