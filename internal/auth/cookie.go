package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "session"

// CookieWriter stores issued session tokens client-side and clears them
// on logout. The cookie is http-only and root-scoped; Secure is set in
// production deployments.
type CookieWriter struct {
	Secure bool
	MaxAge time.Duration
}

// Set writes the session cookie on the response.
func (w CookieWriter) Set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(w.MaxAge.Seconds()), "/", "", w.Secure, true)
}

// Clear instructs the client to discard the session cookie by writing an
// empty value with an expiry in the past.
func (w CookieWriter) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", w.Secure, true)
}

// Token reads the session token from the request cookie. An absent
// cookie yields an empty string.
func Token(c *gin.Context) string {
	token, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return token
}
