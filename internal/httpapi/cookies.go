package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieOptions describe the access-token cookie the server guard reads.
type CookieOptions struct {
	Name   string
	Domain string
	Secure bool
}

func (o CookieOptions) set(c *gin.Context, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge <= 0 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(o.Name, token, maxAge, "/", o.Domain, o.Secure, true)
}

func (o CookieOptions) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(o.Name, "", -1, "/", o.Domain, o.Secure, true)
}
