package session

import (
	"net/http"
	"time"
)

// CookieOptions carries the deployment-dependent attributes of the session
// cookie. Path and SameSite are fixed: the banner needs the cookie on every
// page of the origin, and Lax keeps it off cross-site subrequests.
type CookieOptions struct {
	HttpOnly bool
	Secure   bool
}

func (c *Channel) setCookie(w http.ResponseWriter, value string, expire time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		Value:    value,
		Expires:  expire,
		HttpOnly: c.cookies.HttpOnly,
		Secure:   c.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCookie overwrites the session cookie with an expired empty one,
// carrying the same attributes so the browser matches it
func (c *Channel) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: c.cookies.HttpOnly,
		Secure:   c.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
