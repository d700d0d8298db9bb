package auth

import (
	"net/http"
	"time"
)

// CookieName carries the session token.
const CookieName = "X-Ratchet-Auth-Token"

// SessionCookie builds the cookie that delivers sess to the browser.
// secure should only be false for local development over plain HTTP.
func SessionCookie(sess Session, lifetime time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(lifetime / time.Second),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearedCookie instructs the browser to drop the session cookie.
func ClearedCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// TokenFromRequest returns the session token cookie value, or "".
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
