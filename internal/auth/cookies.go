package auth

import (
	"net/http"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "session"

// SessionCookieMaxAge is the cookie lifetime in seconds (7 days).
const SessionCookieMaxAge = 604800

// CookieConfig holds cookie transport settings.
type CookieConfig struct {
	Secure bool // HTTPS only; always true in production
}

// SetSessionCookie stores the session token in an httpOnly cookie.
func SetSessionCookie(w http.ResponseWriter, token string, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   SessionCookieMaxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie logs the client out by reissuing the session
// cookie with Max-Age 0 (negative MaxAge serializes as Max-Age=0).
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetSessionCookie retrieves the session token from the request.
func GetSessionCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
