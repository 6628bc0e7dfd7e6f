package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const CookieName = "givehub_sid"

func NewID() string { return uuid.NewString() }

// ReadID returns the session id from the request cookie, or "" when absent
// or not a well-formed id.
func ReadID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

func WriteCookie(w http.ResponseWriter, sid string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
