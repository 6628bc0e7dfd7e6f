package middlewares

import (
	"time"

	"github.com/geocoder89/givehub/internal/actorctx"
	"github.com/geocoder89/givehub/internal/session"
	"github.com/gin-gonic/gin"
)

// Session gives every visitor a session id cookie and carries the id on
// the request context, where the flash notifier, the backend client and
// the donation flow look it up.
func Session(ttl time.Duration, secure bool) gin.HandlerFunc {
	cookie := sessionCookie{ttl: ttl, secure: secure}

	return func(c *gin.Context) {
		c.Set(CtxSessionCookie, cookie)

		sid := session.ReadID(c.Request)
		if sid == "" {
			sid = session.NewID()
			session.WriteCookie(c.Writer, sid, ttl, secure)
		}
		useSessionID(c, sid)

		c.Next()
	}
}

type sessionCookie struct {
	ttl    time.Duration
	secure bool
}

// RotateSessionID switches the visitor to sid for the rest of the request
// and for the browser, with the cookie settings of the Session middleware.
func RotateSessionID(c *gin.Context, sid string) {
	v, _ := c.Get(CtxSessionCookie)
	cookie, _ := v.(sessionCookie)
	session.WriteCookie(c.Writer, sid, cookie.ttl, cookie.secure)
	useSessionID(c, sid)
}

func useSessionID(c *gin.Context, sid string) {
	c.Set(CtxSessionID, sid)
	c.Request = c.Request.WithContext(actorctx.WithSessionID(c.Request.Context(), sid))
}

func SessionIDFromContext(c *gin.Context) string {
	v, ok := c.Get(CtxSessionID)
	if !ok {
		return ""
	}
	sid, _ := v.(string)
	return sid
}
