package guard

import (
	"context"
	"net/http"
	"net/url"

	"github.com/geocoder89/givehub/internal/actorctx"
	"github.com/geocoder89/givehub/internal/domain/role"
	dsession "github.com/geocoder89/givehub/internal/domain/session"
	"github.com/geocoder89/givehub/internal/flash"
	"github.com/geocoder89/givehub/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	MsgLoginRequired = "You need to login first"
	MsgForbidden     = "You do not have permission to access this page"

	LoginPath     = "/login"
	DashboardPath = "/dashboard"

	ctxSessionKey = "guard.session"
)

type Outcome int

const (
	Allow Outcome = iota
	Loading
	RedirectLogin
	RedirectDashboard
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Loading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	default:
		return "redirect_dashboard"
	}
}

type Decision struct {
	Outcome Outcome
	Notice  *flash.Notice
}

// Decide is the access rule. An empty required set admits any logged-in role.
func Decide(state session.State, s dsession.Session, required role.Set) Decision {
	switch state {
	case session.StateLoading:
		return Decision{Outcome: Loading}
	case session.StateAnonymous:
		n := flash.Error(MsgLoginRequired)
		return Decision{Outcome: RedirectLogin, Notice: &n}
	}

	if !required.Empty() && !required.Has(s.Role) {
		n := flash.Error(MsgForbidden)
		return Decision{Outcome: RedirectDashboard, Notice: &n}
	}
	return Decision{Outcome: Allow}
}

type Hydrator interface {
	Hydrate(ctx context.Context, sid string) (dsession.Session, session.State, error)
}

type Notifier interface {
	Notify(ctx context.Context, n flash.Notice)
}

// Guard evaluates Decide on every request, so a session that disappears
// mid-visit is caught on the next page load.
type Guard struct {
	sessions Hydrator
	notifier Notifier
}

func New(sessions Hydrator, notifier Notifier) *Guard {
	return &Guard{sessions: sessions, notifier: notifier}
}

func (g *Guard) Require(roles ...role.Role) gin.HandlerFunc {
	required := role.NewSet(roles...)

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sid, _ := actorctx.SessionIDFrom(ctx)

		s, state, _ := g.sessions.Hydrate(ctx, sid)
		d := Decide(state, s, required)

		if d.Notice != nil {
			g.notifier.Notify(ctx, *d.Notice)
		}

		switch d.Outcome {
		case Allow:
			c.Set(ctxSessionKey, s)
			c.Next()
		case Loading:
			c.Header("Refresh", "2")
			c.Header("Cache-Control", "no-store")
			c.Data(http.StatusServiceUnavailable, "text/html; charset=utf-8", []byte(loadingPage))
			c.Abort()
		case RedirectLogin:
			c.Redirect(http.StatusSeeOther, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
		case RedirectDashboard:
			c.Redirect(http.StatusSeeOther, DashboardPath)
			c.Abort()
		}
	}
}

// SessionFrom returns the session admitted by Require.
func SessionFrom(c *gin.Context) (dsession.Session, bool) {
	v, ok := c.Get(ctxSessionKey)
	if !ok {
		return dsession.Session{}, false
	}
	s, ok := v.(dsession.Session)
	return s, ok
}

// SafeNext returns next when it is a local absolute path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}

const loadingPage = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"><title>Loading...</title></head>
<body><p class="loading">Loading...</p></body></html>
`
