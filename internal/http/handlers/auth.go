package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/givehub/internal/actorctx"
	"github.com/geocoder89/givehub/internal/apiclient"
	"github.com/geocoder89/givehub/internal/domain/role"
	dsession "github.com/geocoder89/givehub/internal/domain/session"
	"github.com/geocoder89/givehub/internal/domain/user"
	"github.com/geocoder89/givehub/internal/flash"
	"github.com/geocoder89/givehub/internal/guard"
	"github.com/geocoder89/givehub/internal/http/middlewares"
	"github.com/geocoder89/givehub/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	msgLoggedOut     = "You have been logged out"
	msgAuthFailed    = "We could not sign you in. Please try again."
	msgAccountCreate = "Your account has been created"
)

type SessionManager interface {
	Identity
	Login(ctx context.Context, sid, email, password string) (dsession.Session, error)
	Register(ctx context.Context, sid, name, email, password string, r role.Role) (dsession.Session, error)
	Logout(ctx context.Context, sid string) error
}

type Notifier interface {
	Notify(ctx context.Context, n flash.Notice)
}

// NoticeMover is a Notifier that can carry queued notices to a new session id.
type NoticeMover interface {
	Notifier
	Move(ctx context.Context, from, to string)
}

type AuthHandler struct {
	r        *Renderer
	sessions SessionManager
	notices  NoticeMover
}

func NewAuthHandler(r *Renderer, sessions SessionManager, notices NoticeMover) *AuthHandler {
	return &AuthHandler{r: r, sessions: sessions, notices: notices}
}

type authView struct {
	Form   any
	Errors FieldErrors
	Next   string
	Roles  []role.Role
}

// self service sign up never grants admin
var selfServiceRoles = []role.Role{role.User, role.Volunteer}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	next := guard.SafeNext(c.Query("next"), guard.DashboardPath)
	if _, ok := currentSession(c, h.sessions); ok {
		redirect(c, next)
		return
	}

	h.r.Render(c, http.StatusOK, "login", "Login", authView{Form: user.LoginForm{}, Next: next})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form user.LoginForm
	errs, ok := BindForm(c, &form)
	password := form.Password
	form.Password = ""
	next := guard.SafeNext(form.Next, guard.DashboardPath)

	if !ok {
		h.r.Render(c, http.StatusUnprocessableEntity, "login", "Login", authView{Form: form, Errors: errs, Next: next})
		return
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	sid := session.NewID()
	s, err := h.sessions.Login(ctx, sid, form.Email, password)
	if err != nil {
		h.authFailed(ctx, err)
		h.r.Render(c, http.StatusUnauthorized, "login", "Login", authView{Form: form, Next: next})
		return
	}

	ctx = h.rotate(ctx, c, sid)
	h.notices.Notify(ctx, flash.Success("Welcome back, "+s.Name))
	redirect(c, next)
}

func (h *AuthHandler) RegisterPage(c *gin.Context) {
	if _, ok := currentSession(c, h.sessions); ok {
		redirect(c, guard.DashboardPath)
		return
	}

	h.r.Render(c, http.StatusOK, "register", "Create an account", authView{
		Form:  user.RegisterForm{Role: string(role.User)},
		Roles: selfServiceRoles,
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form user.RegisterForm
	errs, ok := BindForm(c, &form)
	password := form.Password
	form.Password = ""

	if !ok {
		h.r.Render(c, http.StatusUnprocessableEntity, "register", "Create an account", authView{Form: form, Errors: errs, Roles: selfServiceRoles})
		return
	}

	r, err := role.Parse(form.Role)
	if err != nil || r == role.Admin {
		h.r.Render(c, http.StatusUnprocessableEntity, "register", "Create an account", authView{
			Form:   form,
			Errors: FieldErrors{"role": "must be one of user, volunteer"},
			Roles:  selfServiceRoles,
		})
		return
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	sid := session.NewID()
	if _, err := h.sessions.Register(ctx, sid, form.Name, form.Email, password, r); err != nil {
		h.authFailed(ctx, err)
		h.r.Render(c, http.StatusUnprocessableEntity, "register", "Create an account", authView{Form: form, Roles: selfServiceRoles})
		return
	}

	ctx = h.rotate(ctx, c, sid)
	h.notices.Notify(ctx, flash.Success(msgAccountCreate))
	redirect(c, guard.DashboardPath)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.sessions.Logout(ctx, middlewares.SessionIDFromContext(c)); err != nil {
		h.notices.Notify(ctx, flash.Error(apiclient.MsgGeneric))
		redirect(c, guard.DashboardPath)
		return
	}

	h.notices.Notify(ctx, flash.Info(msgLoggedOut))
	redirect(c, guard.LoginPath)
}

// rotate moves the browser onto the freshly stored session sid, carrying any
// queued notices along, and returns ctx bound to the new id.
func (h *AuthHandler) rotate(ctx context.Context, c *gin.Context, sid string) context.Context {
	prev := middlewares.SessionIDFromContext(c)
	middlewares.RotateSessionID(c, sid)
	h.notices.Move(ctx, prev, sid)
	return actorctx.WithSessionID(ctx, sid)
}

// authFailed queues a notice unless the backend client already did.
func (h *AuthHandler) authFailed(ctx context.Context, err error) {
	if apiclient.Notified(err) {
		return
	}
	if errors.Is(err, session.ErrInvalidAuthResponse) {
		h.notices.Notify(ctx, flash.Error(msgAuthFailed))
		return
	}
	h.notices.Notify(ctx, flash.Error(apiclient.MsgGeneric))
}
