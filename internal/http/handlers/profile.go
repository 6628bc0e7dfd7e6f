package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/givehub/internal/apiclient"
	dsession "github.com/geocoder89/givehub/internal/domain/session"
	"github.com/geocoder89/givehub/internal/domain/user"
	"github.com/geocoder89/givehub/internal/flash"
	"github.com/geocoder89/givehub/internal/guard"
	"github.com/geocoder89/givehub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const msgProfileUpdated = "Profile updated successfully"

type ProfileBackend interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
	UpdateUser(ctx context.Context, id string, req apiclient.UpdateUserRequest) (*user.User, error)
}

type IdentityUpdater interface {
	Update(ctx context.Context, sid, name, email string) (dsession.Session, error)
}

type ProfileHandler struct {
	r        *Renderer
	backend  ProfileBackend
	sessions IdentityUpdater
	notices  Notifier
}

func NewProfileHandler(r *Renderer, backend ProfileBackend, sessions IdentityUpdater, notices Notifier) *ProfileHandler {
	return &ProfileHandler{r: r, backend: backend, sessions: sessions, notices: notices}
}

type profileView struct {
	User   user.User
	Form   user.ProfileForm
	Errors FieldErrors
}

func (h *ProfileHandler) Show(c *gin.Context) {
	s, _ := guard.SessionFrom(c)

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.load(ctx, s)
	if respondAPIError(c, err) {
		return
	}

	h.r.Render(c, http.StatusOK, "profile", "My Profile", profileView{User: u})
}

func (h *ProfileHandler) Edit(c *gin.Context) {
	s, _ := guard.SessionFrom(c)

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.load(ctx, s)
	if respondAPIError(c, err) {
		return
	}

	h.r.Render(c, http.StatusOK, "profile_edit", "Edit Profile", profileView{
		User: u,
		Form: user.ProfileForm{Name: u.Name, Email: u.Email},
	})
}

func (h *ProfileHandler) Update(c *gin.Context) {
	s, _ := guard.SessionFrom(c)
	current := userFromSession(s)

	var form user.ProfileForm
	if errs, ok := BindForm(c, &form); !ok {
		h.r.Render(c, http.StatusUnprocessableEntity, "profile_edit", "Edit Profile", profileView{User: current, Form: form, Errors: errs})
		return
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	updated, err := h.backend.UpdateUser(ctx, s.ID, apiclient.UpdateUserRequest{Name: form.Name, Email: form.Email})
	if respondAPIError(c, err) {
		return
	}
	if err != nil {
		h.r.Render(c, http.StatusUnprocessableEntity, "profile_edit", "Edit Profile", profileView{User: current, Form: form})
		return
	}

	name, email := form.Name, form.Email
	if updated != nil && updated.Name != "" {
		name, email = updated.Name, updated.Email
	}

	if _, err := h.sessions.Update(ctx, middlewares.SessionIDFromContext(c), name, email); err != nil {
		h.notices.Notify(ctx, flash.Error(apiclient.MsgGeneric))
		redirect(c, "/profile")
		return
	}

	h.notices.Notify(ctx, flash.Success(msgProfileUpdated))
	redirect(c, "/profile")
}

// load prefers the backend's copy and falls back to the session identity
// when only that call failed.
func (h *ProfileHandler) load(ctx context.Context, s dsession.Session) (user.User, error) {
	u, err := h.backend.GetUser(ctx, s.ID)
	if apiclient.IsAuth(err) {
		return user.User{}, err
	}
	if err != nil || u == nil {
		return userFromSession(s), nil
	}
	return *u, nil
}

func userFromSession(s dsession.Session) user.User {
	return user.User{ID: s.ID, Name: s.Name, Email: s.Email, Role: s.Role}
}
