package handlers

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/geocoder89/givehub/internal/domain/donation"
	dsession "github.com/geocoder89/givehub/internal/domain/session"
	"github.com/geocoder89/givehub/internal/flash"
	"github.com/geocoder89/givehub/internal/guard"
	"github.com/geocoder89/givehub/internal/http/middlewares"
	"github.com/geocoder89/givehub/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// StaticFS serves the stylesheet and the small scripts the pages load.
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// raw HTML in event descriptions is escaped: WithUnsafe is not set
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

var funcs = template.FuncMap{
	"markdown": renderMarkdown,
	"money":    money,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "TBA"
		}
		return t.Local().Format("Jan 2, 2006")
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return "TBA"
		}
		return t.Local().Format("Jan 2, 2006 15:04")
	},
	"title": titleCase,
}

func money(a donation.Amount) string {
	if d, ok := strings.CutPrefix(a.Display(), "-"); ok {
		return "-$" + d
	}
	return "$" + a.Display()
}

// titleCase upper-cases the first rune only: "volunteer" -> "Volunteer".
func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

type Identity interface {
	Hydrate(ctx context.Context, sid string) (dsession.Session, session.State, error)
}

type NoticeDrainer interface {
	Drain(ctx context.Context, sid string) []flash.Notice
}

// View is what every template receives. Page specific values live in Data.
type View struct {
	Title   string
	Path    string
	Session *dsession.Session
	Notices []flash.Notice
	Nav     []NavLink
	CSRF    template.HTML
	Data    any
}

// Renderer owns the parsed page set. Each page is layout.html plus its own
// file, cloned once at startup.
type Renderer struct {
	pages    map[string]*template.Template
	sessions Identity
	notices  NoticeDrainer
	log      *slog.Logger
}

func NewRenderer(sessions Identity, notices NoticeDrainer, log *slog.Logger) (*Renderer, error) {
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, f := range files {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		pages[strings.TrimSuffix(path.Base(f), ".html")] = t
	}

	return &Renderer{pages: pages, sessions: sessions, notices: notices, log: log}, nil
}

// Render executes page into a buffer first so a template failure never
// leaves a half written response.
func (r *Renderer) Render(c *gin.Context, status int, page, title string, data any) {
	t, ok := r.pages[page]
	if !ok {
		r.log.ErrorContext(c.Request.Context(), "render.unknown_page", "page", page)
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}

	v := r.view(c, title, data)

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		r.log.ErrorContext(c.Request.Context(), "render.failed", "page", page, "err", err)
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (r *Renderer) view(c *gin.Context, title string, data any) View {
	ctx := c.Request.Context()
	sid := middlewares.SessionIDFromContext(c)

	v := View{
		Title: title,
		Path:  c.Request.URL.Path,
		CSRF:  csrf.TemplateField(c.Request),
		Data:  data,
	}

	if s, ok := currentSession(c, r.sessions); ok {
		v.Session = &s
		v.Nav = SidebarLinks(s.Role, v.Path)
	}

	if sid != "" && r.notices != nil {
		v.Notices = r.notices.Drain(ctx, sid)
	}

	return v
}

// currentSession prefers what the guard admitted and falls back to a
// hydrate for public pages.
func currentSession(c *gin.Context, sessions Identity) (dsession.Session, bool) {
	if s, ok := guard.SessionFrom(c); ok {
		return s, true
	}
	if sessions == nil {
		return dsession.Session{}, false
	}

	sid := middlewares.SessionIDFromContext(c)
	if sid == "" {
		return dsession.Session{}, false
	}

	s, state, _ := sessions.Hydrate(c.Request.Context(), sid)
	if state != session.StateReady {
		return dsession.Session{}, false
	}
	return s, true
}
