package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/givehub/internal/cache"
	"github.com/geocoder89/givehub/internal/config"
	"github.com/geocoder89/givehub/internal/domain/role"
	"github.com/geocoder89/givehub/internal/guard"
	"github.com/geocoder89/givehub/internal/http/handlers"
	"github.com/geocoder89/givehub/internal/http/middlewares"
	"github.com/geocoder89/givehub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxFormBytes = 1 << 20

// Backend is the full slice of the REST client the pages use.
type Backend interface {
	handlers.EventsReader
	handlers.DashboardBackend
	handlers.VolunteerBackend
	handlers.ProfileBackend
	handlers.AdminBackend
}

// Sessions is what the pages need from the session manager.
type Sessions interface {
	handlers.SessionManager
	handlers.IdentityUpdater
	handlers.ChangeSubscriber
}

type Notices interface {
	handlers.NoticeMover
	handlers.NoticeDrainer
}

type Deps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	Backend  Backend
	Sessions Sessions
	Notices  Notices
	Guard    *guard.Guard
	Flow     handlers.DonationFlow
	Cache    *cache.Cache

	// nil when no database is configured
	Reconciliations handlers.ReconciliationStore

	Checks map[string]handlers.Check

	// nil disables CSRF protection
	CSRFKey []byte
}

func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	secure := d.Cfg.Env == "prod"

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("givehub-web"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())

	// probes and metrics sit outside sessions and CSRF
	health := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	r.StaticFS("/static", handlers.StaticFS())

	renderer, err := handlers.NewRenderer(d.Sessions, d.Notices, d.Log)
	if err != nil {
		return nil, err
	}

	site := r.Group("/")
	site.Use(middlewares.MaxBodyBytes(maxFormBytes))
	site.Use(middlewares.Session(d.Cfg.SessionTTL(), secure))
	if d.CSRFKey != nil {
		site.Use(middlewares.CSRF(d.CSRFKey, secure))
	}

	limiter := middlewares.NewRateLimiter(10, time.Minute)
	limited := limiter.RateLimiterMiddleware(middlewares.KeyByIP)
	// each attempt may create a payment intent
	perSession := middlewares.NewRateLimiter(5, time.Minute).RateLimiterMiddleware(middlewares.KeyBySessionOrIP)

	pages := handlers.NewPagesHandler(renderer, d.Backend, d.Cache)
	auth := handlers.NewAuthHandler(renderer, d.Sessions, d.Notices)
	donate := handlers.NewDonateHandler(renderer, d.Flow, d.Sessions, d.Cfg.StripePublishableKey)
	dashboard := handlers.NewDashboardHandler(renderer, d.Backend)
	profile := handlers.NewProfileHandler(renderer, d.Backend, d.Sessions, d.Notices)
	volunteer := handlers.NewVolunteerHandler(renderer, d.Backend, d.Notices)
	admin := handlers.NewAdminHandler(renderer, d.Backend, d.Cache, d.Notices)
	recon := handlers.NewReconciliationsHandler(renderer, d.Reconciliations, d.Notices)
	events := handlers.NewSessionEventsHandler(d.Sessions)

	// public
	site.GET("/", pages.Home)
	site.GET("/about", pages.About)
	site.GET("/contact", pages.Contact)
	site.GET("/events", pages.Events)
	site.GET("/events/:id", pages.Event)
	site.GET("/donate", donate.Page)
	site.POST("/donate", limited, perSession, donate.Submit)
	site.GET("/login", auth.LoginPage)
	site.POST("/login", limited, auth.Login)
	site.GET("/register", auth.RegisterPage)
	site.POST("/register", limited, auth.Register)
	site.POST("/logout", auth.Logout)
	site.GET("/session/events", events.Stream)

	// any logged-in role
	member := site.Group("/", d.Guard.Require())
	member.GET("/dashboard", dashboard.Show)
	member.GET("/profile", profile.Show)
	member.GET("/profile/edit", profile.Edit)
	member.POST("/profile/edit", profile.Update)

	vol := site.Group("/volunteer", d.Guard.Require(role.Volunteer))
	vol.GET("", volunteer.Portal)
	vol.GET("/events", volunteer.MyEvents)
	vol.POST("/events/:id/register", volunteer.Register)

	adm := site.Group("/admin", d.Guard.Require(role.Admin))
	adm.GET("", admin.Stats)
	adm.GET("/events", admin.Events)
	adm.GET("/events/new", admin.NewEvent)
	adm.POST("/events/new", admin.CreateEvent)
	adm.GET("/events/:id/edit", admin.EditEvent)
	adm.POST("/events/:id/edit", admin.UpdateEvent)
	adm.GET("/events/:id/delete", admin.ConfirmDelete)
	adm.POST("/events/:id/delete", admin.DeleteEvent)
	adm.GET("/reports", admin.Reports)
	adm.GET("/reconciliations", recon.List)
	adm.POST("/reconciliations/:id/resolve", recon.Resolve)

	return r, nil
}
