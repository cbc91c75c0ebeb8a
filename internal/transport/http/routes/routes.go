package routes

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/account-portal/internal/core/port"
	"github.com/arklim/account-portal/internal/infra/config"
	"github.com/arklim/account-portal/internal/transport/http/handlers"
	"github.com/arklim/account-portal/internal/transport/http/middleware"
	"github.com/arklim/account-portal/internal/usecase"
)

// Dependencies carries everything the router needs.
type Dependencies struct {
	Config       *config.AppConfig
	Logger       *zap.Logger
	Accounts     port.AccountRepository
	RateLimits   port.RateLimitStore
	Registration *usecase.RegistrationService
	Auth         *usecase.AuthService
	Profile      *usecase.ProfileService
	HealthChecks map[string]handlers.HealthChecker
	Metrics      *prometheus.Registry
}

// New assembles the gin engine: global middleware, session store, page
// routes, and the operational endpoints.
func New(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.AccessLog(deps.Logger))

	if deps.Metrics != nil {
		httpMetrics := middleware.NewHTTPMetrics(deps.Metrics)
		engine.Use(httpMetrics.Handler())
	}

	store := cookie.NewStore([]byte(deps.Config.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(deps.Config.Session.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   deps.Config.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	engine.Use(sessions.Sessions(deps.Config.Session.CookieName, store))

	engine.LoadHTMLGlob(deps.Config.App.TemplateGlob)

	pages := handlers.NewPageHandler()
	registration := handlers.NewRegistrationHandler(deps.Registration, deps.Logger)
	auth := handlers.NewAuthHandler(deps.Auth, deps.Logger)
	profile := handlers.NewProfileHandler(deps.Profile, deps.Auth, deps.Logger)
	health := handlers.NewHealthHandler(deps.Logger, deps.HealthChecks)

	engine.GET("/", pages.Index)

	anonymous := engine.Group("/", middleware.RedirectIfAuthenticated())
	{
		anonymous.GET("/register/", registration.ShowForm)
		anonymous.POST("/register/", registration.Submit)
		anonymous.GET("/login/", auth.ShowLogin)

		loginPost := anonymous.Group("/")
		if deps.RateLimits != nil {
			loginPost.Use(middleware.LoginRateLimit(
				deps.RateLimits,
				deps.Config.RateLimit.LoginMaxAttempts,
				deps.Config.RateLimit.WindowDuration,
				deps.Logger,
			))
		}
		loginPost.POST("/login/", auth.SubmitLogin)
	}

	engine.GET("/logout/", auth.Logout)
	engine.POST("/logout/", auth.Logout)

	authenticated := engine.Group("/", middleware.RequireAccount(deps.Accounts, deps.Logger))
	{
		authenticated.GET("/profile/", profile.Show)
		authenticated.GET("/edit_profile/", profile.ShowEditForm)
		authenticated.POST("/edit_profile/", profile.SubmitEdit)
		authenticated.GET("/delete_profile/", profile.ShowDeleteConfirm)
		authenticated.POST("/delete_profile/", profile.SubmitDelete)
		authenticated.GET("/change_password/", profile.ShowPasswordForm)
		authenticated.POST("/change_password/", profile.SubmitPasswordChange)
	}

	engine.GET("/healthz", health.Live)
	engine.GET("/readyz", health.Ready)
	if deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	return engine
}
