// Package server assembles the Gin router: middleware chain, public auth
// routes, guarded user and session routes, and the operational endpoints.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	authhandler "storefront-auth/internal/auth/handler"
	"storefront-auth/internal/ratelimit"
	"storefront-auth/internal/security"
	"storefront-auth/internal/server/middleware"
	sessionhandler "storefront-auth/internal/session/handler"
	userdomain "storefront-auth/internal/user/domain"
	userhandler "storefront-auth/internal/user/handler"
)

// Deps are the collaborators the router wires together.
type Deps struct {
	Auth     *authhandler.Handler
	Sessions *sessionhandler.Handler
	Users    *userhandler.Handler

	Codec        *security.TokenCodec
	UserStore    middleware.UserGetter
	SessionStore middleware.SessionStore
	Limiter      *ratelimit.Limiter

	Log      zerolog.Logger
	Registry *prometheus.Registry
}

// NewRouter builds the HTTP router. Route protection:
//
//	public            /auth/register, /auth/login (rate limited per IP)
//	refresh guard     /auth/refresh, /auth/logout
//	access guard      /users/me, /sessions...
//	access + ADMIN    /admin/sessions...
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("storefront-auth"))
	r.Use(middleware.RequestLogger(d.Log))

	metrics := middleware.NewMetrics(d.Registry)
	r.Use(metrics.Handler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))

	accessGuard := middleware.AccessGuard(d.Codec, d.UserStore, d.Log)
	refreshGuard := middleware.RefreshGuard(d.Codec, d.SessionStore, d.Log)
	loginLimit := middleware.LoginRateLimit(d.Limiter, d.Log)

	auth := r.Group("/auth")
	{
		auth.POST("/register", loginLimit, d.Auth.Register)
		auth.POST("/login", loginLimit, d.Auth.Login)
		auth.POST("/refresh", refreshGuard, d.Auth.Refresh)
		auth.POST("/logout", refreshGuard, d.Auth.Logout)
	}

	users := r.Group("/users", accessGuard)
	{
		users.GET("/me", d.Users.Me)
	}

	sessions := r.Group("/sessions", accessGuard)
	{
		sessions.GET("", d.Sessions.List)
		sessions.DELETE("", d.Sessions.DeleteOthers)
		sessions.GET("/:id", d.Sessions.Get)
		sessions.DELETE("/:id", d.Sessions.Delete)
	}

	admin := r.Group("/admin", accessGuard, middleware.RequireRoles(userdomain.RoleAdmin))
	{
		admin.GET("/sessions", d.Sessions.AdminList)
		admin.DELETE("/sessions", d.Sessions.AdminDeleteAll)
		admin.GET("/sessions/:id", d.Sessions.AdminGet)
		admin.DELETE("/sessions/:id", d.Sessions.AdminDelete)
	}

	return r
}
