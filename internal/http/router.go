package http

import (
	"log/slog"
	"time"

	"github.com/citypulse/cityhub/internal/config"
	"github.com/citypulse/cityhub/internal/http/handlers"
	"github.com/citypulse/cityhub/internal/http/middlewares"
	"github.com/citypulse/cityhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries everything the router needs wired in; nothing here is a
// package-level singleton.
type Deps struct {
	Log      *slog.Logger
	Cfg      config.Config
	Auth     handlers.AuthService
	Verifier middlewares.TokenVerifier
	Prom     *observability.Prom
	PromReg  *prometheus.Registry
	Pings    map[string]handlers.Ping
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(d.Log))
	r.Use(otelgin.Middleware("cityhub-api"))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20)) // 1 MiB is plenty for auth payloads
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(d.Pings)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.PromReg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.PromReg, promhttp.HandlerOpts{})))
	}

	// auth surface

	authHandler := handlers.NewAuthHandler(d.Auth)
	authMw := middlewares.NewAuthMiddleware(d.Verifier)

	// credential endpoints are the only brute-forceable surface
	credLimiter := middlewares.NewRateLimiter(10, time.Minute)

	// bearer routes get a per-user budget so one account cannot hog the store
	userLimiter := middlewares.NewRateLimiter(60, time.Minute)

	api := r.Group("/api/auth")
	{
		api.POST("/signup", credLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.SignUp)
		api.POST("/login", credLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)

		protected := api.Group("")
		protected.Use(authMw.RequireAuth())
		protected.Use(userLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
		protected.GET("/me", authHandler.Me)
		protected.PUT("/user", authHandler.UpdateUser)
	}

	return r
}
