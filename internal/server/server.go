package server

import (
	"context"
	"net/http"
	"time"

	authdomain "github.com/brushworks/repaintly/internal/auth/domain"
	"github.com/brushworks/repaintly/internal/config"
	lockoutdomain "github.com/brushworks/repaintly/internal/lockout/domain"
	quotadomain "github.com/brushworks/repaintly/internal/quota/domain"
	"github.com/brushworks/repaintly/internal/ratelimit"
	subscriptiondomain "github.com/brushworks/repaintly/internal/subscription/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	authsvc         authdomain.Service
	lockoutsvc      lockoutdomain.Service
	quotasvc        quotadomain.Service
	subscriptionsvc subscriptiondomain.Service
	loginLimiter    *ratelimit.LoginLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Authsvc         authdomain.Service
	Lockoutsvc      lockoutdomain.Service
	Quotasvc        quotadomain.Service
	Subscriptionsvc subscriptiondomain.Service
	LoginLimiter    *ratelimit.LoginLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		authsvc:         p.Authsvc,
		lockoutsvc:      p.Lockoutsvc,
		quotasvc:        p.Quotasvc,
		subscriptionsvc: p.Subscriptionsvc,
		loginLimiter:    p.LoginLimiter,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.LoginRateLimit(), s.Login)
	auth.POST("/check-account-status", s.CheckAccountStatus)
	auth.POST("/track-login-failure", s.LoginRateLimit(), s.TrackLoginFailure)
	auth.POST("/reset-login-failures", s.ResetLoginFailures)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/check-generation-limit", s.CheckGenerationLimit)
	api.POST("/increment-generation-count", s.IncrementGenerationCount)

	api.POST("/billing/webhooks", s.HandleBillingWebhook)
}

func RunHTTP(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
