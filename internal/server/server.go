package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/paystub/internal/auth"
	authdomain "github.com/smallbiznis/paystub/internal/auth/domain"
	"github.com/smallbiznis/paystub/internal/auth/session"
	"github.com/smallbiznis/paystub/internal/cache"
	"github.com/smallbiznis/paystub/internal/client"
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
	"github.com/smallbiznis/paystub/internal/clientfeed"
	"github.com/smallbiznis/paystub/internal/config"
	"github.com/smallbiznis/paystub/internal/export"
	"github.com/smallbiznis/paystub/internal/observability"
	obsmiddleware "github.com/smallbiznis/paystub/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/paystub/internal/observability/metrics"
	obstracing "github.com/smallbiznis/paystub/internal/observability/tracing"
	"github.com/smallbiznis/paystub/internal/paystub"
	paystubdomain "github.com/smallbiznis/paystub/internal/paystub/domain"
	"github.com/smallbiznis/paystub/internal/ratelimit"
	"github.com/smallbiznis/paystub/internal/simulation"
	simulationdomain "github.com/smallbiznis/paystub/internal/simulation/domain"
	"github.com/smallbiznis/paystub/internal/tax"
	taxdomain "github.com/smallbiznis/paystub/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	cache.Module,
	ratelimit.Module,
	auth.Module,
	tax.Module,
	client.Module,
	paystub.Module,
	clientfeed.Module,
	simulation.Module,
	export.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	authsvc       authdomain.Service
	sessions      *session.Manager
	clientSvc     clientdomain.Service
	paystubSvc    paystubdomain.Service
	simulationSvc simulationdomain.Service
	taxSvc        taxdomain.Service
	feed          *clientfeed.Feed
	exporter      *export.Service
	limits        *ratelimit.Limits
	redis         *cache.Client
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	Authsvc       authdomain.Service
	Sessions      *session.Manager
	ClientSvc     clientdomain.Service
	PaystubSvc    paystubdomain.Service
	SimulationSvc simulationdomain.Service
	TaxSvc        taxdomain.Service
	Feed          *clientfeed.Feed  `optional:"true"`
	Exporter      *export.Service
	Limits        *ratelimit.Limits `optional:"true"`
	Redis         *cache.Client     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("http.server"),
		authsvc:       p.Authsvc,
		sessions:      p.Sessions,
		clientSvc:     p.ClientSvc,
		paystubSvc:    p.PaystubSvc,
		simulationSvc: p.SimulationSvc,
		taxSvc:        p.TaxSvc,
		feed:          p.Feed,
		exporter:      p.Exporter,
		limits:        p.Limits,
		redis:         p.Redis,
	}

	svc.registerHealthRoutes()
	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/health", s.Health)
	s.engine.GET("/ready", s.Ready)
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.LoginRateLimit(), s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Clients --------
	api.GET("/clients", s.ListClients)
	api.POST("/clients", s.CreateClient)
	api.GET("/clients/stream", s.StreamClients)
	api.GET("/clients/:id", s.GetClientByID)
	api.DELETE("/clients/:id", s.DeleteClient)
	api.POST("/clients/:id/recompute-ytd", s.RecomputeClientYTD)

	// -------- Paystubs --------
	api.GET("/clients/:id/paystubs", s.ListPaystubs)
	api.GET("/clients/:id/paystubs/:paystubId", s.GetPaystub)
	api.DELETE("/clients/:id/paystubs/:paystubId", s.DeletePaystub)
	api.GET("/download-paystub", s.DownloadPaystub)

	// -------- Simulations --------
	api.POST("/simulations", s.StartSimulation)
	api.GET("/simulations/:id", s.GetSimulation)
	api.POST("/simulations/:id/calculate", s.CalculateSimulation)
	api.POST("/simulations/:id/commit", s.CommitSimulation)
	api.DELETE("/simulations/:id", s.DiscardSimulation)

	// -------- Tax rates --------
	api.GET("/tax-rates", s.ListTaxRates)
	api.GET("/tax-rates/:region", s.GetTaxRates)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "api endpoint not found, check the url"})
			return
		}

		c.String(http.StatusNotFound, "404: resource not found")
	})
}
