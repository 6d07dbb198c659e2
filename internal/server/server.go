package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/railzwaylabs/ratebook/internal/bootstrap"
	"github.com/railzwaylabs/ratebook/internal/config"
	ratingdomain "github.com/railzwaylabs/ratebook/internal/rating/domain"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	ratingrundomain "github.com/railzwaylabs/ratebook/internal/ratingrun/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterAPIRoutes()
	}),
	fx.Invoke(RunHTTP),
)

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	Engine     *gin.Engine
	DB         *gorm.DB
	Redis      *redis.Client        `optional:"true"`
	SchemaGate bootstrap.SchemaGate `optional:"true"`

	RatingSvc    ratingdomain.Service
	RateTableSvc ratetabledomain.Service
	RatingRunSvc ratingrundomain.Service
}

type Server struct {
	cfg        config.Config
	log        *zap.Logger
	engine     *gin.Engine
	db         *gorm.DB
	redis      *redis.Client
	schemaGate bootstrap.SchemaGate

	ratingSvc    ratingdomain.Service
	rateTableSvc ratetabledomain.Service
	ratingRunSvc ratingrundomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		engine:       p.Engine,
		db:           p.DB,
		redis:        p.Redis,
		schemaGate:   p.SchemaGate,
		ratingSvc:    p.RatingSvc,
		rateTableSvc: p.RateTableSvc,
		ratingRunSvc: p.RatingRunSvc,
	}
}

// NewEngine builds the gin engine with request id, access log and recovery
// middleware installed.
func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(RequestID(), AccessLog(log.Named("http")), Recovery(log.Named("http")))
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
	return engine
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	s.RegisterSystemRoutes()

	api := s.engine.Group("/api/v1")

	api.POST("/scenarios/:id/rate", s.RateScenario)
	api.GET("/scenarios/:id/rating-runs", s.ListScenarioRatingRuns)
	api.GET("/rating/options", s.GetRatingOptions)
	api.GET("/product-types", s.ListProductTypes)

	api.GET("/rating-runs/export", s.ExportRatingRuns)
	api.GET("/rating-runs/:id", s.GetRatingRun)
	api.GET("/rating-runs/:id/worksheet", s.GetRatingWorksheet)

	api.GET("/rate-tables", s.ListRateTables)
	api.POST("/rate-tables", s.ImportRateTable)
	api.POST("/rate-tables/:id/activate", s.ActivateRateTable)
	api.POST("/rate-tables/:id/deactivate", s.DeactivateRateTable)
}

func (s *Server) RegisterSystemRoutes() {
	s.engine.GET("/health", s.Health)
	s.engine.GET("/ready", s.GetSystemReadiness)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           engine,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.HTTP.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
				defer cancel()
			}
			return srv.Shutdown(ctx)
		},
	})
}
