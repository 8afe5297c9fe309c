package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/edufarma/edufarma/internal/diagnosis"
	"github.com/edufarma/edufarma/internal/logger"
	"github.com/edufarma/edufarma/internal/weather"
)

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	AllowOrigins    []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	ServiceName     string
}

// DefaultConfig listens on :5000 and allows the local dev frontends.
func DefaultConfig() Config {
	return Config{
		Addr: ":5000",
		AllowOrigins: []string{
			"http://localhost:5000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		ServiceName:     "edufarma",
	}
}

// ConfigFromEnv reads PORT and EDUFARMA_CORS_ORIGINS on top of the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Addr = ":" + p
	}
	if o := strings.TrimSpace(os.Getenv("EDUFARMA_CORS_ORIGINS")); o != "" {
		var origins []string
		for _, s := range strings.Split(o, ",") {
			if s = strings.TrimSpace(s); s != "" {
				origins = append(origins, s)
			}
		}
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Diagnoser runs one diagnosis request.
type Diagnoser interface {
	Run(ctx context.Context, report diagnosis.SymptomReport) (*diagnosis.Outcome, error)
}

// Weather looks up weather reports.
type Weather interface {
	ByCity(ctx context.Context, city string) (*weather.Report, error)
	ByCoords(ctx context.Context, lat, lon float64) (*weather.Report, error)
}

// Translator translates diagnoses.
type Translator interface {
	Diagnosis(ctx context.Context, d diagnosis.DiagnosisResult, target diagnosis.Language) (*diagnosis.DiagnosisResult, error)
}

// Deps are the services the HTTP API exposes.
type Deps struct {
	Diagnoser  Diagnoser
	Weather    Weather
	Translator Translator

	// ModelID is reported by the health check.
	ModelID string
	Log     *logger.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg Config, deps Deps) *gin.Engine {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	h := &handlers{deps: deps, log: deps.Log}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(requestID())
	router.Use(accessLog(deps.Log))
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/healthz", h.health)

	api := router.Group("/api")
	{
		api.POST("/diagnose", h.diagnose)
		api.GET("/weather", h.weather)
		api.POST("/translate", h.translate)
	}
	return router
}

// Server is the HTTP API server.
type Server struct {
	cfg  Config
	http *http.Server
	log  *logger.Logger
}

// New creates a server. Call Run to start it.
func New(cfg Config, deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(cfg, deps),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log: log,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", ln.Addr().String())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
