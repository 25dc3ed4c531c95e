package server

import (
	"net/http"
	"time"

	"logreplay/analysispool"
	"logreplay/share/semaphore"

	"github.com/dpapathanasiou/go-recaptcha"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	websocketUpgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
)

type Options struct {
	Pool *analysispool.Pool

	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer

	// RecaptchaSecret enables the reCAPTCHA gate when not empty.
	RecaptchaSecret string

	// MaxSessions bounds open websocket sessions. Zero means 64.
	MaxSessions int

	Logger *zap.Logger
}

type server struct {
	pool      *analysispool.Pool
	sessions  *semaphore.Semaphore
	recaptcha bool
	logger    *zap.Logger
}

func Route(g *gin.Engine, opt Options) {
	if opt.MaxSessions <= 0 {
		opt.MaxSessions = 64
	}

	s := &server{
		pool:      opt.Pool,
		sessions:  semaphore.New(opt.MaxSessions),
		recaptcha: opt.RecaptchaSecret != "",
		logger:    opt.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.recaptcha {
		recaptcha.Init(opt.RecaptchaSecret)
	}

	gatherer := opt.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	g.Use(logRequests(s.logger))
	g.Use(gin.Recovery())

	g.NoMethod(func(c *gin.Context) { c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"}) })
	g.NoRoute(func(c *gin.Context) { c.JSON(http.StatusNotFound, gin.H{"error": "not found"}) })

	g.GET("/analysis", s.routeRequest)
	g.GET("/healthz", s.routeHealth)
	g.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := g.Group("/api")
	api.GET("/profiles", s.routeProfiles)
	api.POST("/analyze", s.routeAnalyze)
}

func logRequests(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			logger.Warn("request", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		logger.Debug("request", fields...)
	}
}
