package handlers

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the gin engine with recovery, logging, metrics and open CORS.
func NewRouter(h *RelayHandler, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	engine.Use(metricsMiddleware())
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"X-Requested-With",
			"Content-Type",
			"Accept",
		},
		MaxAge: 12 * time.Hour,
	}))

	engine.GET("/", h.Root)
	engine.GET("/image", h.AnalyzeImage)
	engine.GET("/4chan", h.RandomAnalysis)
	engine.GET("/4chanraw", h.MirroredAnalysis)
	engine.GET("/healthz", h.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return engine
}
