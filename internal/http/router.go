package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter configura el listener de operaciones: salud, metricas y encolado
// manual de trabajos. jobH puede ser nil si no hay cola.
func NewRouter(
	logger *zap.Logger,
	healthH *HealthHandler,
	jobH *JobHandler,
	registry *prometheus.Registry,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()

	r.Use(requestLogger(logger), gin.Recovery())

	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("", opsHeaders())
	api.GET("/healthz", healthH.Healthz)
	if jobH != nil {
		api.POST("/jobs", jobH.Enqueue)
	}

	return r
}

// quietRoutes se consultan cada pocos segundos; van a debug.
var quietRoutes = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// requestLogger registra cada request con su ruta. Los 5xx van a error.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case status >= 500:
			logger.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
		case quietRoutes[route]:
			logger.Debug("request", fields...)
		default:
			logger.Info("request", append(fields, zap.String("client_ip", c.ClientIP()))...)
		}
	}
}

// opsHeaders marca las respuestas como JSON y no cacheables.
func opsHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Type", "application/json")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}
