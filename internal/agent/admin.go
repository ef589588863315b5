package agent

import (
	"net/http"

	"github.com/JHMR18/truck-drive/internal/middleware"
	"github.com/JHMR18/truck-drive/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewAdminRouter builds the agent's local admin endpoint: health,
// Prometheus metrics, and a status view over the session and tracker
func NewAdminRouter(sessions *session.Manager, tracker *Tracker, logger *zap.Logger, production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/status", func(c *gin.Context) {
		status := gin.H{
			"session": sessions.State().String(),
			"tracker": tracker.Stats(),
		}
		if identity := sessions.Identity(); identity != nil {
			status["user"] = identity.DisplayName()
			status["role"] = identity.Role
		}
		c.JSON(http.StatusOK, status)
	})

	return router
}
