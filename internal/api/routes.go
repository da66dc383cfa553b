package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/alerthub/internal/telemetry"
)

// Pinger checks backing store connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetupRoutes configures all API routes. Ingest endpoints are called by
// the mail sync and feed poller collaborators; read and review endpoints
// back the triage UI.
func SetupRoutes(router *gin.Engine, ingestHandler *IngestHandler, alertHandler *AlertHandler, clusterHandler *ClusterHandler, pinger Pinger) {
	router.GET("/healthz", healthHandler(pinger))
	router.GET("/metrics", gin.WrapH(telemetry.Handler()))

	v1 := router.Group("/api/v1")

	// Ingest (write path)
	v1.POST("/ingest/emails", ingestHandler.IngestEmails)
	v1.POST("/ingest/rss", ingestHandler.IngestFeed)

	// Review (read/update path)
	v1.GET("/alerts", alertHandler.ListAlerts)
	v1.GET("/alerts/:id", alertHandler.GetAlert)
	v1.PATCH("/alerts/:id/status", alertHandler.UpdateStatus)
	v1.GET("/clusters/:id", clusterHandler.GetCluster)
}

// healthHandler reports liveness and backing store reachability.
func healthHandler(pinger Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pingErr := pinger.Ping(c.Request.Context()); pingErr != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"error":  pingErr.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
