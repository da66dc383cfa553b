package bootstrap

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/alerthub/internal/api"
	"github.com/jonesrussell/alerthub/internal/cluster"
	"github.com/jonesrussell/alerthub/internal/config"
	"github.com/jonesrussell/alerthub/internal/database"
	"github.com/jonesrussell/alerthub/internal/feed"
	"github.com/jonesrussell/alerthub/internal/logger"
	"github.com/jonesrussell/alerthub/internal/scheduler"
	"github.com/jonesrussell/alerthub/internal/service"
	"github.com/jonesrussell/alerthub/internal/telemetry"
)

// HTTP server timeouts.
const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 120 * time.Second
)

// App holds the wired application components.
type App struct {
	Server *http.Server
	Poller *scheduler.Poller
}

// BuildApp wires repositories, the clustering engine, the ingest service,
// HTTP handlers, and the feed poller.
func BuildApp(cfg *config.Config, db *sqlx.DB, metrics *telemetry.Metrics, log logger.Logger) *App {
	alertRepo := database.NewAlertRepository(db)
	clusterRepo := database.NewClusterRepository(db)
	feedRepo := database.NewFeedRepository(db)

	engine := cluster.NewEngine(clusterRepo, cluster.Config{
		Window:    cfg.Clustering.Window,
		Threshold: cfg.Clustering.Threshold,
	}, metrics, log)

	ingestSvc := service.NewIngestService(alertRepo, engine, service.Config{
		RecencyCutoff: cfg.Ingest.RecencyCutoff,
		MaxPerFetch:   cfg.Ingest.MaxPerFetch,
	}, metrics, log)

	ingestHandler := api.NewIngestHandler(ingestSvc)
	alertHandler := api.NewAlertHandler(alertRepo, cfg.Ingest.ClassifyConfidence)
	clusterHandler := api.NewClusterHandler(clusterRepo)

	if !cfg.Service.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, ingestHandler, alertHandler, clusterHandler, alertRepo)

	poller := scheduler.NewPoller(feedRepo, feed.NewFetcher(nil), ingestSvc, cfg.Poller.Schedule, log)

	return &App{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Service.Port),
			Handler:      router,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
		},
		Poller: poller,
	}
}
