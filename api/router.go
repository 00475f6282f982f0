package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediagrab-go/api/handlers"
	"github.com/yourusername/mediagrab-go/api/middleware"
	"github.com/yourusername/mediagrab-go/internal/app"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	orchestrator *app.Orchestrator,
	worker *app.FulfillmentWorker,
	watchInterval time.Duration,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(worker, orchestrator)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(orchestrator, log))
	{
		downloadHandler := handlers.NewDownloadHandler(orchestrator, log)
		v1.POST("/downloads", downloadHandler.Submit)

		watchHandler := handlers.NewJobWatchHandler(orchestrator, watchInterval, log)
		jobs := v1.Group("/jobs")
		{
			jobs.GET("", downloadHandler.ListJobs)
			jobs.GET("/:id", downloadHandler.GetJob)
			jobs.GET("/:id/watch", watchHandler.Watch)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "NotFound"})
	})

	return router
}
