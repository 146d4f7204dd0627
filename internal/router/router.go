package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"borderdesk/internal/config"
	"borderdesk/internal/handler"
	"borderdesk/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	manifestH *handler.ManifestHandler,
	healthH *handler.HealthHandler,
	cfg *config.Config,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Multipart parts above this stay on disk instead of in memory.
	r.MaxMultipartMemory = (cfg.Upload.MaxFileSizeMB + 1) << 20

	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	v1.POST("/upload", manifestH.Upload)
	v1.POST("/upload/batch", manifestH.UploadBatch)

	manifests := v1.Group("/manifests")
	manifests.POST("", manifestH.CreateManifest)
	manifests.GET("", manifestH.ListManifests)
	manifests.GET("/:id", manifestH.GetManifest)
	manifests.PUT("/:id", manifestH.UpdateManifest)
	manifests.POST("/:id/submit", manifestH.Submit)
	manifests.GET("/:id/submissions", manifestH.ListSubmissions)
	manifests.GET("/:id/export", manifestH.Export)

	return r
}
