package router

import (
	"github.com/gin-gonic/gin"

	"github.com/purrup/auto-overtime/internal/handler"
	"github.com/purrup/auto-overtime/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	batchH *handler.BatchHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	batches := v1.Group("/batches")
	batches.POST("", batchH.Create)
	batches.GET("", batchH.List)
	batches.GET("/:id", batchH.GetByID)
	batches.GET("/:id/export", batchH.Export)
	batches.PUT("/:id/entries/:entryID/corrections", batchH.ApplyCorrections)

	return r
}
