package router

import (
	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/pixeldojo-studio/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	healthHandler := handler.NewHealthHandler(deps)
	r.GET("/health", healthHandler.Health)

	studioHandler := handler.NewStudioHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		image := v1.Group("/image")
		{
			// PUT /api/v1/image - Select an uploaded or dropped image
			image.PUT("", studioHandler.SelectImage)

			// GET /api/v1/image - Current selection with preview
			image.GET("", studioHandler.GetImage)

			// DELETE /api/v1/image - Remove the selection
			image.DELETE("", studioHandler.RemoveImage)

			// POST /api/v1/image/sample - Select the bundled sample image
			image.POST("/sample", studioHandler.SelectSampleImage)
		}

		generations := v1.Group("/generations")
		{
			// POST /api/v1/generations - Submit a generation
			generations.POST("", studioHandler.CreateGeneration)

			// GET /api/v1/generations/current - Current state
			generations.GET("/current", studioHandler.GetCurrentGeneration)

			// POST /api/v1/generations/current/reset - Back to idle
			generations.POST("/current/reset", studioHandler.ResetGeneration)

			// GET /api/v1/generations/current/video - Download the result
			generations.GET("/current/video", studioHandler.DownloadVideo)
		}
	}

	return r
}
