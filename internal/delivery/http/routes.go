package http

import (
	"github.com/gin-gonic/gin"

	"github.com/blendwise/backend/config"
	"github.com/blendwise/backend/internal/ratelimit"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, limiter *ratelimit.Limiter) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Nutrition endpoints share one admission budget per client
		nutrition := v1.Group("/nutrition")
		nutrition.Use(RateLimitMiddleware(limiter))
		{
			nutrition.POST("/search", handler.SearchNutrition)
			nutrition.POST("/search/basic", handler.BasicSearch)
		}
	}

	return router
}
