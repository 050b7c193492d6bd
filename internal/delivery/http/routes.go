package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewindlauncher/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		shop := v1.Group("/shop")
		{
			shop.GET("", handler.GetShop)
			shop.POST("/refresh", handler.RefreshShop)
			shop.GET("/countdown", handler.GetCountdown)
			shop.GET("/view", handler.GetView)
			shop.GET("/status", handler.GetStatus)
			shop.DELETE("/cache", handler.ClearCache)
		}
	}

	return router
}
