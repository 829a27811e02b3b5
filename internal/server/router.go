package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/objectset-backend/internal/handlers"
	"github.com/yungbote/objectset-backend/internal/middleware"
)

type RouterConfig struct {
	ObjectSetHandler  *handlers.ObjectSetHandler
	RecordHandler     *handlers.RecordHandler
	SessionMiddleware *middleware.SessionMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Session-Key"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.SessionMiddleware.ExtractSession())
	{
		// Records
		api.GET("/records", cfg.RecordHandler.ListRecords)
		api.POST("/records", cfg.RecordHandler.CreateRecord)
		// Sets
		api.GET("/sets", cfg.ObjectSetHandler.ListSets)
		api.POST("/sets", cfg.ObjectSetHandler.CreateSet)
		api.GET("/sets/:id", cfg.ObjectSetHandler.GetSet)
		api.PUT("/sets/:id", cfg.ObjectSetHandler.UpdateSet)
		api.DELETE("/sets/:id", cfg.ObjectSetHandler.DeleteSet)
		api.GET("/sets/:id/objects", cfg.ObjectSetHandler.ListSetObjects)
		api.POST("/sets/:id/purge", cfg.ObjectSetHandler.PurgeSet)
	}

	return router
}
