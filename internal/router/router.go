package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/contentpilot/backend/config"
	"github.com/contentpilot/backend/internal/handler"
)

func Setup(
	cfg *config.Config,
	projectHandler *handler.ProjectHandler,
	contentHandler *handler.ContentHandler,
	statusHandler *handler.StatusHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(handler.RequireUser())
	{
		projects := api.Group("/projects")
		{
			projects.POST("", projectHandler.Create)
			projects.GET("/mine", projectHandler.GetMine)
			projects.GET("/:id", projectHandler.Get)
		}

		contents := api.Group("/contents")
		{
			contents.POST("/requests", contentHandler.CreateRequest)
			contents.GET("/requests", contentHandler.ListRequests)
			contents.GET("/requests/latest", contentHandler.LatestRequest)
			contents.GET("/requests/:id", contentHandler.GetRequest)
			contents.PUT("/items/:id/caption", contentHandler.UpdateCaption)
			contents.POST("/items/:id/regenerate", contentHandler.Regenerate)
			contents.GET("/items/:id/image-url", contentHandler.ImageURL)
		}

		api.GET("/pipeline/status", statusHandler.Queue)
	}

	return r
}
