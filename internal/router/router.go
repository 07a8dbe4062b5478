package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/statuswatch/internal/handlers"
	"github.com/monocle-dev/statuswatch/internal/middleware"
	"github.com/monocle-dev/statuswatch/internal/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Dependencies struct {
	Cron   *handlers.CronHandler
	Status *handlers.StatusHandler
	Live   *handlers.LiveHandler
	Health *handlers.HealthHandler

	CronSecret     string
	AllowedOrigins []string
}

func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = types.DefaultAllowedOrigins
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cron := r.Group("/cron", middleware.CronAuth(deps.CronSecret))
	{
		cron.GET("/check", deps.Cron.Check)
		cron.GET("/cleanup", deps.Cron.Cleanup)
	}

	api := r.Group("/api")
	{
		api.GET("/health", deps.Health.HealthCheck)
		api.GET("/pages/:slug/status", deps.Status.GetStatus)
		api.GET("/ws/:page_id", deps.Live.WebSocket)
	}

	return r
}
