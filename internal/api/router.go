package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Mode           string // gin mode: debug, release or test
	AllowedOrigins []string
	Metrics        *Metrics // nil disables /metrics and request instrumentation
}

// NewRouter builds the gin engine serving the dashboard resources.
func NewRouter(service BotService, logger *zap.Logger, opts RouterOptions) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	router := gin.New()
	router.Use(Recovery(logger))
	router.Use(RequestID())
	router.Use(Logger(logger))
	router.Use(CORS(opts.AllowedOrigins))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
		router.GET("/metrics", opts.Metrics.Handler())
	}

	h := NewHandler(service, opts.Metrics)
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.GET("/dashboard", h.GetDashboard)
		api.GET("/trades", h.GetTrades)
		api.GET("/logs", h.GetLogs)
		api.GET("/settings", h.GetSettings)
		api.POST("/settings", h.UpdateSettings)

		bot := api.Group("/bot")
		bot.POST("/start", h.StartBot)
		bot.POST("/stop", h.StopBot)
	}

	router.NoRoute(func(c *gin.Context) {
		SendCustomError(c, http.StatusNotFound, "Not found")
	})
	return router
}
