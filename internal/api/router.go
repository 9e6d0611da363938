package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/world-cell-towers/internal/config"
	"github.com/jengzang/world-cell-towers/internal/handler"
	"github.com/jengzang/world-cell-towers/internal/middleware"
	"github.com/jengzang/world-cell-towers/pkg/response"
	"github.com/sirupsen/logrus"
)

// Handlers groups everything the router serves
type Handlers struct {
	Dashboard *handler.DashboardHandler
	Datasets  *handler.DatasetHandler
	// Limiter guards the event endpoint. When nil one is created from
	// cfg.RateLimit.
	Limiter *middleware.RateLimiter
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers, log *logrus.Entry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "World Cell Towers API is running",
		})
	})

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})

	limiter := h.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	}

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 仪表盘
		dash := api.Group("/dashboard")
		{
			dash.GET("", h.Dashboard.GetDashboard)
			dash.POST("/events", middleware.RateLimit(limiter), h.Dashboard.PostEvent)
		}

		// 已发布数据集
		api.GET("/datasets", h.Datasets.ListDatasets)
	}

	return r
}
