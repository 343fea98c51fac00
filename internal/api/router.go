package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengzang/dispatch-backend-go/internal/handler"
	"github.com/jengzang/dispatch-backend-go/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by SetupRouter
type Handlers struct {
	Location *handler.LocationHandler
	Archive  *handler.ArchiveHandler
}

// SetupRouter 设置路由
func SetupRouter(h Handlers, limiter *middleware.RateLimiter, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Dispatch Backend API is running",
		})
	})

	// API 路由组
	api := r.Group("/api")
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	{
		// 外勤人员位置上报与轨迹归档
		agent := api.Group("/agent/:encryptedUserId")
		{
			agent.POST("/locations", h.Location.RecordLocation)
			agent.GET("/tasks/:taskId/archive", h.Archive.GetTaskArchive)
		}
	}

	return r
}
