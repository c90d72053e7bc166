package controllers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/middleware"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/database"
)

// HealthCheckController 健康检查控制器
type HealthCheckController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewHealthCheckController 创建健康检查控制器实例
func NewHealthCheckController(ctx *gin.Context, container *container.ServiceContainer) *HealthCheckController {
	return &HealthCheckController{
		Ctx:       ctx,
		Container: container,
	}
}

// Ping 健康检查端点
// @Summary      Ping
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /ping [get]
func (h *HealthCheckController) Ping() {
	response.Success(h.Ctx, gin.H{
		"status":  "healthy",
		"message": "pong",
	})
}

// Status 依赖组件状态
// @Summary      服务状态
// @Description  检查数据库、Redis 和对象存储，数据库不可用时返回500
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  ErrorResponse
// @Router       /health/status [get]
func (h *HealthCheckController) Status() {
	pool := database.NewConnectionPoolFromDB(h.Container.GetDB())

	result := gin.H{
		"time":        time.Now().Format(time.RFC3339),
		"subscribers": h.Container.GetHub().SubscriberCount(),
	}

	healthy := true
	if err := pool.HealthCheck(); err != nil {
		healthy = false
		result["database"] = gin.H{"status": "down", "error": err.Error()}
	} else {
		stats, _ := pool.Stats()
		result["database"] = gin.H{"status": "up", "pool": stats}
	}

	if redisService, ok := h.Container.GetService("redis").(services.InterfaceRedisService); ok && redisService != nil {
		ctx, cancel := context.WithTimeout(h.Ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := redisService.Ping(ctx); err != nil {
			result["redis"] = gin.H{"status": "down", "error": err.Error()}
		} else {
			result["redis"] = gin.H{"status": "up"}
		}
	} else {
		result["redis"] = gin.H{"status": "disabled"}
	}

	if h.Container.HasStorage() {
		result["storage"] = gin.H{"status": "configured"}
	} else {
		result["storage"] = gin.H{"status": "disabled"}
	}

	if !healthy {
		response.FailWithMessage(h.Ctx, code.ErrDatabase, "数据库不可用", result)
		return
	}
	result["status"] = "healthy"
	response.Success(h.Ctx, result)
}

// CacheStats 响应缓存统计
// @Summary      缓存统计
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health/cache-stats [get]
func (h *HealthCheckController) CacheStats() {
	response.Success(h.Ctx, middleware.CacheStats())
}

// HandleHealthFunc 返回一个处理健康检查请求的Gin处理函数
func HandleHealthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewHealthCheckController(ctx, container)

		switch method {
		case "ping":
			controller.Ping()
		case "status":
			controller.Status()
		case "cacheStats":
			controller.CacheStats()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
