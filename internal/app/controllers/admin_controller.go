package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
)

// InterfaceAdminController 定义管理后台控制器接口
type InterfaceAdminController interface {
	GetDashboard()
	GetAuditLogs()
}

// AdminController 管理后台首页和审计日志
type AdminController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAdminController 创建一个新的管理员控制器
func NewAdminController(ctx *gin.Context, container *container.ServiceContainer) *AdminController {
	return &AdminController{
		Ctx:       ctx,
		Container: container,
	}
}

// GetDashboard 后台统计
// @Summary      后台统计
// @Description  房源、居民、预约、工单、账单的汇总数据
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  services.DashboardStats
// @Failure      403  {object}  ErrorResponse
// @Router       /admin/dashboard [get]
func (c *AdminController) GetDashboard() {
	dashboardService := c.Container.GetService("dashboard").(services.InterfaceDashboardService)
	stats, err := dashboardService.GetStats(c.Ctx.Request.Context())
	if err != nil {
		handleServiceError(c.Ctx, err, "获取统计数据失败")
		return
	}
	response.Success(c.Ctx, stats)
}

// GetAuditLogs 审计日志
// @Summary      审计日志
// @Tags         Admin
// @Produce      json
// @Param        actor_id query string false "操作者ID"
// @Param        action query string false "操作"
// @Param        target query string false "数据表"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/audit-logs [get]
func (c *AdminController) GetAuditLogs() {
	page, pageSize := parsePage(c.Ctx)
	filter := services.AuditFilter{
		ActorID: c.Ctx.Query("actor_id"),
		Action:  c.Ctx.Query("action"),
		Target:  c.Ctx.Query("target"),
	}

	auditService := c.Container.GetService("audit").(services.InterfaceAuditService)
	logs, total, err := auditService.List(c.Ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取审计日志失败")
		return
	}
	response.Page(c.Ctx, logs, total, page, pageSize)
}

// HandleAdminFunc 返回一个处理管理后台请求的Gin处理函数
func HandleAdminFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAdminController(ctx, container)

		switch method {
		case "getDashboard":
			controller.GetDashboard()
		case "getAuditLogs":
			controller.GetAuditLogs()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
