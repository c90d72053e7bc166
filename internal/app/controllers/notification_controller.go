package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/middleware"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
)

// InterfaceNotificationController 定义站内通知控制器接口
type InterfaceNotificationController interface {
	GetNotifications()
	GetUnreadCount()
	MarkRead()
	MarkAllRead()
}

// NotificationController 当前登录用户的站内通知
type NotificationController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewNotificationController 创建一个新的通知控制器
func NewNotificationController(ctx *gin.Context, container *container.ServiceContainer) *NotificationController {
	return &NotificationController{
		Ctx:       ctx,
		Container: container,
	}
}

func (c *NotificationController) notificationService() services.InterfaceNotificationService {
	return c.Container.GetService("notification").(services.InterfaceNotificationService)
}

// GetNotifications 通知列表
// @Summary      通知列表
// @Tags         Notification
// @Produce      json
// @Param        unread_only query bool false "只看未读"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Router       /notifications [get]
func (c *NotificationController) GetNotifications() {
	page, pageSize := parsePage(c.Ctx)
	unreadOnly := false
	if v := queryBool(c.Ctx, "unread_only"); v != nil {
		unreadOnly = *v
	}

	items, total, err := c.notificationService().List(c.Ctx.Request.Context(), middleware.CurrentUserID(c.Ctx), unreadOnly, page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取通知失败")
		return
	}
	response.Page(c.Ctx, items, total, page, pageSize)
}

// GetUnreadCount 未读通知数
// @Summary      未读通知数
// @Tags         Notification
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /notifications/unread-count [get]
func (c *NotificationController) GetUnreadCount() {
	count, err := c.notificationService().UnreadCount(c.Ctx.Request.Context(), middleware.CurrentUserID(c.Ctx))
	if err != nil {
		handleServiceError(c.Ctx, err, "获取未读数失败")
		return
	}
	response.Success(c.Ctx, gin.H{"unread": count})
}

// MarkRead 标记单条通知为已读
// @Summary      标记已读
// @Tags         Notification
// @Produce      json
// @Param        id path int true "通知ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /notifications/{id}/read [put]
func (c *NotificationController) MarkRead() {
	id, ok := parseID(c.Ctx, "id", "无效的通知ID")
	if !ok {
		return
	}
	if err := c.notificationService().MarkRead(c.Ctx.Request.Context(), middleware.CurrentUserID(c.Ctx), id); err != nil {
		handleServiceError(c.Ctx, err, "标记通知失败")
		return
	}
	response.Success(c.Ctx, gin.H{"id": id, "is_read": true})
}

// MarkAllRead 全部标记为已读
// @Summary      全部已读
// @Tags         Notification
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /notifications/read-all [put]
func (c *NotificationController) MarkAllRead() {
	updated, err := c.notificationService().MarkAllRead(c.Ctx.Request.Context(), middleware.CurrentUserID(c.Ctx))
	if err != nil {
		handleServiceError(c.Ctx, err, "标记通知失败")
		return
	}
	response.Success(c.Ctx, gin.H{"updated": updated})
}

// HandleNotificationFunc 返回一个处理通知请求的Gin处理函数
func HandleNotificationFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewNotificationController(ctx, container)

		switch method {
		case "getNotifications":
			controller.GetNotifications()
		case "getUnreadCount":
			controller.GetUnreadCount()
		case "markRead":
			controller.MarkRead()
		case "markAllRead":
			controller.MarkAllRead()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
