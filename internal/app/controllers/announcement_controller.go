package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/middleware"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
)

// InterfaceAnnouncementController 定义公告控制器接口
type InterfaceAnnouncementController interface {
	GetPublished()
	GetPublishedAnnouncement()
	MarkRead()
	GetUnreadCount()
	GetAnnouncements()
	CreateAnnouncement()
	UpdateAnnouncement()
	PublishAnnouncement()
	DeleteAnnouncement()
}

// AnnouncementController 处理物业公告请求
type AnnouncementController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAnnouncementController 创建一个新的公告控制器
func NewAnnouncementController(ctx *gin.Context, container *container.ServiceContainer) *AnnouncementController {
	return &AnnouncementController{
		Ctx:       ctx,
		Container: container,
	}
}

// AnnouncementRequest 创建公告请求
type AnnouncementRequest struct {
	Title       string     `json:"title" binding:"required" example:"停水通知"`
	Content     string     `json:"content" binding:"required" example:"周六9点至12点检修水管，届时停水"`
	Category    string     `json:"category" example:"maintenance"`
	Priority    string     `json:"priority" example:"important"`
	IsPublished bool       `json:"is_published" example:"true"`
	ExpiresAt   *time.Time `json:"expires_at" example:"2030-06-01T00:00:00Z"`
}

// UpdateAnnouncementRequest 更新公告请求
type UpdateAnnouncementRequest struct {
	Title     *string    `json:"title" example:"停水通知（更新）"`
	Content   *string    `json:"content" example:"检修时间调整为10点至13点"`
	Category  *string    `json:"category" example:"maintenance"`
	Priority  *string    `json:"priority" example:"urgent"`
	ExpiresAt *time.Time `json:"expires_at" example:"2030-06-01T00:00:00Z"`
}

// PublishRequest 发布或撤回公告
type PublishRequest struct {
	Published bool `json:"published" example:"true"`
}

func (c *AnnouncementController) announcementService() services.InterfaceAnnouncementService {
	return c.Container.GetService("announcement").(services.InterfaceAnnouncementService)
}

// GetPublished 已发布的公告列表，登录居民额外返回已读状态
// @Summary      公告列表
// @Tags         Announcement
// @Produce      json
// @Param        category query string false "分类"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Success      200  {object}  map[string]interface{}
// @Router       /public/announcements [get]
func (c *AnnouncementController) GetPublished() {
	page, pageSize := parsePage(c.Ctx)
	announcements, total, err := c.announcementService().ListPublished(
		c.Ctx.Request.Context(), middleware.CurrentUserID(c.Ctx), c.Ctx.Query("category"), page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取公告列表失败")
		return
	}
	response.Page(c.Ctx, announcements, total, page, pageSize)
}

// GetPublishedAnnouncement 公告详情，未发布的公告对外不可见
// @Summary      公告详情
// @Tags         Announcement
// @Produce      json
// @Param        id path int true "公告ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /public/announcements/{id} [get]
func (c *AnnouncementController) GetPublishedAnnouncement() {
	id, ok := parseID(c.Ctx, "id", "无效的公告ID")
	if !ok {
		return
	}

	announcement, err := c.announcementService().GetAnnouncement(c.Ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取公告失败")
		return
	}
	if !announcement.IsPublished || (announcement.ExpiresAt != nil && announcement.ExpiresAt.Before(time.Now())) {
		handleServiceError(c.Ctx, services.ErrAnnouncementNotFound, "获取公告失败")
		return
	}
	response.Success(c.Ctx, announcement)
}

// MarkRead 标记公告已读
// @Summary      标记公告已读
// @Tags         Announcement
// @Produce      json
// @Param        id path int true "公告ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /resident/announcements/{id}/read [post]
func (c *AnnouncementController) MarkRead() {
	id, ok := parseID(c.Ctx, "id", "无效的公告ID")
	if !ok {
		return
	}

	if err := c.announcementService().MarkRead(c.Ctx.Request.Context(), middleware.CurrentUserID(c.Ctx), id); err != nil {
		handleServiceError(c.Ctx, err, "标记已读失败")
		return
	}
	response.Success(c.Ctx, gin.H{"announcement_id": id, "is_read": true})
}

// GetUnreadCount 未读公告数
// @Summary      未读公告数
// @Tags         Announcement
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /resident/announcements/unread-count [get]
func (c *AnnouncementController) GetUnreadCount() {
	count, err := c.announcementService().UnreadCount(c.Ctx.Request.Context(), middleware.CurrentUserID(c.Ctx))
	if err != nil {
		handleServiceError(c.Ctx, err, "获取未读公告数失败")
		return
	}
	response.Success(c.Ctx, gin.H{"unread": count})
}

// GetAnnouncements 管理端公告列表，包含草稿
// @Summary      管理端公告列表
// @Tags         Announcement
// @Produce      json
// @Param        category query string false "分类"
// @Param        published query bool false "是否已发布"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/announcements [get]
func (c *AnnouncementController) GetAnnouncements() {
	page, pageSize := parsePage(c.Ctx)
	filter := services.AnnouncementFilter{
		Category:  c.Ctx.Query("category"),
		Published: queryBool(c.Ctx, "published"),
	}

	announcements, total, err := c.announcementService().ListAnnouncements(c.Ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取公告列表失败")
		return
	}
	response.Page(c.Ctx, announcements, total, page, pageSize)
}

// CreateAnnouncement 创建公告
// @Summary      创建公告
// @Tags         Announcement
// @Accept       json
// @Produce      json
// @Param        request body AnnouncementRequest true "公告内容"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/announcements [post]
func (c *AnnouncementController) CreateAnnouncement() {
	var req AnnouncementRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	announcement := &models.Announcement{
		Title:       req.Title,
		Content:     req.Content,
		Category:    req.Category,
		Priority:    req.Priority,
		IsPublished: req.IsPublished,
		ExpiresAt:   req.ExpiresAt,
		AuthorID:    middleware.CurrentUserID(c.Ctx),
	}
	if err := c.announcementService().CreateAnnouncement(c.Ctx.Request.Context(), announcement); err != nil {
		handleServiceError(c.Ctx, err, "创建公告失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "create", "announcements", announcement.ID, req)
	purgePublicCache(publicAnnouncementsPath)
	response.Created(c.Ctx, announcement)
}

// UpdateAnnouncement 更新公告
// @Summary      更新公告
// @Tags         Announcement
// @Accept       json
// @Produce      json
// @Param        id path int true "公告ID"
// @Param        request body UpdateAnnouncementRequest true "公告内容"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/announcements/{id} [put]
func (c *AnnouncementController) UpdateAnnouncement() {
	id, ok := parseID(c.Ctx, "id", "无效的公告ID")
	if !ok {
		return
	}

	var req UpdateAnnouncementRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.ExpiresAt != nil {
		updates["expires_at"] = *req.ExpiresAt
	}

	announcement, err := c.announcementService().UpdateAnnouncement(c.Ctx.Request.Context(), id, updates)
	if err != nil {
		handleServiceError(c.Ctx, err, "更新公告失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "update", "announcements", id, req)
	purgePublicCache(publicAnnouncementsPath)
	response.Success(c.Ctx, announcement)
}

// PublishAnnouncement 发布或撤回公告
// @Summary      发布公告
// @Tags         Announcement
// @Accept       json
// @Produce      json
// @Param        id path int true "公告ID"
// @Param        request body PublishRequest true "是否发布"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/announcements/{id}/publish [patch]
func (c *AnnouncementController) PublishAnnouncement() {
	id, ok := parseID(c.Ctx, "id", "无效的公告ID")
	if !ok {
		return
	}

	var req PublishRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	announcement, err := c.announcementService().SetPublished(c.Ctx.Request.Context(), id, req.Published)
	if err != nil {
		handleServiceError(c.Ctx, err, "发布公告失败")
		return
	}

	action := "unpublish"
	if req.Published {
		action = "publish"
	}
	recordAudit(c.Ctx, c.Container, action, "announcements", id, nil)
	purgePublicCache(publicAnnouncementsPath)
	response.Success(c.Ctx, announcement)
}

// DeleteAnnouncement 删除公告
// @Summary      删除公告
// @Tags         Announcement
// @Produce      json
// @Param        id path int true "公告ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/announcements/{id} [delete]
func (c *AnnouncementController) DeleteAnnouncement() {
	id, ok := parseID(c.Ctx, "id", "无效的公告ID")
	if !ok {
		return
	}

	if err := c.announcementService().DeleteAnnouncement(c.Ctx.Request.Context(), id); err != nil {
		handleServiceError(c.Ctx, err, "删除公告失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "delete", "announcements", id, nil)
	purgePublicCache(publicAnnouncementsPath)
	response.Success(c.Ctx, gin.H{"message": "公告已删除"})
}

// HandleAnnouncementFunc 返回一个处理公告请求的Gin处理函数
func HandleAnnouncementFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAnnouncementController(ctx, container)

		switch method {
		case "getPublished":
			controller.GetPublished()
		case "getPublishedAnnouncement":
			controller.GetPublishedAnnouncement()
		case "markRead":
			controller.MarkRead()
		case "getUnreadCount":
			controller.GetUnreadCount()
		case "getAnnouncements":
			controller.GetAnnouncements()
		case "createAnnouncement":
			controller.CreateAnnouncement()
		case "updateAnnouncement":
			controller.UpdateAnnouncement()
		case "publishAnnouncement":
			controller.PublishAnnouncement()
		case "deleteAnnouncement":
			controller.DeleteAnnouncement()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
