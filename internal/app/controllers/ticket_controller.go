package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
)

// InterfaceTicketController 定义工单控制器接口
type InterfaceTicketController interface {
	CreateTicket()
	GetMyTickets()
	GetMyTicket()
	AddMyComment()
	AddMyAttachment()
	CloseMyTicket()
	GetTickets()
	GetTicket()
	UpdateTicket()
	AddComment()
}

// TicketController 处理报修工单请求
type TicketController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewTicketController 创建一个新的工单控制器
func NewTicketController(ctx *gin.Context, container *container.ServiceContainer) *TicketController {
	return &TicketController{
		Ctx:       ctx,
		Container: container,
	}
}

// CommentRequest 工单回复请求
type CommentRequest struct {
	Message    string `json:"message" binding:"required" example:"今天下午家里有人"`
	IsInternal bool   `json:"is_internal" example:"false"`
}

func (c *TicketController) ticketService() services.InterfaceTicketService {
	return c.Container.GetService("ticket").(services.InterfaceTicketService)
}

// ownTicket 校验工单属于当前居民
func (c *TicketController) ownTicket(id uint) (*models.Ticket, bool) {
	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return nil, false
	}
	ticket, err := c.ticketService().GetResidentTicket(c.Ctx.Request.Context(), resident.ID, id)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取工单信息失败")
		return nil, false
	}
	return ticket, true
}

// CreateTicket 居民提交工单
// @Summary      提交工单
// @Description  居民提交报修或投诉工单
// @Tags         Ticket
// @Accept       json
// @Produce      json
// @Param        request body services.TicketRequest true "工单信息"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /resident/tickets [post]
func (c *TicketController) CreateTicket() {
	var req services.TicketRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return
	}

	ticket, err := c.ticketService().CreateTicket(c.Ctx.Request.Context(), resident.ID, req)
	if err != nil {
		handleServiceError(c.Ctx, err, "提交工单失败")
		return
	}
	response.Created(c.Ctx, ticket)
}

// GetMyTickets 居民本人的工单
// @Summary      我的工单
// @Tags         Ticket
// @Produce      json
// @Param        status query string false "工单状态"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /resident/tickets [get]
func (c *TicketController) GetMyTickets() {
	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return
	}

	page, pageSize := parsePage(c.Ctx)
	filter := services.TicketFilter{
		ResidentID: &resident.ID,
		Status:     models.TicketStatus(c.Ctx.Query("status")),
	}
	tickets, total, err := c.ticketService().ListTickets(c.Ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取工单列表失败")
		return
	}
	response.Page(c.Ctx, tickets, total, page, pageSize)
}

// GetMyTicket 居民本人的工单详情，不含内部备注
// @Summary      我的工单详情
// @Tags         Ticket
// @Produce      json
// @Param        id path int true "工单ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /resident/tickets/{id} [get]
func (c *TicketController) GetMyTicket() {
	id, ok := parseID(c.Ctx, "id", "无效的工单ID")
	if !ok {
		return
	}
	ticket, ok := c.ownTicket(id)
	if !ok {
		return
	}
	response.Success(c.Ctx, ticket)
}

// AddMyComment 居民回复工单
// @Summary      回复工单
// @Tags         Ticket
// @Accept       json
// @Produce      json
// @Param        id path int true "工单ID"
// @Param        request body CommentRequest true "回复内容"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /resident/tickets/{id}/comments [post]
func (c *TicketController) AddMyComment() {
	id, ok := parseID(c.Ctx, "id", "无效的工单ID")
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}
	if _, ok := c.ownTicket(id); !ok {
		return
	}

	update, err := c.ticketService().AddComment(c.Ctx.Request.Context(), id, actorFrom(c.Ctx), req.Message, false)
	if err != nil {
		handleServiceError(c.Ctx, err, "回复工单失败")
		return
	}
	response.Created(c.Ctx, update)
}

// AddMyAttachment 居民上传工单附件
// @Summary      上传工单附件
// @Tags         Ticket
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path int true "工单ID"
// @Param        file formData file true "附件"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /resident/tickets/{id}/attachments [post]
func (c *TicketController) AddMyAttachment() {
	id, ok := parseID(c.Ctx, "id", "无效的工单ID")
	if !ok {
		return
	}
	if _, ok := c.ownTicket(id); !ok {
		return
	}
	c.addAttachment(id)
}

// CloseMyTicket 居民关闭本人工单
// @Summary      关闭工单
// @Tags         Ticket
// @Produce      json
// @Param        id path int true "工单ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /resident/tickets/{id}/close [post]
func (c *TicketController) CloseMyTicket() {
	id, ok := parseID(c.Ctx, "id", "无效的工单ID")
	if !ok {
		return
	}
	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return
	}

	ticket, err := c.ticketService().CloseTicket(c.Ctx.Request.Context(), resident.ID, id, actorFrom(c.Ctx))
	if err != nil {
		handleServiceError(c.Ctx, err, "关闭工单失败")
		return
	}
	response.Success(c.Ctx, ticket)
}

// GetTickets 管理端工单列表
// @Summary      工单列表
// @Tags         Ticket
// @Produce      json
// @Param        resident_id query int false "居民ID"
// @Param        status query string false "工单状态"
// @Param        priority query string false "优先级"
// @Param        category query string false "分类"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/tickets [get]
func (c *TicketController) GetTickets() {
	page, pageSize := parsePage(c.Ctx)
	filter := services.TicketFilter{
		ResidentID: queryUint(c.Ctx, "resident_id"),
		Status:     models.TicketStatus(c.Ctx.Query("status")),
		Priority:   c.Ctx.Query("priority"),
		Category:   c.Ctx.Query("category"),
	}

	tickets, total, err := c.ticketService().ListTickets(c.Ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取工单列表失败")
		return
	}
	response.Page(c.Ctx, tickets, total, page, pageSize)
}

// GetTicket 管理端工单详情，含内部备注
// @Summary      工单详情
// @Tags         Ticket
// @Produce      json
// @Param        id path int true "工单ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/tickets/{id} [get]
func (c *TicketController) GetTicket() {
	id, ok := parseID(c.Ctx, "id", "无效的工单ID")
	if !ok {
		return
	}

	ticket, err := c.ticketService().GetTicket(c.Ctx.Request.Context(), id, true)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取工单信息失败")
		return
	}
	response.Success(c.Ctx, ticket)
}

// UpdateTicket 管理员处理工单
// @Summary      处理工单
// @Description  修改状态、处理人或优先级，可附带回复或内部备注
// @Tags         Ticket
// @Accept       json
// @Produce      json
// @Param        id path int true "工单ID"
// @Param        request body services.TicketChange true "处理内容"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/tickets/{id} [patch]
func (c *TicketController) UpdateTicket() {
	id, ok := parseID(c.Ctx, "id", "无效的工单ID")
	if !ok {
		return
	}

	var req services.TicketChange
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	ticket, err := c.ticketService().UpdateTicket(c.Ctx.Request.Context(), id, actorFrom(c.Ctx), req)
	if err != nil {
		handleServiceError(c.Ctx, err, "处理工单失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "update", "tickets", id, req)
	response.Success(c.Ctx, ticket)
}

// AddComment 管理员回复工单或添加内部备注
// @Summary      管理员回复工单
// @Tags         Ticket
// @Accept       json
// @Produce      json
// @Param        id path int true "工单ID"
// @Param        request body CommentRequest true "回复内容"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/tickets/{id}/comments [post]
func (c *TicketController) AddComment() {
	id, ok := parseID(c.Ctx, "id", "无效的工单ID")
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	update, err := c.ticketService().AddComment(c.Ctx.Request.Context(), id, actorFrom(c.Ctx), req.Message, req.IsInternal)
	if err != nil {
		handleServiceError(c.Ctx, err, "回复工单失败")
		return
	}
	response.Created(c.Ctx, update)
}

// AddAttachment 管理员上传工单附件
// @Summary      管理员上传工单附件
// @Tags         Ticket
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path int true "工单ID"
// @Param        file formData file true "附件"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Router       /admin/tickets/{id}/attachments [post]
func (c *TicketController) AddAttachment() {
	id, ok := parseID(c.Ctx, "id", "无效的工单ID")
	if !ok {
		return
	}
	c.addAttachment(id)
}

func (c *TicketController) addAttachment(id uint) {
	upload, ok := readUpload(c.Ctx, "file")
	if !ok {
		return
	}
	defer upload.Close()

	attachment, err := c.ticketService().AddAttachment(c.Ctx.Request.Context(), id, actorFrom(c.Ctx), upload.UploadFile)
	if err != nil {
		handleServiceError(c.Ctx, err, "上传附件失败")
		return
	}
	response.Created(c.Ctx, attachment)
}

// HandleTicketFunc 返回一个处理工单请求的Gin处理函数
func HandleTicketFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewTicketController(ctx, container)

		switch method {
		case "createTicket":
			controller.CreateTicket()
		case "getMyTickets":
			controller.GetMyTickets()
		case "getMyTicket":
			controller.GetMyTicket()
		case "addMyComment":
			controller.AddMyComment()
		case "addMyAttachment":
			controller.AddMyAttachment()
		case "closeMyTicket":
			controller.CloseMyTicket()
		case "getTickets":
			controller.GetTickets()
		case "getTicket":
			controller.GetTicket()
		case "updateTicket":
			controller.UpdateTicket()
		case "addComment":
			controller.AddComment()
		case "addAttachment":
			controller.AddAttachment()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
