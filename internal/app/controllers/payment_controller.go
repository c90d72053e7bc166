package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/middleware"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
)

// InterfacePaymentController 定义账单控制器接口
type InterfacePaymentController interface {
	GetPayments()
	GetPayment()
	CreateInvoice()
	GenerateMonthlyRent()
	UpdatePaymentStatus()
	MarkOverdue()
	GetMyPayments()
	GetMyPayment()
	PayInvoice()
	GetMySummary()
}

// PaymentController 处理账单和支付请求
type PaymentController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewPaymentController 创建一个新的账单控制器
func NewPaymentController(ctx *gin.Context, container *container.ServiceContainer) *PaymentController {
	return &PaymentController{
		Ctx:       ctx,
		Container: container,
	}
}

// InvoiceRequest 开具账单请求
type InvoiceRequest struct {
	ResidentID  uint               `json:"resident_id" binding:"required" example:"1"`
	Type        models.PaymentType `json:"type" binding:"required" example:"utility"`
	Description string             `json:"description" example:"2030年3月水电费"`
	Amount      float64            `json:"amount" binding:"required" example:"450000"`
	DueDate     string             `json:"due_date" binding:"required" example:"2030-03-25"` // YYYY-MM-DD
	PeriodMonth int                `json:"period_month" example:"3"`
	PeriodYear  int                `json:"period_year" example:"2030"`
}

// BulkRentRequest 批量生成月租请求
type BulkRentRequest struct {
	Year   int `json:"year" binding:"required" example:"2030"`
	Month  int `json:"month" binding:"required" example:"3"`
	DueDay int `json:"due_day" example:"10"`
}

// PaymentStatusRequest 账单状态变更请求
type PaymentStatusRequest struct {
	Status models.PaymentStatus `json:"status" binding:"required" example:"cancelled"`
}

func (c *PaymentController) paymentService() services.InterfacePaymentService {
	return c.Container.GetService("payment").(services.InterfacePaymentService)
}

// GetPayments 管理端账单列表
// @Summary      账单列表
// @Tags         Payment
// @Produce      json
// @Param        resident_id query int false "居民ID"
// @Param        status query string false "账单状态"
// @Param        type query string false "账单类型"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/payments [get]
func (c *PaymentController) GetPayments() {
	page, pageSize := parsePage(c.Ctx)
	filter := services.PaymentFilter{
		ResidentID: queryUint(c.Ctx, "resident_id"),
		Status:     models.PaymentStatus(c.Ctx.Query("status")),
		Type:       models.PaymentType(c.Ctx.Query("type")),
	}

	payments, total, err := c.paymentService().ListPayments(c.Ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取账单列表失败")
		return
	}
	response.Page(c.Ctx, payments, total, page, pageSize)
}

// GetPayment 管理端账单详情
// @Summary      账单详情
// @Tags         Payment
// @Produce      json
// @Param        id path int true "账单ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/payments/{id} [get]
func (c *PaymentController) GetPayment() {
	id, ok := parseID(c.Ctx, "id", "无效的账单ID")
	if !ok {
		return
	}

	payment, err := c.paymentService().GetPayment(c.Ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取账单信息失败")
		return
	}
	response.Success(c.Ctx, payment)
}

// CreateInvoice 开具账单
// @Summary      开具账单
// @Description  给居民开具水电、维修、押金等账单
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body InvoiceRequest true "账单信息"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/payments [post]
func (c *PaymentController) CreateInvoice() {
	var req InvoiceRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	dueDate, err := parseDate(req.DueDate, propertyLocation(c.Container))
	if err != nil {
		response.ParamError(c.Ctx, "到期日格式应为YYYY-MM-DD")
		return
	}

	payment := &models.Payment{
		ResidentID:  req.ResidentID,
		Type:        req.Type,
		Description: req.Description,
		Amount:      req.Amount,
		DueDate:     dueDate,
		PeriodMonth: req.PeriodMonth,
		PeriodYear:  req.PeriodYear,
	}
	if err := c.paymentService().CreateInvoice(c.Ctx.Request.Context(), payment); err != nil {
		handleServiceError(c.Ctx, err, "开具账单失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "create", "payments", payment.ID, req)
	response.Created(c.Ctx, payment)
}

// GenerateMonthlyRent 批量生成月租账单
// @Summary      生成月租账单
// @Description  为所有在住居民生成指定月份的租金账单，已存在的跳过
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body BulkRentRequest true "账期"
// @Security     BearerAuth
// @Success      200  {object}  services.BulkRentResult
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/payments/bulk [post]
func (c *PaymentController) GenerateMonthlyRent() {
	var req BulkRentRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	result, err := c.paymentService().GenerateMonthlyRent(c.Ctx.Request.Context(), req.Year, req.Month, req.DueDay)
	if err != nil {
		handleServiceError(c.Ctx, err, "生成月租账单失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "generate_rent", "payments", "", gin.H{
		"year": req.Year, "month": req.Month, "created": result.Created, "skipped": result.Skipped,
	})
	response.Success(c.Ctx, result)
}

// UpdatePaymentStatus 修改账单状态
// @Summary      修改账单状态
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        id path int true "账单ID"
// @Param        request body PaymentStatusRequest true "状态"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/payments/{id}/status [put]
func (c *PaymentController) UpdatePaymentStatus() {
	id, ok := parseID(c.Ctx, "id", "无效的账单ID")
	if !ok {
		return
	}

	var req PaymentStatusRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	payment, err := c.paymentService().UpdateStatus(c.Ctx.Request.Context(), id, req.Status)
	if err != nil {
		handleServiceError(c.Ctx, err, "修改账单状态失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "update_status", "payments", id, req)
	response.Success(c.Ctx, payment)
}

// MarkOverdue 把已过期的待支付账单标记为逾期
// @Summary      标记逾期账单
// @Tags         Payment
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/payments/mark-overdue [post]
func (c *PaymentController) MarkOverdue() {
	count, err := c.paymentService().MarkOverdue(c.Ctx.Request.Context())
	if err != nil {
		handleServiceError(c.Ctx, err, "标记逾期账单失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "mark_overdue", "payments", "", gin.H{"updated": count})
	response.Success(c.Ctx, gin.H{"updated": count})
}

// GetMyPayments 居民本人的账单
// @Summary      我的账单
// @Tags         Payment
// @Produce      json
// @Param        status query string false "账单状态"
// @Param        type query string false "账单类型"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /resident/payments [get]
func (c *PaymentController) GetMyPayments() {
	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return
	}

	page, pageSize := parsePage(c.Ctx)
	filter := services.PaymentFilter{
		ResidentID: &resident.ID,
		Status:     models.PaymentStatus(c.Ctx.Query("status")),
		Type:       models.PaymentType(c.Ctx.Query("type")),
	}
	payments, total, err := c.paymentService().ListPayments(c.Ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取账单列表失败")
		return
	}
	response.Page(c.Ctx, payments, total, page, pageSize)
}

// GetMyPayment 居民本人的账单详情
// @Summary      我的账单详情
// @Tags         Payment
// @Produce      json
// @Param        id path int true "账单ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /resident/payments/{id} [get]
func (c *PaymentController) GetMyPayment() {
	id, ok := parseID(c.Ctx, "id", "无效的账单ID")
	if !ok {
		return
	}
	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return
	}

	payment, err := c.paymentService().GetResidentPayment(c.Ctx.Request.Context(), resident.ID, id)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取账单信息失败")
		return
	}
	response.Success(c.Ctx, payment)
}

// PayInvoice 居民支付账单
// @Summary      支付账单
// @Description  金额必须与账单金额一致，只能支付待支付或逾期的账单
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        id path int true "账单ID"
// @Param        request body services.PayRequest true "支付信息"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /resident/payments/{id}/pay [post]
func (c *PaymentController) PayInvoice() {
	id, ok := parseID(c.Ctx, "id", "无效的账单ID")
	if !ok {
		return
	}

	var req services.PayRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return
	}

	payment, err := c.paymentService().Pay(c.Ctx.Request.Context(), resident.ID, id, req, middleware.CurrentUserID(c.Ctx))
	if err != nil {
		handleServiceError(c.Ctx, err, "支付失败")
		return
	}
	response.Success(c.Ctx, payment)
}

// GetMySummary 居民账单汇总
// @Summary      我的账单汇总
// @Description  待缴总额、逾期数量、本年已缴及最近到期账单
// @Tags         Payment
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  services.PaymentSummary
// @Router       /resident/payments/summary [get]
func (c *PaymentController) GetMySummary() {
	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return
	}

	summary, err := c.paymentService().Summary(c.Ctx.Request.Context(), resident.ID)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取账单汇总失败")
		return
	}
	response.Success(c.Ctx, summary)
}

// HandlePaymentFunc 返回一个处理账单请求的Gin处理函数
func HandlePaymentFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewPaymentController(ctx, container)

		switch method {
		case "getPayments":
			controller.GetPayments()
		case "getPayment":
			controller.GetPayment()
		case "createInvoice":
			controller.CreateInvoice()
		case "generateMonthlyRent":
			controller.GenerateMonthlyRent()
		case "updatePaymentStatus":
			controller.UpdatePaymentStatus()
		case "markOverdue":
			controller.MarkOverdue()
		case "getMyPayments":
			controller.GetMyPayments()
		case "getMyPayment":
			controller.GetMyPayment()
		case "payInvoice":
			controller.PayInvoice()
		case "getMySummary":
			controller.GetMySummary()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
