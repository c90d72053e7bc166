package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
)

// InterfaceFacilityController 定义设施及预约控制器接口
type InterfaceFacilityController interface {
	GetFacilities(activeOnly bool)
	GetFacility()
	GetAvailability()
	CreateFacility()
	UpdateFacility()
	DeleteFacility()
	CreateBooking()
	GetMyBookings()
	GetMyBooking()
	CancelBooking()
	GetBookings()
	GetBooking()
	UpdateBookingStatus()
}

// FacilityController 处理公共设施和预约请求
type FacilityController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewFacilityController 创建一个新的设施控制器
func NewFacilityController(ctx *gin.Context, container *container.ServiceContainer) *FacilityController {
	return &FacilityController{
		Ctx:       ctx,
		Container: container,
	}
}

// FacilityRequest 表示创建设施请求
type FacilityRequest struct {
	Name             string                `json:"name" binding:"required" example:"游泳池"`
	Description      string                `json:"description" example:"室外恒温泳池"`
	Location         string                `json:"location" example:"3层平台"`
	Capacity         int                   `json:"capacity" binding:"required" example:"20"`
	OpenTime         string                `json:"open_time" example:"06:00"`
	CloseTime        string                `json:"close_time" example:"22:00"`
	HourlyRate       float64               `json:"hourly_rate" example:"50000"`
	RequiresApproval bool                  `json:"requires_approval" example:"false"`
	Status           models.FacilityStatus `json:"status" example:"active"`
	ImageURL         string                `json:"image_url" example:"https://cdn.example.com/pool.jpg"`
}

// UpdateFacilityRequest 表示更新设施请求
type UpdateFacilityRequest struct {
	Name             *string                `json:"name" example:"游泳池"`
	Description      *string                `json:"description" example:"室外恒温泳池"`
	Location         *string                `json:"location" example:"3层平台"`
	Capacity         *int                   `json:"capacity" example:"25"`
	OpenTime         *string                `json:"open_time" example:"07:00"`
	CloseTime        *string                `json:"close_time" example:"21:00"`
	HourlyRate       *float64               `json:"hourly_rate" example:"60000"`
	RequiresApproval *bool                  `json:"requires_approval" example:"true"`
	Status           *models.FacilityStatus `json:"status" example:"maintenance"`
	ImageURL         *string                `json:"image_url" example:"https://cdn.example.com/pool.jpg"`
}

// CancelBookingRequest 取消预约请求
type CancelBookingRequest struct {
	Reason string `json:"reason" example:"行程有变"`
}

// BookingStatusRequest 预约状态变更请求
type BookingStatusRequest struct {
	Status models.BookingStatus `json:"status" binding:"required" example:"confirmed"`
	Reason string               `json:"reason" example:"维修占用"`
}

func (c *FacilityController) facilityService() services.InterfaceFacilityService {
	return c.Container.GetService("facility").(services.InterfaceFacilityService)
}

// queryDate 解析 YYYY-MM-DD 格式的日期参数
func (c *FacilityController) queryDate(name string) (*time.Time, bool) {
	value := c.Ctx.Query(name)
	if value == "" {
		return nil, true
	}
	day, err := parseDate(value, propertyLocation(c.Container))
	if err != nil {
		response.ParamError(c.Ctx, "日期格式应为YYYY-MM-DD")
		return nil, false
	}
	return &day, true
}

// GetFacilities 获取设施列表
// @Summary      获取设施列表
// @Description  公开接口只返回开放中的设施，管理端返回全部
// @Tags         Facility
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /public/facilities [get]
func (c *FacilityController) GetFacilities(activeOnly bool) {
	facilities, err := c.facilityService().ListFacilities(c.Ctx.Request.Context(), activeOnly)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取设施列表失败")
		return
	}
	response.Success(c.Ctx, facilities)
}

// GetFacility 获取设施详情
// @Summary      获取设施详情
// @Tags         Facility
// @Produce      json
// @Param        id path int true "设施ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /public/facilities/{id} [get]
func (c *FacilityController) GetFacility() {
	id, ok := parseID(c.Ctx, "id", "无效的设施ID")
	if !ok {
		return
	}

	facility, err := c.facilityService().GetFacility(c.Ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取设施信息失败")
		return
	}
	response.Success(c.Ctx, facility)
}

// GetAvailability 查询设施某天已被占用的时段
// @Summary      设施占用时段
// @Description  返回指定日期内待审批和已确认的预约时段
// @Tags         Facility
// @Produce      json
// @Param        id path int true "设施ID"
// @Param        date query string true "日期 YYYY-MM-DD"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /resident/facilities/{id}/availability [get]
func (c *FacilityController) GetAvailability() {
	id, ok := parseID(c.Ctx, "id", "无效的设施ID")
	if !ok {
		return
	}
	day, ok := c.queryDate("date")
	if !ok {
		return
	}
	if day == nil {
		response.ParamError(c.Ctx, "请指定查询日期")
		return
	}

	slots, err := c.facilityService().GetAvailability(c.Ctx.Request.Context(), id, *day)
	if err != nil {
		handleServiceError(c.Ctx, err, "查询设施占用时段失败")
		return
	}
	response.Success(c.Ctx, gin.H{
		"facility_id": id,
		"date":        day.Format("2006-01-02"),
		"booked":      slots,
	})
}

// CreateFacility 创建设施
// @Summary      创建设施
// @Tags         Facility
// @Accept       json
// @Produce      json
// @Param        request body FacilityRequest true "设施信息"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/facilities [post]
func (c *FacilityController) CreateFacility() {
	var req FacilityRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	facility := &models.Facility{
		Name:             req.Name,
		Description:      req.Description,
		Location:         req.Location,
		Capacity:         req.Capacity,
		OpenTime:         req.OpenTime,
		CloseTime:        req.CloseTime,
		HourlyRate:       req.HourlyRate,
		RequiresApproval: req.RequiresApproval,
		Status:           req.Status,
		ImageURL:         req.ImageURL,
	}
	if facility.OpenTime == "" {
		facility.OpenTime = "06:00"
	}
	if facility.CloseTime == "" {
		facility.CloseTime = "22:00"
	}
	if err := c.facilityService().CreateFacility(c.Ctx.Request.Context(), facility); err != nil {
		handleServiceError(c.Ctx, err, "创建设施失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "create", "facilities", facility.ID, req)
	purgePublicCache(publicFacilitiesPath)
	response.Created(c.Ctx, facility)
}

// UpdateFacility 更新设施
// @Summary      更新设施
// @Tags         Facility
// @Accept       json
// @Produce      json
// @Param        id path int true "设施ID"
// @Param        request body UpdateFacilityRequest true "设施信息"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/facilities/{id} [put]
func (c *FacilityController) UpdateFacility() {
	id, ok := parseID(c.Ctx, "id", "无效的设施ID")
	if !ok {
		return
	}

	var req UpdateFacilityRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Capacity != nil {
		updates["capacity"] = *req.Capacity
	}
	if req.OpenTime != nil {
		updates["open_time"] = *req.OpenTime
	}
	if req.CloseTime != nil {
		updates["close_time"] = *req.CloseTime
	}
	if req.HourlyRate != nil {
		updates["hourly_rate"] = *req.HourlyRate
	}
	if req.RequiresApproval != nil {
		updates["requires_approval"] = *req.RequiresApproval
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}

	facility, err := c.facilityService().UpdateFacility(c.Ctx.Request.Context(), id, updates)
	if err != nil {
		handleServiceError(c.Ctx, err, "更新设施失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "update", "facilities", id, req)
	purgePublicCache(publicFacilitiesPath)
	response.Success(c.Ctx, facility)
}

// DeleteFacility 删除设施
// @Summary      删除设施
// @Tags         Facility
// @Produce      json
// @Param        id path int true "设施ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/facilities/{id} [delete]
func (c *FacilityController) DeleteFacility() {
	id, ok := parseID(c.Ctx, "id", "无效的设施ID")
	if !ok {
		return
	}

	if err := c.facilityService().DeleteFacility(c.Ctx.Request.Context(), id); err != nil {
		handleServiceError(c.Ctx, err, "删除设施失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "delete", "facilities", id, nil)
	purgePublicCache(publicFacilitiesPath)
	response.Success(c.Ctx, gin.H{"message": "设施已删除"})
}

// CreateBooking 居民预约设施
// @Summary      预约设施
// @Description  在开放时间内预约设施，时段不能与已有预约重叠
// @Tags         Booking
// @Accept       json
// @Produce      json
// @Param        request body services.BookingRequest true "预约信息"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /resident/bookings [post]
func (c *FacilityController) CreateBooking() {
	var req services.BookingRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return
	}

	booking, err := c.facilityService().CreateBooking(c.Ctx.Request.Context(), resident.ID, req)
	if err != nil {
		handleServiceError(c.Ctx, err, "预约设施失败")
		return
	}
	response.Created(c.Ctx, booking)
}

// GetMyBookings 居民本人的预约
// @Summary      我的预约
// @Tags         Booking
// @Produce      json
// @Param        status query string false "预约状态"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /resident/bookings [get]
func (c *FacilityController) GetMyBookings() {
	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return
	}

	page, pageSize := parsePage(c.Ctx)
	filter := services.BookingFilter{
		ResidentID: &resident.ID,
		Status:     models.BookingStatus(c.Ctx.Query("status")),
	}
	bookings, total, err := c.facilityService().ListBookings(c.Ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取预约列表失败")
		return
	}
	response.Page(c.Ctx, bookings, total, page, pageSize)
}

// GetMyBooking 居民本人的预约详情
// @Summary      我的预约详情
// @Tags         Booking
// @Produce      json
// @Param        id path int true "预约ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /resident/bookings/{id} [get]
func (c *FacilityController) GetMyBooking() {
	id, ok := parseID(c.Ctx, "id", "无效的预约ID")
	if !ok {
		return
	}
	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return
	}

	booking, err := c.facilityService().GetBooking(c.Ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取预约信息失败")
		return
	}
	// 他人的预约按不存在处理
	if booking.ResidentID != resident.ID {
		response.Fail(c.Ctx, code.ErrBookingNotFound, nil)
		return
	}
	response.Success(c.Ctx, booking)
}

// CancelBooking 居民取消本人预约
// @Summary      取消预约
// @Tags         Booking
// @Accept       json
// @Produce      json
// @Param        id path int true "预约ID"
// @Param        request body CancelBookingRequest false "取消原因"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /resident/bookings/{id}/cancel [post]
func (c *FacilityController) CancelBooking() {
	id, ok := parseID(c.Ctx, "id", "无效的预约ID")
	if !ok {
		return
	}

	var req CancelBookingRequest
	if c.Ctx.Request.ContentLength > 0 {
		if err := c.Ctx.ShouldBindJSON(&req); err != nil {
			response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
			return
		}
	}

	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return
	}

	booking, err := c.facilityService().CancelBooking(c.Ctx.Request.Context(), resident.ID, id, req.Reason)
	if err != nil {
		handleServiceError(c.Ctx, err, "取消预约失败")
		return
	}
	response.Success(c.Ctx, booking)
}

// GetBookings 管理端预约列表
// @Summary      预约列表
// @Tags         Booking
// @Produce      json
// @Param        facility_id query int false "设施ID"
// @Param        resident_id query int false "居民ID"
// @Param        status query string false "预约状态"
// @Param        date query string false "日期 YYYY-MM-DD"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/bookings [get]
func (c *FacilityController) GetBookings() {
	day, ok := c.queryDate("date")
	if !ok {
		return
	}

	page, pageSize := parsePage(c.Ctx)
	filter := services.BookingFilter{
		ResidentID: queryUint(c.Ctx, "resident_id"),
		FacilityID: queryUint(c.Ctx, "facility_id"),
		Status:     models.BookingStatus(c.Ctx.Query("status")),
		Date:       day,
	}
	bookings, total, err := c.facilityService().ListBookings(c.Ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取预约列表失败")
		return
	}
	response.Page(c.Ctx, bookings, total, page, pageSize)
}

// GetBooking 管理端预约详情
// @Summary      预约详情
// @Tags         Booking
// @Produce      json
// @Param        id path int true "预约ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/bookings/{id} [get]
func (c *FacilityController) GetBooking() {
	id, ok := parseID(c.Ctx, "id", "无效的预约ID")
	if !ok {
		return
	}

	booking, err := c.facilityService().GetBooking(c.Ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取预约信息失败")
		return
	}
	response.Success(c.Ctx, booking)
}

// UpdateBookingStatus 管理员审批、取消或完成预约
// @Summary      修改预约状态
// @Tags         Booking
// @Accept       json
// @Produce      json
// @Param        id path int true "预约ID"
// @Param        request body BookingStatusRequest true "状态"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/bookings/{id}/status [put]
func (c *FacilityController) UpdateBookingStatus() {
	id, ok := parseID(c.Ctx, "id", "无效的预约ID")
	if !ok {
		return
	}

	var req BookingStatusRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	booking, err := c.facilityService().UpdateBookingStatus(c.Ctx.Request.Context(), id, req.Status, req.Reason)
	if err != nil {
		handleServiceError(c.Ctx, err, "修改预约状态失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "update_status", "facility_bookings", id, req)
	response.Success(c.Ctx, booking)
}

// HandleFacilityFunc 返回一个处理设施及预约请求的Gin处理函数
func HandleFacilityFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewFacilityController(ctx, container)

		switch method {
		case "getActiveFacilities":
			controller.GetFacilities(true)
		case "getFacilities":
			controller.GetFacilities(false)
		case "getFacility":
			controller.GetFacility()
		case "getAvailability":
			controller.GetAvailability()
		case "createFacility":
			controller.CreateFacility()
		case "updateFacility":
			controller.UpdateFacility()
		case "deleteFacility":
			controller.DeleteFacility()
		case "createBooking":
			controller.CreateBooking()
		case "getMyBookings":
			controller.GetMyBookings()
		case "getMyBooking":
			controller.GetMyBooking()
		case "cancelBooking":
			controller.CancelBooking()
		case "getBookings":
			controller.GetBookings()
		case "getBooking":
			controller.GetBooking()
		case "updateBookingStatus":
			controller.UpdateBookingStatus()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
