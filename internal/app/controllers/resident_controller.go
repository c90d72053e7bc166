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

// InterfaceResidentController 定义居民控制器接口
type InterfaceResidentController interface {
	GetResidents()
	GetResident()
	UpdateResident()
	AssignUnit()
	UpdateResidentStatus()
	DeleteResident()
	GetProfile()
	UpdateProfile()
}

// ResidentController 处理居民相关的请求
type ResidentController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewResidentController 创建一个新的居民控制器
func NewResidentController(ctx *gin.Context, container *container.ServiceContainer) *ResidentController {
	return &ResidentController{
		Ctx:       ctx,
		Container: container,
	}
}

// UpdateResidentRequest 表示管理员更新居民请求
type UpdateResidentRequest struct {
	FullName              *string `json:"full_name" example:"Budi Santoso"`
	Phone                 *string `json:"phone" example:"+6281234567890"`
	IDNumber              *string `json:"id_number" example:"3171234567890001"`
	Occupation            *string `json:"occupation" example:"Engineer"`
	EmergencyContactName  *string `json:"emergency_contact_name" example:"Siti"`
	EmergencyContactPhone *string `json:"emergency_contact_phone" example:"+6281298765432"`
	Occupants             *int    `json:"occupants" example:"2"`
}

// ProfileRequest 表示居民修改本人资料请求
type ProfileRequest struct {
	FullName              *string `json:"full_name" example:"Budi Santoso"`
	Phone                 *string `json:"phone" example:"+6281234567890"`
	Occupation            *string `json:"occupation" example:"Engineer"`
	EmergencyContactName  *string `json:"emergency_contact_name" example:"Siti"`
	EmergencyContactPhone *string `json:"emergency_contact_phone" example:"+6281298765432"`
	Occupants             *int    `json:"occupants" example:"2"`
}

// AssignUnitRequest 分配房源请求
type AssignUnitRequest struct {
	UnitID uint `json:"unit_id" binding:"required" example:"3"`
}

// ResidentStatusRequest 居民状态变更请求
type ResidentStatusRequest struct {
	Status models.ResidentStatus `json:"status" binding:"required" example:"moved_out"`
}

func (c *ResidentController) residentService() services.InterfaceResidentService {
	return c.Container.GetService("resident").(services.InterfaceResidentService)
}

// GetResidents 获取所有居民
// @Summary      获取居民列表
// @Description  获取系统中所有居民的列表，支持按姓名、电话搜索及按状态、房源筛选
// @Tags         Resident
// @Accept       json
// @Produce      json
// @Param        search query string false "姓名或电话"
// @Param        status query string false "居民状态"
// @Param        unit_id query int false "房源ID"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /admin/residents [get]
func (c *ResidentController) GetResidents() {
	page, pageSize := parsePage(c.Ctx)
	filter := services.ResidentFilter{
		Search: c.Ctx.Query("search"),
		Status: models.ResidentStatus(c.Ctx.Query("status")),
		UnitID: queryUint(c.Ctx, "unit_id"),
	}

	residents, total, err := c.residentService().GetAllResidents(c.Ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取居民列表失败")
		return
	}
	response.Page(c.Ctx, residents, total, page, pageSize)
}

// GetResident 获取单个居民
// @Summary      获取居民详情
// @Description  根据ID获取特定居民的详细信息
// @Tags         Resident
// @Accept       json
// @Produce      json
// @Param        id path int true "居民ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /admin/residents/{id} [get]
func (c *ResidentController) GetResident() {
	id, ok := parseID(c.Ctx, "id", "无效的居民ID")
	if !ok {
		return
	}

	resident, err := c.residentService().GetResidentByID(c.Ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取居民信息失败")
		return
	}
	response.Success(c.Ctx, resident)
}

// UpdateResident 更新居民信息
// @Summary      更新居民
// @Description  管理员更新居民档案
// @Tags         Resident
// @Accept       json
// @Produce      json
// @Param        id path int true "居民ID"
// @Param        request body UpdateResidentRequest true "更新的居民信息"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/residents/{id} [put]
func (c *ResidentController) UpdateResident() {
	id, ok := parseID(c.Ctx, "id", "无效的居民ID")
	if !ok {
		return
	}

	var req UpdateResidentRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	updates := make(map[string]interface{})
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.IDNumber != nil {
		updates["id_number"] = *req.IDNumber
	}
	if req.Occupation != nil {
		updates["occupation"] = *req.Occupation
	}
	if req.EmergencyContactName != nil {
		updates["emergency_contact_name"] = *req.EmergencyContactName
	}
	if req.EmergencyContactPhone != nil {
		updates["emergency_contact_phone"] = *req.EmergencyContactPhone
	}
	if req.Occupants != nil {
		updates["occupants"] = *req.Occupants
	}

	resident, err := c.residentService().UpdateResident(c.Ctx.Request.Context(), id, updates)
	if err != nil {
		handleServiceError(c.Ctx, err, "更新居民信息失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "update", "residents", id, req)
	response.Success(c.Ctx, resident)
}

// AssignUnit 给居民分配房源
// @Summary      分配房源
// @Description  把居民安排入住指定房源，原房源恢复为可租
// @Tags         Resident
// @Accept       json
// @Produce      json
// @Param        id path int true "居民ID"
// @Param        request body AssignUnitRequest true "房源"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /admin/residents/{id}/unit [put]
func (c *ResidentController) AssignUnit() {
	id, ok := parseID(c.Ctx, "id", "无效的居民ID")
	if !ok {
		return
	}

	var req AssignUnitRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	resident, err := c.residentService().AssignUnit(c.Ctx.Request.Context(), id, req.UnitID)
	if err != nil {
		handleServiceError(c.Ctx, err, "分配房源失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "assign_unit", "residents", id, req)
	purgePublicCache(publicUnitsPath)
	response.Success(c.Ctx, resident)
}

// UpdateResidentStatus 修改居民状态
// @Summary      修改居民状态
// @Description  审核通过、迁出等状态变更，迁出时释放房源
// @Tags         Resident
// @Accept       json
// @Produce      json
// @Param        id path int true "居民ID"
// @Param        request body ResidentStatusRequest true "状态"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/residents/{id}/status [put]
func (c *ResidentController) UpdateResidentStatus() {
	id, ok := parseID(c.Ctx, "id", "无效的居民ID")
	if !ok {
		return
	}

	var req ResidentStatusRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	resident, err := c.residentService().UpdateStatus(c.Ctx.Request.Context(), id, req.Status)
	if err != nil {
		handleServiceError(c.Ctx, err, "修改居民状态失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "update_status", "residents", id, req)
	purgePublicCache(publicUnitsPath)
	response.Success(c.Ctx, resident)
}

// DeleteResident 删除居民
// @Summary      删除居民
// @Description  删除居民档案及其登录账号
// @Tags         Resident
// @Accept       json
// @Produce      json
// @Param        id path int true "居民ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/residents/{id} [delete]
func (c *ResidentController) DeleteResident() {
	id, ok := parseID(c.Ctx, "id", "无效的居民ID")
	if !ok {
		return
	}

	if err := c.residentService().DeleteResident(c.Ctx.Request.Context(), id); err != nil {
		handleServiceError(c.Ctx, err, "删除居民失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "delete", "residents", id, nil)
	purgePublicCache(publicUnitsPath)
	response.Success(c.Ctx, gin.H{"message": "居民已删除"})
}

// GetProfile 获取本人居民档案
// @Summary      我的资料
// @Description  当前居民的档案及所住房源
// @Tags         Resident
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /resident/profile [get]
func (c *ResidentController) GetProfile() {
	resident, ok := currentResident(c.Ctx, c.Container)
	if !ok {
		return
	}
	response.Success(c.Ctx, resident)
}

// UpdateProfile 修改本人资料
// @Summary      修改我的资料
// @Description  居民只能修改姓名、电话、职业、紧急联系人和同住人数
// @Tags         Resident
// @Accept       json
// @Produce      json
// @Param        request body ProfileRequest true "资料"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /resident/profile [put]
func (c *ResidentController) UpdateProfile() {
	var req ProfileRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	updates := make(map[string]interface{})
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Occupation != nil {
		updates["occupation"] = *req.Occupation
	}
	if req.EmergencyContactName != nil {
		updates["emergency_contact_name"] = *req.EmergencyContactName
	}
	if req.EmergencyContactPhone != nil {
		updates["emergency_contact_phone"] = *req.EmergencyContactPhone
	}
	if req.Occupants != nil {
		updates["occupants"] = *req.Occupants
	}

	resident, err := c.residentService().UpdateProfile(c.Ctx.Request.Context(), middleware.CurrentUserID(c.Ctx), updates)
	if err != nil {
		handleServiceError(c.Ctx, err, "修改资料失败")
		return
	}
	response.Success(c.Ctx, resident)
}

// HandleResidentFunc 返回一个处理居民请求的Gin处理函数
func HandleResidentFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewResidentController(ctx, container)

		switch method {
		case "getResidents":
			controller.GetResidents()
		case "getResident":
			controller.GetResident()
		case "updateResident":
			controller.UpdateResident()
		case "assignUnit":
			controller.AssignUnit()
		case "updateResidentStatus":
			controller.UpdateResidentStatus()
		case "deleteResident":
			controller.DeleteResident()
		case "getProfile":
			controller.GetProfile()
		case "updateProfile":
			controller.UpdateProfile()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
