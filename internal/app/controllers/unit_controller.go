package controllers

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
)

// InterfaceUnitController 定义房源控制器接口
type InterfaceUnitController interface {
	GetUnits()
	GetUnit()
	CreateUnit()
	UpdateUnit()
	UpdateUnitStatus()
	DeleteUnit()
	UploadPhoto()
	DeletePhoto()
}

// UnitController 处理房源相关的请求
type UnitController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewUnitController 创建一个新的房源控制器
func NewUnitController(ctx *gin.Context, container *container.ServiceContainer) *UnitController {
	return &UnitController{
		Ctx:       ctx,
		Container: container,
	}
}

// UnitRequest 表示创建房源请求
type UnitRequest struct {
	UnitNumber  string            `json:"unit_number" binding:"required" example:"A-1203"`
	Name        string            `json:"name" binding:"required" example:"Tower A 两居室"`
	Type        string            `json:"type" binding:"required" example:"2br"`
	Building    string            `json:"building" example:"Tower A"`
	Floor       int               `json:"floor" example:"12"`
	Bedrooms    int               `json:"bedrooms" example:"2"`
	Bathrooms   int               `json:"bathrooms" example:"1"`
	AreaSqm     float64           `json:"area_sqm" example:"56.5"`
	MonthlyRent float64           `json:"monthly_rent" binding:"required" example:"3500000"`
	Deposit     float64           `json:"deposit" example:"7000000"`
	Status      models.UnitStatus `json:"status" example:"available"`
	Description string            `json:"description" example:"朝南，带阳台"`
	Amenities   []string          `json:"amenities" example:"wifi,ac"`
	IsFeatured  bool              `json:"is_featured" example:"false"`
}

// UpdateUnitRequest 表示更新房源请求，只更新提供的字段
type UpdateUnitRequest struct {
	UnitNumber  *string   `json:"unit_number" example:"A-1203"`
	Name        *string   `json:"name" example:"Tower A 两居室"`
	Type        *string   `json:"type" example:"2br"`
	Building    *string   `json:"building" example:"Tower A"`
	Floor       *int      `json:"floor" example:"12"`
	Bedrooms    *int      `json:"bedrooms" example:"2"`
	Bathrooms   *int      `json:"bathrooms" example:"1"`
	AreaSqm     *float64  `json:"area_sqm" example:"56.5"`
	MonthlyRent *float64  `json:"monthly_rent" example:"3600000"`
	Deposit     *float64  `json:"deposit" example:"7200000"`
	Description *string   `json:"description" example:"朝南，带阳台"`
	Amenities   *[]string `json:"amenities"`
	IsFeatured  *bool     `json:"is_featured" example:"true"`
}

// UnitStatusRequest 房源状态变更请求
type UnitStatusRequest struct {
	Status models.UnitStatus `json:"status" binding:"required" example:"maintenance"`
}

func (c *UnitController) unitService() services.InterfaceUnitService {
	return c.Container.GetService("unit").(services.InterfaceUnitService)
}

func amenitiesJSON(amenities []string) datatypes.JSON {
	if amenities == nil {
		return nil
	}
	b, err := json.Marshal(amenities)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// GetUnits 获取房源列表
// @Summary      获取房源列表
// @Description  按状态、户型、卧室数、租金区间筛选房源
// @Tags         Unit
// @Produce      json
// @Param        status query string false "房源状态"
// @Param        type query string false "户型"
// @Param        bedrooms query int false "卧室数"
// @Param        min_price query number false "最低月租"
// @Param        max_price query number false "最高月租"
// @Param        featured query bool false "是否推荐"
// @Param        search query string false "房号或名称"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  ErrorResponse
// @Router       /public/units [get]
func (c *UnitController) GetUnits() {
	page, pageSize := parsePage(c.Ctx)

	filter := services.UnitFilter{
		Status:   models.UnitStatus(c.Ctx.Query("status")),
		Type:     c.Ctx.Query("type"),
		Featured: queryBool(c.Ctx, "featured"),
		Search:   c.Ctx.Query("search"),
	}
	if v, err := strconv.Atoi(c.Ctx.Query("bedrooms")); err == nil {
		filter.Bedrooms = &v
	}
	if v, err := strconv.ParseFloat(c.Ctx.Query("min_price"), 64); err == nil {
		filter.MinPrice = &v
	}
	if v, err := strconv.ParseFloat(c.Ctx.Query("max_price"), 64); err == nil {
		filter.MaxPrice = &v
	}

	units, total, err := c.unitService().ListUnits(c.Ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取房源列表失败")
		return
	}
	response.Page(c.Ctx, units, total, page, pageSize)
}

// GetUnit 获取房源详情
// @Summary      获取房源详情
// @Description  根据ID获取房源及其图片
// @Tags         Unit
// @Produce      json
// @Param        id path int true "房源ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /public/units/{id} [get]
func (c *UnitController) GetUnit() {
	id, ok := parseID(c.Ctx, "id", "无效的房源ID")
	if !ok {
		return
	}

	unit, err := c.unitService().GetUnit(c.Ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取房源信息失败")
		return
	}
	response.Success(c.Ctx, unit)
}

// CreateUnit 创建房源
// @Summary      创建房源
// @Description  管理员新增房源
// @Tags         Unit
// @Accept       json
// @Produce      json
// @Param        request body UnitRequest true "房源信息"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /admin/units [post]
func (c *UnitController) CreateUnit() {
	var req UnitRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	unit := &models.Unit{
		UnitNumber:  req.UnitNumber,
		Name:        req.Name,
		Type:        req.Type,
		Building:    req.Building,
		Floor:       req.Floor,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		AreaSqm:     req.AreaSqm,
		MonthlyRent: req.MonthlyRent,
		Deposit:     req.Deposit,
		Status:      req.Status,
		Description: req.Description,
		Amenities:   amenitiesJSON(req.Amenities),
		IsFeatured:  req.IsFeatured,
	}
	if err := c.unitService().CreateUnit(c.Ctx.Request.Context(), unit); err != nil {
		handleServiceError(c.Ctx, err, "创建房源失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "create", "units", unit.ID, req)
	purgePublicCache(publicUnitsPath)
	response.Created(c.Ctx, unit)
}

// UpdateUnit 更新房源
// @Summary      更新房源
// @Description  管理员修改房源信息，只更新提供的字段
// @Tags         Unit
// @Accept       json
// @Produce      json
// @Param        id path int true "房源ID"
// @Param        request body UpdateUnitRequest true "房源信息"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/units/{id} [put]
func (c *UnitController) UpdateUnit() {
	id, ok := parseID(c.Ctx, "id", "无效的房源ID")
	if !ok {
		return
	}

	var req UpdateUnitRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	updates := make(map[string]interface{})
	if req.UnitNumber != nil {
		updates["unit_number"] = *req.UnitNumber
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Building != nil {
		updates["building"] = *req.Building
	}
	if req.Floor != nil {
		updates["floor"] = *req.Floor
	}
	if req.Bedrooms != nil {
		updates["bedrooms"] = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		updates["bathrooms"] = *req.Bathrooms
	}
	if req.AreaSqm != nil {
		updates["area_sqm"] = *req.AreaSqm
	}
	if req.MonthlyRent != nil {
		if *req.MonthlyRent <= 0 {
			response.ParamError(c.Ctx, "月租必须大于0")
			return
		}
		updates["monthly_rent"] = *req.MonthlyRent
	}
	if req.Deposit != nil {
		updates["deposit"] = *req.Deposit
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Amenities != nil {
		updates["amenities"] = amenitiesJSON(*req.Amenities)
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}

	unit, err := c.unitService().UpdateUnit(c.Ctx.Request.Context(), id, updates)
	if err != nil {
		handleServiceError(c.Ctx, err, "更新房源失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "update", "units", id, req)
	purgePublicCache(publicUnitsPath)
	response.Success(c.Ctx, unit)
}

// UpdateUnitStatus 修改房源状态
// @Summary      修改房源状态
// @Description  设置房源为可租、已入住、维修中或已预留
// @Tags         Unit
// @Accept       json
// @Produce      json
// @Param        id path int true "房源ID"
// @Param        request body UnitStatusRequest true "状态"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/units/{id}/status [put]
func (c *UnitController) UpdateUnitStatus() {
	id, ok := parseID(c.Ctx, "id", "无效的房源ID")
	if !ok {
		return
	}

	var req UnitStatusRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	unit, err := c.unitService().UpdateStatus(c.Ctx.Request.Context(), id, req.Status)
	if err != nil {
		handleServiceError(c.Ctx, err, "修改房源状态失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "update_status", "units", id, req)
	purgePublicCache(publicUnitsPath)
	response.Success(c.Ctx, unit)
}

// DeleteUnit 删除房源
// @Summary      删除房源
// @Description  删除没有在住居民的房源及其图片
// @Tags         Unit
// @Produce      json
// @Param        id path int true "房源ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/units/{id} [delete]
func (c *UnitController) DeleteUnit() {
	id, ok := parseID(c.Ctx, "id", "无效的房源ID")
	if !ok {
		return
	}

	if err := c.unitService().DeleteUnit(c.Ctx.Request.Context(), id); err != nil {
		handleServiceError(c.Ctx, err, "删除房源失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "delete", "units", id, nil)
	purgePublicCache(publicUnitsPath)
	response.Success(c.Ctx, gin.H{"message": "房源已删除"})
}

// UploadPhoto 上传房源图片
// @Summary      上传房源图片
// @Description  multipart 表单上传房源图片，最大10MB
// @Tags         Unit
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path int true "房源ID"
// @Param        file formData file true "图片"
// @Param        caption formData string false "图片说明"
// @Param        is_primary formData bool false "是否封面"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /admin/units/{id}/photos [post]
func (c *UnitController) UploadPhoto() {
	id, ok := parseID(c.Ctx, "id", "无效的房源ID")
	if !ok {
		return
	}

	upload, ok := readUpload(c.Ctx, "file")
	if !ok {
		return
	}
	defer upload.Close()

	isPrimary, _ := strconv.ParseBool(c.Ctx.PostForm("is_primary"))
	photo, err := c.unitService().AddPhoto(c.Ctx.Request.Context(), id, upload.UploadFile, c.Ctx.PostForm("caption"), isPrimary)
	if err != nil {
		handleServiceError(c.Ctx, err, "上传房源图片失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "upload_photo", "unit_photos", photo.ID, gin.H{"unit_id": id, "object_key": photo.ObjectKey})
	purgePublicCache(publicUnitsPath)
	response.Created(c.Ctx, photo)
}

// DeletePhoto 删除房源图片
// @Summary      删除房源图片
// @Description  删除房源图片及对象存储中的文件
// @Tags         Unit
// @Produce      json
// @Param        id path int true "房源ID"
// @Param        photoId path int true "图片ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/units/{id}/photos/{photoId} [delete]
func (c *UnitController) DeletePhoto() {
	id, ok := parseID(c.Ctx, "id", "无效的房源ID")
	if !ok {
		return
	}
	photoID, ok := parseID(c.Ctx, "photoId", "无效的图片ID")
	if !ok {
		return
	}

	if err := c.unitService().DeletePhoto(c.Ctx.Request.Context(), id, photoID); err != nil {
		handleServiceError(c.Ctx, err, "删除房源图片失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "delete_photo", "unit_photos", photoID, gin.H{"unit_id": id})
	purgePublicCache(publicUnitsPath)
	response.Success(c.Ctx, gin.H{"message": "图片已删除"})
}

// HandleUnitFunc 返回一个处理房源请求的Gin处理函数
func HandleUnitFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewUnitController(ctx, container)

		switch method {
		case "getUnits":
			controller.GetUnits()
		case "getUnit":
			controller.GetUnit()
		case "createUnit":
			controller.CreateUnit()
		case "updateUnit":
			controller.UpdateUnit()
		case "updateUnitStatus":
			controller.UpdateUnitStatus()
		case "deleteUnit":
			controller.DeleteUnit()
		case "uploadPhoto":
			controller.UploadPhoto()
		case "deletePhoto":
			controller.DeletePhoto()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
