package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
)

// InterfaceGalleryController 定义相册及咨询控制器接口
type InterfaceGalleryController interface {
	GetPhotos(publishedOnly bool)
	UploadPhoto()
	UpdatePhoto()
	DeletePhoto()
	SubmitInquiry()
	GetInquiries()
	UpdateInquiryStatus()
}

// GalleryController 处理官网相册和咨询表单请求
type GalleryController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewGalleryController 创建一个新的相册控制器
func NewGalleryController(ctx *gin.Context, container *container.ServiceContainer) *GalleryController {
	return &GalleryController{
		Ctx:       ctx,
		Container: container,
	}
}

// UpdatePhotoRequest 更新相册图片请求
type UpdatePhotoRequest struct {
	Title       *string `json:"title" example:"泳池夜景"`
	Description *string `json:"description" example:"晚间灯光效果"`
	Category    *string `json:"category" example:"facility"`
	SortOrder   *int    `json:"sort_order" example:"1"`
	IsPublished *bool   `json:"is_published" example:"false"`
}

// InquiryRequest 官网咨询表单
type InquiryRequest struct {
	Name          string `json:"name" binding:"required" example:"Andi"`
	Email         string `json:"email" binding:"required" example:"andi@example.com"`
	Phone         string `json:"phone" example:"+6281234500000"`
	UnitID        *uint  `json:"unit_id" example:"3"`
	Message       string `json:"message" example:"想预约周末看房"`
	PreferredDate string `json:"preferred_date" example:"2030-01-15"` // YYYY-MM-DD
}

// InquiryStatusRequest 咨询状态变更请求
type InquiryStatusRequest struct {
	Status string `json:"status" binding:"required" example:"contacted"`
}

func (c *GalleryController) galleryService() services.InterfaceGalleryService {
	return c.Container.GetService("gallery").(services.InterfaceGalleryService)
}

// GetPhotos 相册图片列表
// @Summary      相册图片
// @Description  公开接口只返回已发布的图片，按排序号升序
// @Tags         Gallery
// @Produce      json
// @Param        category query string false "分类"
// @Success      200  {object}  map[string]interface{}
// @Router       /public/gallery [get]
func (c *GalleryController) GetPhotos(publishedOnly bool) {
	photos, err := c.galleryService().ListPhotos(c.Ctx.Request.Context(), c.Ctx.Query("category"), publishedOnly)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取相册失败")
		return
	}
	response.Success(c.Ctx, photos)
}

// UploadPhoto 上传相册图片
// @Summary      上传相册图片
// @Tags         Gallery
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "图片"
// @Param        title formData string false "标题"
// @Param        description formData string false "描述"
// @Param        category formData string false "分类"
// @Param        sort_order formData int false "排序号"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /admin/gallery [post]
func (c *GalleryController) UploadPhoto() {
	upload, ok := readUpload(c.Ctx, "file")
	if !ok {
		return
	}
	defer upload.Close()

	sortOrder, _ := strconv.Atoi(c.Ctx.PostForm("sort_order"))
	meta := services.GalleryUpload{
		Title:       c.Ctx.PostForm("title"),
		Description: c.Ctx.PostForm("description"),
		Category:    c.Ctx.PostForm("category"),
		SortOrder:   sortOrder,
	}
	photo, err := c.galleryService().UploadPhoto(c.Ctx.Request.Context(), meta, upload.UploadFile)
	if err != nil {
		handleServiceError(c.Ctx, err, "上传图片失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "create", "gallery_photos", photo.ID, gin.H{"object_key": photo.ObjectKey})
	purgePublicCache(publicGalleryPath)
	response.Created(c.Ctx, photo)
}

// UpdatePhoto 更新相册图片信息
// @Summary      更新相册图片
// @Tags         Gallery
// @Accept       json
// @Produce      json
// @Param        id path int true "图片ID"
// @Param        request body UpdatePhotoRequest true "图片信息"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/gallery/{id} [put]
func (c *GalleryController) UpdatePhoto() {
	id, ok := parseID(c.Ctx, "id", "无效的图片ID")
	if !ok {
		return
	}

	var req UpdatePhotoRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.IsPublished != nil {
		updates["is_published"] = *req.IsPublished
	}

	photo, err := c.galleryService().UpdatePhoto(c.Ctx.Request.Context(), id, updates)
	if err != nil {
		handleServiceError(c.Ctx, err, "更新图片失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "update", "gallery_photos", id, req)
	purgePublicCache(publicGalleryPath)
	response.Success(c.Ctx, photo)
}

// DeletePhoto 删除相册图片
// @Summary      删除相册图片
// @Tags         Gallery
// @Produce      json
// @Param        id path int true "图片ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/gallery/{id} [delete]
func (c *GalleryController) DeletePhoto() {
	id, ok := parseID(c.Ctx, "id", "无效的图片ID")
	if !ok {
		return
	}

	if err := c.galleryService().DeletePhoto(c.Ctx.Request.Context(), id); err != nil {
		handleServiceError(c.Ctx, err, "删除图片失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "delete", "gallery_photos", id, nil)
	purgePublicCache(publicGalleryPath)
	response.Success(c.Ctx, gin.H{"message": "图片已删除"})
}

// SubmitInquiry 提交官网咨询
// @Summary      提交咨询
// @Description  访客提交咨询或预约看房，无需登录
// @Tags         Gallery
// @Accept       json
// @Produce      json
// @Param        request body InquiryRequest true "咨询内容"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /public/inquiries [post]
func (c *GalleryController) SubmitInquiry() {
	var req InquiryRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	inquiry := &models.Inquiry{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		UnitID:  req.UnitID,
		Message: req.Message,
	}
	if req.PreferredDate != "" {
		day, err := parseDate(req.PreferredDate, propertyLocation(c.Container))
		if err != nil {
			response.ParamError(c.Ctx, "日期格式应为YYYY-MM-DD")
			return
		}
		inquiry.PreferredDate = &day
	}

	if err := c.galleryService().SubmitInquiry(c.Ctx.Request.Context(), inquiry); err != nil {
		handleServiceError(c.Ctx, err, "提交咨询失败")
		return
	}
	response.Created(c.Ctx, gin.H{
		"id":      inquiry.ID,
		"message": "提交成功，我们会尽快与您联系",
	})
}

// GetInquiries 管理端咨询列表
// @Summary      咨询列表
// @Tags         Gallery
// @Produce      json
// @Param        status query string false "状态"
// @Param        page query int false "页码，默认为1"
// @Param        page_size query int false "每页条数，默认为10"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/inquiries [get]
func (c *GalleryController) GetInquiries() {
	page, pageSize := parsePage(c.Ctx)
	inquiries, total, err := c.galleryService().ListInquiries(c.Ctx.Request.Context(), c.Ctx.Query("status"), page, pageSize)
	if err != nil {
		handleServiceError(c.Ctx, err, "获取咨询列表失败")
		return
	}
	response.Page(c.Ctx, inquiries, total, page, pageSize)
}

// UpdateInquiryStatus 修改咨询状态
// @Summary      修改咨询状态
// @Tags         Gallery
// @Accept       json
// @Produce      json
// @Param        id path int true "咨询ID"
// @Param        request body InquiryStatusRequest true "状态"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/inquiries/{id}/status [put]
func (c *GalleryController) UpdateInquiryStatus() {
	id, ok := parseID(c.Ctx, "id", "无效的咨询ID")
	if !ok {
		return
	}

	var req InquiryStatusRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	inquiry, err := c.galleryService().UpdateInquiryStatus(c.Ctx.Request.Context(), id, req.Status)
	if err != nil {
		handleServiceError(c.Ctx, err, "修改咨询状态失败")
		return
	}

	recordAudit(c.Ctx, c.Container, "update_status", "inquiries", id, req)
	response.Success(c.Ctx, inquiry)
}

// HandleGalleryFunc 返回一个处理相册及咨询请求的Gin处理函数
func HandleGalleryFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewGalleryController(ctx, container)

		switch method {
		case "getPublishedPhotos":
			controller.GetPhotos(true)
		case "getPhotos":
			controller.GetPhotos(false)
		case "uploadPhoto":
			controller.UploadPhoto()
		case "updatePhoto":
			controller.UpdatePhoto()
		case "deletePhoto":
			controller.DeletePhoto()
		case "submitInquiry":
			controller.SubmitInquiry()
		case "getInquiries":
			controller.GetInquiries()
		case "updateInquiryStatus":
			controller.UpdateInquiryStatus()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}
