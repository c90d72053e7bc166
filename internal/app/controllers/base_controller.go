package controllers

import (
	"errors"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/middleware"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/utils"
)

// ErrorResponse 表示错误响应
type ErrorResponse struct {
	Code    int         `json:"code" example:"100003"`
	Message string      `json:"message" example:"请求参数验证错误"`
	Data    interface{} `json:"data"`
}

// 业务错误到错误码的映射，按顺序匹配
var serviceErrorCodes = []struct {
	err  error
	code int
}{
	{services.ErrFileTooLarge, code.ErrFileTooLarge},
	{services.ErrForbidden, code.ErrForbidden},
	{services.ErrUnknownTable, code.ErrUnknownTable},
	{services.ErrInvalidColumn, code.ErrInvalidColumn},
	{services.ErrFilterRequired, code.ErrValidation},
	{services.ErrEmptyValues, code.ErrValidation},

	{services.ErrInvalidCredentials, code.ErrUserPasswordIncorrect},
	{services.ErrEmailNotVerified, code.ErrEmailNotVerified},
	{services.ErrAccountDisabled, code.ErrAccountDisabled},
	{services.ErrDuplicateRegistration, code.ErrUserAlreadyExist},
	{services.ErrUserNotFound, code.ErrUserNotFound},
	{services.ErrWeakPassword, code.ErrWeakPassword},
	{services.ErrTokenRevoked, code.ErrTokenInvalid},
	{services.ErrNetwork, code.ErrNetwork},

	{services.ErrOTPInvalid, code.ErrOTPInvalid},
	{services.ErrOTPExpired, code.ErrOTPInvalid},
	{services.ErrOTPTooManyAttempts, code.ErrOTPInvalid},
	{services.ErrOTPRateLimited, code.ErrOTPRateLimited},

	{services.ErrResidentNotFound, code.ErrResidentNotFound},
	{services.ErrResidentNotActive, code.ErrResidentNotActive},
	{services.ErrUnitNotFound, code.ErrUnitNotFound},
	{services.ErrUnitAlreadyExist, code.ErrUnitAlreadyExist},
	{services.ErrUnitNotAvailable, code.ErrUnitNotAvailable},

	{services.ErrFacilityNotFound, code.ErrFacilityNotFound},
	{services.ErrFacilityUnavailable, code.ErrFacilityUnavailable},
	{services.ErrBookingNotFound, code.ErrBookingNotFound},
	{services.ErrBookingConflict, code.ErrBookingConflict},
	{services.ErrBookingInvalidTime, code.ErrBookingInvalidTime},
	{services.ErrCapacityExceeded, code.ErrValidation},
	{services.ErrInvalidStatusTransition, code.ErrInvalidStatusTransition},

	{services.ErrPaymentNotFound, code.ErrPaymentNotFound},
	{services.ErrPaymentNotPayable, code.ErrPaymentNotPayable},
	{services.ErrPaymentAmountMismatch, code.ErrPaymentAmountMismatch},

	{services.ErrTicketNotFound, code.ErrTicketNotFound},
	{services.ErrTicketClosed, code.ErrTicketClosed},
	{services.ErrAnnouncementNotFound, code.ErrAnnouncementNotFound},
	{services.ErrPhotoNotFound, code.ErrPhotoNotFound},
	{services.ErrNotificationNotFound, code.ErrNotificationNotFound},
	{services.ErrInquiryNotFound, code.ErrRecordNotFound},
	{services.ErrStorageUnavailable, code.ErrStorageUnavailable},

	{services.ErrInvalidArgument, code.ErrValidation},
	{gorm.ErrRecordNotFound, code.ErrRecordNotFound},
}

// handleServiceError 把业务层错误转换为统一响应，未识别的错误记录日志后返回 fallback
func handleServiceError(ctx *gin.Context, err error, fallback string) {
	var stepErr *services.StepError
	if errors.As(err, &stepErr) {
		response.FailWithMessage(ctx, code.ErrValidation, stepErr.Error(), gin.H{
			"step":   stepErr.Step,
			"fields": stepErr.Fields,
		})
		return
	}
	var fieldErrs services.FieldErrors
	if errors.As(err, &fieldErrs) {
		response.FailWithMessage(ctx, code.ErrValidation, code.GetMessage(code.ErrValidation), gin.H{"fields": fieldErrs})
		return
	}

	if errCode, ok := lookupErrorCode(err); ok {
		response.FailWithMessage(ctx, errCode, err.Error(), nil)
		return
	}

	logger.Error("%s: %v", fallback, err)
	response.FailWithMessage(ctx, code.ErrDatabase, fallback, nil)
}

func lookupErrorCode(err error) (int, bool) {
	for _, m := range serviceErrorCodes {
		if errors.Is(err, m.err) {
			return m.code, true
		}
	}
	return 0, false
}

// parseID 解析路径中的数字ID
func parseID(ctx *gin.Context, name, message string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.ParamError(ctx, message)
		return 0, false
	}
	return uint(id), true
}

// parsePage 解析分页参数
func parsePage(ctx *gin.Context) (int, int) {
	return utils.ParsePagination(ctx.DefaultQuery("page", "1"), ctx.DefaultQuery("page_size", "10"))
}

// queryUint 解析可选的数字查询参数
func queryUint(ctx *gin.Context, name string) *uint {
	value := ctx.Query(name)
	if value == "" {
		return nil
	}
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return nil
	}
	id := uint(n)
	return &id
}

// queryBool 解析可选的布尔查询参数
func queryBool(ctx *gin.Context, name string) *bool {
	value := ctx.Query(name)
	if value == "" {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil
	}
	return &b
}

// actorFrom 当前请求的操作者
func actorFrom(ctx *gin.Context) services.Actor {
	return services.Actor{
		UserID:    middleware.CurrentUserID(ctx),
		Role:      middleware.CurrentRole(ctx),
		IPAddress: ctx.ClientIP(),
	}
}

// currentResident 查询当前登录用户的居民档案
func currentResident(ctx *gin.Context, c *container.ServiceContainer) (*models.Resident, bool) {
	residentService := c.GetService("resident").(services.InterfaceResidentService)
	resident, err := residentService.GetResidentByUserID(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err, "获取居民信息失败")
		return nil, false
	}
	return resident, true
}

// recordAudit 记录管理员操作
func recordAudit(ctx *gin.Context, c *container.ServiceContainer, action, target string, recordID interface{}, details interface{}) {
	auditService := c.GetService("audit").(services.InterfaceAuditService)
	auditService.Record(ctx.Request.Context(), actorFrom(ctx), action, target, toString(recordID), details)
}

func toString(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case uint:
		return strconv.FormatUint(uint64(id), 10)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	default:
		return ""
	}
}

// uploadedFile 打开表单中的上传文件，调用方负责关闭
type uploadedFile struct {
	services.UploadFile
	file multipart.File
}

func (u *uploadedFile) Close() {
	if u.file != nil {
		u.file.Close()
	}
}

// readUpload 读取 multipart 表单中的文件字段
func readUpload(ctx *gin.Context, field string) (*uploadedFile, bool) {
	header, err := ctx.FormFile(field)
	if err != nil {
		response.ParamError(ctx, "请选择要上传的文件")
		return nil, false
	}
	if header.Size > services.MaxUploadSize {
		response.Fail(ctx, code.ErrFileTooLarge, nil)
		return nil, false
	}
	file, err := header.Open()
	if err != nil {
		response.Fail(ctx, code.ErrUploadFailed, nil)
		return nil, false
	}
	return &uploadedFile{
		UploadFile: services.UploadFile{
			Reader:      file,
			Size:        header.Size,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
		},
		file: file,
	}, true
}

// propertyLocation 物业所在时区，日期参数按该时区解析
func propertyLocation(c *container.ServiceContainer) *time.Location {
	cfg, _ := c.GetService("config").(*config.Config)
	return cfg.Location()
}

// parseDate 解析 YYYY-MM-DD 格式的日期
func parseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, loc)
}

// 公开接口缓存的路径前缀，管理员修改数据后清除
const (
	publicUnitsPath         = "/api/public/units"
	publicFacilitiesPath    = "/api/public/facilities"
	publicGalleryPath       = "/api/public/gallery"
	publicAnnouncementsPath = "/api/public/announcements"
)

// purgePublicCache 清除公开接口的响应缓存
func purgePublicCache(prefixes ...string) {
	for _, prefix := range prefixes {
		middleware.PurgeCacheByPrefix(prefix)
	}
}
