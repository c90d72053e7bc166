package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// 通用错误
var (
	ErrInvalidArgument = errors.New("参数不合法")
	ErrForbidden       = errors.New("无权操作该资源")
)

// 数据表访问错误
var (
	ErrUnknownTable   = errors.New("不支持的数据表")
	ErrInvalidColumn  = errors.New("非法的字段名")
	ErrFilterRequired = errors.New("更新或删除必须至少提供一个过滤条件")
	ErrEmptyValues    = errors.New("没有需要写入的字段")
)

// 认证相关错误
var (
	ErrInvalidCredentials    = errors.New("邮箱或密码错误")
	ErrEmailNotVerified      = errors.New("邮箱尚未验证")
	ErrAccountDisabled       = errors.New("账号已停用")
	ErrDuplicateRegistration = errors.New("该邮箱已注册")
	ErrUserNotFound          = errors.New("用户不存在")
	ErrWeakPassword          = errors.New("密码至少8位且需同时包含字母和数字")
	ErrTokenRevoked          = errors.New("令牌已失效")
	ErrNetwork               = errors.New("网络或依赖服务不可用")
)

// 验证码相关错误
var (
	ErrOTPInvalid         = errors.New("验证码错误")
	ErrOTPExpired         = errors.New("验证码已过期")
	ErrOTPRateLimited     = errors.New("验证码请求过于频繁")
	ErrOTPTooManyAttempts = errors.New("验证码尝试次数过多")
)

// 业务资源错误
var (
	ErrResidentNotFound        = errors.New("居民不存在")
	ErrResidentNotActive       = errors.New("居民尚未入住")
	ErrUnitNotFound            = errors.New("房源不存在")
	ErrUnitAlreadyExist        = errors.New("房号已存在")
	ErrUnitNotAvailable        = errors.New("房源不可入住")
	ErrFacilityNotFound        = errors.New("设施不存在")
	ErrFacilityUnavailable     = errors.New("设施暂停开放")
	ErrBookingNotFound         = errors.New("预约不存在")
	ErrBookingConflict         = errors.New("该时段已被预约")
	ErrBookingInvalidTime      = errors.New("预约时间不合法")
	ErrCapacityExceeded        = errors.New("人数超过设施容量")
	ErrInvalidStatusTransition = errors.New("状态变更不合法")
	ErrPaymentNotFound         = errors.New("账单不存在")
	ErrPaymentNotPayable       = errors.New("账单当前不可支付")
	ErrPaymentAmountMismatch   = errors.New("支付金额与账单金额不符")
	ErrTicketNotFound          = errors.New("工单不存在")
	ErrTicketClosed            = errors.New("工单已关闭")
	ErrAnnouncementNotFound    = errors.New("公告不存在")
	ErrPhotoNotFound           = errors.New("图片不存在")
	ErrNotificationNotFound    = errors.New("通知不存在")
	ErrInquiryNotFound         = errors.New("咨询记录不存在")
	ErrStorageUnavailable      = errors.New("对象存储未配置")
)

// FieldErrors 表单字段校验错误，键为字段名
type FieldErrors map[string]string

// Error 实现 error 接口，按字段名排序输出
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

// Unwrap 使 errors.Is(err, ErrInvalidArgument) 成立
func (fe FieldErrors) Unwrap() error {
	return ErrInvalidArgument
}

// StepError 注册向导某一步校验失败
type StepError struct {
	Step   int
	Fields FieldErrors
}

func (e *StepError) Error() string {
	return fmt.Sprintf("第%d步校验失败: %s", e.Step, e.Fields.Error())
}

func (e *StepError) Unwrap() error {
	return ErrInvalidArgument
}
