package code

// 错误码消息映射
var codeMessageMap = map[int]string{
	// 通用错误码
	ErrSuccess:         "成功",
	ErrUnknown:         "未知错误",
	ErrBind:            "请求参数绑定错误",
	ErrValidation:      "请求参数验证错误",
	ErrTokenInvalid:    "无效的认证令牌",
	ErrTooManyRequests: "请求频率过高，请稍后再试",
	ErrForbidden:       "权限不足",
	ErrNetwork:         "网络连接失败，请检查网络后重试",

	// 用户/认证相关错误码
	ErrUserNotFound:          "用户不存在",
	ErrUserAlreadyExist:      "该邮箱已注册，请直接登录",
	ErrUserPasswordIncorrect: "邮箱或密码错误",
	ErrEmailNotVerified:      "邮箱尚未验证，请先完成邮箱验证",
	ErrAccountDisabled:       "账号已停用，请联系物业管理员",
	ErrOTPInvalid:            "验证码错误或已过期",
	ErrOTPRateLimited:        "验证码请求过于频繁，请稍后再试",
	ErrWeakPassword:          "密码至少8位，且需同时包含字母和数字",

	// 住户相关错误码
	ErrResidentNotFound:     "住户不存在",
	ErrResidentAlreadyExist: "住户已存在",
	ErrResidentNotActive:    "住户尚未入住",

	// 数据库相关错误码
	ErrDatabase:       "数据库错误",
	ErrRecordNotFound: "记录不存在",
	ErrUnknownTable:   "不支持的数据表",
	ErrInvalidColumn:  "非法的字段名",

	// 房源相关错误码
	ErrUnitNotFound:     "房源不存在",
	ErrUnitAlreadyExist: "房号已存在",
	ErrUnitNotAvailable: "房源当前不可入住",

	// 设施/预约相关错误码
	ErrFacilityNotFound:        "设施不存在",
	ErrFacilityUnavailable:     "设施暂停开放",
	ErrBookingNotFound:         "预约不存在",
	ErrBookingConflict:         "该时段已被预约",
	ErrBookingInvalidTime:      "预约时间不合法",
	ErrInvalidStatusTransition: "状态变更不合法",

	// 账单相关错误码
	ErrPaymentNotFound:       "账单不存在",
	ErrPaymentNotPayable:     "账单当前不可支付",
	ErrPaymentAmountMismatch: "支付金额与账单金额不符",

	// 工单相关错误码
	ErrTicketNotFound: "工单不存在",
	ErrTicketClosed:   "工单已关闭",

	// 公告/内容相关错误码
	ErrAnnouncementNotFound: "公告不存在",
	ErrPhotoNotFound:        "图片不存在",
	ErrNotificationNotFound: "通知不存在",

	// 存储相关错误码
	ErrStorageUnavailable: "文件存储服务未配置",
	ErrUploadFailed:       "文件上传失败",
	ErrFileTooLarge:       "文件大小超出限制",
}

// 错误码HTTP状态码映射
var codeStatusMap = map[int]int{
	// 通用错误码
	ErrSuccess:         StatusOK,
	ErrUnknown:         StatusInternalServerError,
	ErrBind:            StatusBadRequest,
	ErrValidation:      StatusBadRequest,
	ErrTokenInvalid:    StatusUnauthorized,
	ErrTooManyRequests: StatusTooManyRequests,
	ErrForbidden:       StatusForbidden,
	ErrNetwork:         StatusServiceUnavailable,

	// 用户/认证相关错误码
	ErrUserNotFound:          StatusNotFound,
	ErrUserAlreadyExist:      StatusConflict,
	ErrUserPasswordIncorrect: StatusUnauthorized,
	ErrEmailNotVerified:      StatusForbidden,
	ErrAccountDisabled:       StatusForbidden,
	ErrOTPInvalid:            StatusBadRequest,
	ErrOTPRateLimited:        StatusTooManyRequests,
	ErrWeakPassword:          StatusBadRequest,

	// 住户相关错误码
	ErrResidentNotFound:     StatusNotFound,
	ErrResidentAlreadyExist: StatusBadRequest,
	ErrResidentNotActive:    StatusForbidden,

	// 数据库相关错误码
	ErrDatabase:       StatusInternalServerError,
	ErrRecordNotFound: StatusNotFound,
	ErrUnknownTable:   StatusBadRequest,
	ErrInvalidColumn:  StatusBadRequest,

	// 房源相关错误码
	ErrUnitNotFound:     StatusNotFound,
	ErrUnitAlreadyExist: StatusConflict,
	ErrUnitNotAvailable: StatusConflict,

	// 设施/预约相关错误码
	ErrFacilityNotFound:        StatusNotFound,
	ErrFacilityUnavailable:     StatusBadRequest,
	ErrBookingNotFound:         StatusNotFound,
	ErrBookingConflict:         StatusConflict,
	ErrBookingInvalidTime:      StatusBadRequest,
	ErrInvalidStatusTransition: StatusBadRequest,

	// 账单相关错误码
	ErrPaymentNotFound:       StatusNotFound,
	ErrPaymentNotPayable:     StatusBadRequest,
	ErrPaymentAmountMismatch: StatusBadRequest,

	// 工单相关错误码
	ErrTicketNotFound: StatusNotFound,
	ErrTicketClosed:   StatusBadRequest,

	// 公告/内容相关错误码
	ErrAnnouncementNotFound: StatusNotFound,
	ErrPhotoNotFound:        StatusNotFound,
	ErrNotificationNotFound: StatusNotFound,

	// 存储相关错误码
	ErrStorageUnavailable: StatusServiceUnavailable,
	ErrUploadFailed:       StatusInternalServerError,
	ErrFileTooLarge:       StatusBadRequest,
}

// GetMessage 获取错误码对应的消息
func GetMessage(code int) string {
	if msg, ok := codeMessageMap[code]; ok {
		return msg
	}
	return "未知错误"
}

// GetStatus 获取错误码对应的HTTP状态码
func GetStatus(code int) int {
	if status, ok := codeStatusMap[code]; ok {
		return status
	}
	return StatusInternalServerError
}
