package code

// HTTP状态码.
const (
	// StatusOK - 200: 成功.
	StatusOK = 200
	// StatusCreated - 201: 已创建.
	StatusCreated = 201
	// StatusBadRequest - 400: 请求参数错误.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: 未授权.
	StatusUnauthorized = 401
	// StatusForbidden - 403: 禁止访问.
	StatusForbidden = 403
	// StatusNotFound - 404: 资源不存在.
	StatusNotFound = 404
	// StatusConflict - 409: 资源冲突.
	StatusConflict = 409
	// StatusTooManyRequests - 429: 请求过多.
	StatusTooManyRequests = 429
	// StatusInternalServerError - 500: 服务器内部错误.
	StatusInternalServerError = 500
	// StatusServiceUnavailable - 503: 依赖服务不可用.
	StatusServiceUnavailable = 503
)

// 通用错误码 (100xxx).
const (
	// ErrSuccess - 200: 成功.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: 未知错误.
	ErrUnknown
	// ErrBind - 400: 请求参数绑定错误.
	ErrBind
	// ErrValidation - 400: 请求参数验证错误.
	ErrValidation
	// ErrTokenInvalid - 401: 令牌无效.
	ErrTokenInvalid
	// ErrTooManyRequests - 429: 请求频率过高.
	ErrTooManyRequests
	// ErrForbidden - 403: 权限不足.
	ErrForbidden
	// ErrNetwork - 503: 网络或依赖服务不可用.
	ErrNetwork
)

// 用户/认证相关错误码 (101xxx).
const (
	// ErrUserNotFound - 404: 用户不存在.
	ErrUserNotFound int = iota + 101000
	// ErrUserAlreadyExist - 409: 用户已存在（重复注册）.
	ErrUserAlreadyExist
	// ErrUserPasswordIncorrect - 401: 邮箱或密码错误.
	ErrUserPasswordIncorrect
	// ErrEmailNotVerified - 403: 邮箱未验证.
	ErrEmailNotVerified
	// ErrAccountDisabled - 403: 账号已停用.
	ErrAccountDisabled
	// ErrOTPInvalid - 400: 验证码错误或已过期.
	ErrOTPInvalid
	// ErrOTPRateLimited - 429: 验证码请求过于频繁.
	ErrOTPRateLimited
	// ErrWeakPassword - 400: 密码强度不足.
	ErrWeakPassword
)

// 住户相关错误码 (103xxx).
const (
	// ErrResidentNotFound - 404: 住户不存在.
	ErrResidentNotFound int = iota + 103000
	// ErrResidentAlreadyExist - 400: 住户已存在.
	ErrResidentAlreadyExist
	// ErrResidentNotActive - 403: 住户尚未入住.
	ErrResidentNotActive
)

// 数据库相关错误码 (105xxx).
const (
	// ErrDatabase - 500: 数据库错误.
	ErrDatabase int = iota + 105000
	// ErrRecordNotFound - 404: 记录不存在.
	ErrRecordNotFound
	// ErrUnknownTable - 400: 不支持的数据表.
	ErrUnknownTable
	// ErrInvalidColumn - 400: 非法的字段名.
	ErrInvalidColumn
)

// 房源相关错误码 (106xxx).
const (
	// ErrUnitNotFound - 404: 房源不存在.
	ErrUnitNotFound int = iota + 106000
	// ErrUnitAlreadyExist - 409: 房号已存在.
	ErrUnitAlreadyExist
	// ErrUnitNotAvailable - 409: 房源不可入住.
	ErrUnitNotAvailable
)

// 设施/预约相关错误码 (107xxx).
const (
	// ErrFacilityNotFound - 404: 设施不存在.
	ErrFacilityNotFound int = iota + 107000
	// ErrFacilityUnavailable - 400: 设施暂停开放.
	ErrFacilityUnavailable
	// ErrBookingNotFound - 404: 预约不存在.
	ErrBookingNotFound
	// ErrBookingConflict - 409: 时段已被预约.
	ErrBookingConflict
	// ErrBookingInvalidTime - 400: 预约时间不合法.
	ErrBookingInvalidTime
	// ErrInvalidStatusTransition - 400: 状态变更不合法.
	ErrInvalidStatusTransition
)

// 账单相关错误码 (108xxx).
const (
	// ErrPaymentNotFound - 404: 账单不存在.
	ErrPaymentNotFound int = iota + 108000
	// ErrPaymentNotPayable - 400: 账单当前不可支付.
	ErrPaymentNotPayable
	// ErrPaymentAmountMismatch - 400: 支付金额与账单不符.
	ErrPaymentAmountMismatch
)

// 工单相关错误码 (110xxx).
const (
	// ErrTicketNotFound - 404: 工单不存在.
	ErrTicketNotFound int = iota + 110000
	// ErrTicketClosed - 400: 工单已关闭.
	ErrTicketClosed
)

// 公告/内容相关错误码 (111xxx).
const (
	// ErrAnnouncementNotFound - 404: 公告不存在.
	ErrAnnouncementNotFound int = iota + 111000
	// ErrPhotoNotFound - 404: 图片不存在.
	ErrPhotoNotFound
	// ErrNotificationNotFound - 404: 通知不存在.
	ErrNotificationNotFound
)

// 存储相关错误码 (112xxx).
const (
	// ErrStorageUnavailable - 503: 对象存储未配置.
	ErrStorageUnavailable int = iota + 112000
	// ErrUploadFailed - 500: 上传失败.
	ErrUploadFailed
	// ErrFileTooLarge - 400: 文件过大.
	ErrFileTooLarge
)
