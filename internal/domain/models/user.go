package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserRole 账号角色
type UserRole string

const (
	RoleResident UserRole = "resident"
	RoleAdmin    UserRole = "admin"
)

// UserStatus 账号状态
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// User 登录账号，居民和管理员共用
type User struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email         string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Password      string     `gorm:"type:varchar(100);not null" json:"-"` // Password not exposed in JSON
	Role          UserRole   `gorm:"type:varchar(20);default:'resident';index" json:"role"`
	Status        UserStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	EmailVerified bool       `gorm:"default:false" json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Relations
	Resident *Resident `gorm:"foreignKey:UserID" json:"resident,omitempty"`
	Admin    *Admin    `gorm:"foreignKey:UserID" json:"admin,omitempty"`
}

// BeforeCreate 是一个GORM钩子，在创建新记录前生成UUID主键
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsActive 账号是否可登录
func (u *User) IsActive() bool {
	return u.Status == "" || u.Status == UserStatusActive
}

// Admin 管理员档案（与 users 一对一）
type Admin struct {
	BaseModel
	UserID      string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	FullName    string         `gorm:"type:varchar(100);not null" json:"full_name"`
	Phone       string         `gorm:"type:varchar(20)" json:"phone"`
	Position    string         `gorm:"type:varchar(50)" json:"position"`
	Permissions datatypes.JSON `json:"permissions,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// UserSession 登录会话，用于注销时吊销令牌
type UserSession struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"` // 即 JWT 的 jti
	UserID    string     `gorm:"type:varchar(36);index;not null" json:"user_id"`
	UserAgent string     `gorm:"type:varchar(255)" json:"user_agent"`
	IPAddress string     `gorm:"type:varchar(45)" json:"ip_address"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// OTPPurpose 验证码用途
type OTPPurpose string

const (
	OTPPurposeVerifyEmail   OTPPurpose = "verify_email"
	OTPPurposeResetPassword OTPPurpose = "reset_password"
)

// OTPCode Redis 不可用时的验证码备用存储
type OTPCode struct {
	BaseModel
	Email      string     `gorm:"type:varchar(100);index;not null" json:"email"`
	Purpose    OTPPurpose `gorm:"type:varchar(30);not null" json:"purpose"`
	CodeHash   string     `gorm:"type:varchar(100);not null" json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Attempts   int        `gorm:"default:0" json:"attempts"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}
