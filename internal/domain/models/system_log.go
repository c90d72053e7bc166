package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog 管理员操作审计日志
type AuditLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ActorID   string         `gorm:"type:varchar(36);index" json:"actor_id"`
	ActorRole UserRole       `gorm:"type:varchar(20)" json:"actor_role"`
	Action    string         `gorm:"type:varchar(50);not null" json:"action"` // 如: create_unit, update_payment_status
	Target    string         `gorm:"type:varchar(50);index" json:"target"`    // 操作的表名
	RecordID  string         `gorm:"type:varchar(50)" json:"record_id"`
	Details   datatypes.JSON `json:"details,omitempty"`
	IPAddress string         `gorm:"type:varchar(45)" json:"ip_address"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// Notification 站内通知
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Title     string     `gorm:"type:varchar(200);not null" json:"title"`
	Message   string     `gorm:"type:text" json:"message"`
	Type      string     `gorm:"type:varchar(30)" json:"type"` // booking, payment, ticket, announcement, account
	Link      string     `gorm:"type:varchar(255)" json:"link"`
	IsRead    bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
