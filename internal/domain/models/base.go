package models

import "time"

// BaseModel 所有业务表共享的主键和时间戳字段
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllModels 返回需要自动迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Unit{},
		&UnitPhoto{},
		&Resident{},
		&Admin{},
		&Facility{},
		&FacilityBooking{},
		&Payment{},
		&PaymentTransaction{},
		&Ticket{},
		&TicketUpdate{},
		&TicketAttachment{},
		&Announcement{},
		&AnnouncementRead{},
		&GalleryPhoto{},
		&Inquiry{},
		&AuditLog{},
		&Notification{},
		&UserSession{},
		&OTPCode{},
	}
}
