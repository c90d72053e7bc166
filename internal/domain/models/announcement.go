package models

import "time"

// Announcement 物业公告
type Announcement struct {
	BaseModel
	Title       string     `gorm:"type:varchar(200);not null" json:"title"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	Category    string     `gorm:"type:varchar(20);default:'general';index" json:"category"` // general, maintenance, event, emergency, billing
	Priority    string     `gorm:"type:varchar(20);default:'normal'" json:"priority"`        // normal, important, urgent
	IsPublished bool       `gorm:"default:false;index" json:"is_published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	AuthorID    string     `gorm:"type:varchar(36)" json:"author_id"`

	// 仅用于居民查询时返回是否已读
	IsRead bool `gorm:"-" json:"is_read"`
}

// AnnouncementRead 公告已读记录
type AnnouncementRead struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AnnouncementID uint      `gorm:"uniqueIndex:idx_announcement_user;not null" json:"announcement_id"`
	UserID         string    `gorm:"type:varchar(36);uniqueIndex:idx_announcement_user;not null" json:"user_id"`
	ReadAt         time.Time `json:"read_at"`
}

// GalleryPhoto 官网相册图片
type GalleryPhoto struct {
	BaseModel
	Title       string `gorm:"type:varchar(200)" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"type:varchar(50);index" json:"category"` // exterior, interior, facility, event
	ObjectKey   string `gorm:"type:varchar(255);not null" json:"object_key"`
	URL         string `gorm:"type:varchar(500)" json:"url"`
	SortOrder   int    `gorm:"default:0" json:"sort_order"`
	IsPublished bool   `gorm:"default:true" json:"is_published"`
}

// Inquiry 官网咨询/预约看房表单
type Inquiry struct {
	BaseModel
	Name          string     `gorm:"type:varchar(100);not null" json:"name"`
	Email         string     `gorm:"type:varchar(100);not null" json:"email"`
	Phone         string     `gorm:"type:varchar(20)" json:"phone"`
	UnitID        *uint      `json:"unit_id,omitempty"`
	Message       string     `gorm:"type:text" json:"message"`
	PreferredDate *time.Time `json:"preferred_date,omitempty"`
	Status        string     `gorm:"type:varchar(20);default:'new';index" json:"status"` // new, contacted, closed
}
