package models

import "time"

// TicketStatus 工单状态
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusInProgress: {TicketStatusResolved, TicketStatusClosed, TicketStatusOpen},
	TicketStatusResolved:   {TicketStatusClosed, TicketStatusOpen},
	TicketStatusClosed:     {TicketStatusOpen},
}

// CanTransitionTo 判断工单能否从当前状态变更为目标状态
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	for _, allowed := range ticketTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TicketCategories 工单分类
var TicketCategories = []string{"plumbing", "electrical", "appliance", "structural", "cleaning", "security", "noise", "other"}

// TicketPriorities 工单优先级
var TicketPriorities = []string{"low", "medium", "high", "urgent"}

// Ticket 报修/投诉工单
type Ticket struct {
	BaseModel
	TicketNumber string       `gorm:"type:varchar(40);uniqueIndex;not null" json:"ticket_number"`
	ResidentID   uint         `gorm:"index;not null" json:"resident_id"`
	UnitID       *uint        `gorm:"index" json:"unit_id,omitempty"`
	Title        string       `gorm:"type:varchar(200);not null" json:"title"`
	Description  string       `gorm:"type:text;not null" json:"description"`
	Category     string       `gorm:"type:varchar(30);not null;index" json:"category"`
	Priority     string       `gorm:"type:varchar(20);default:'medium';index" json:"priority"`
	Status       TicketStatus `gorm:"type:varchar(20);default:'open';index" json:"status"`
	AssignedTo   string       `gorm:"type:varchar(100)" json:"assigned_to"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`

	// Relations
	Resident    *Resident          `gorm:"foreignKey:ResidentID" json:"resident,omitempty"`
	Unit        *Unit              `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Updates     []TicketUpdate     `gorm:"foreignKey:TicketID" json:"updates,omitempty"`
	Attachments []TicketAttachment `gorm:"foreignKey:TicketID" json:"attachments,omitempty"`
}

// TicketUpdate 工单处理记录（对话线程）
type TicketUpdate struct {
	BaseModel
	TicketID   uint         `gorm:"index;not null" json:"ticket_id"`
	AuthorID   string       `gorm:"type:varchar(36);not null" json:"author_id"`
	AuthorRole UserRole     `gorm:"type:varchar(20)" json:"author_role"`
	Message    string       `gorm:"type:text" json:"message"`
	OldStatus  TicketStatus `gorm:"type:varchar(20)" json:"old_status,omitempty"`
	NewStatus  TicketStatus `gorm:"type:varchar(20)" json:"new_status,omitempty"`
	IsInternal bool         `gorm:"default:false" json:"is_internal"` // 仅管理员可见的备注
}

// TicketAttachment 工单附件
type TicketAttachment struct {
	BaseModel
	TicketID    uint   `gorm:"index;not null" json:"ticket_id"`
	UpdateID    *uint  `json:"update_id,omitempty"`
	ObjectKey   string `gorm:"type:varchar(255);not null" json:"object_key"`
	URL         string `gorm:"type:varchar(500)" json:"url"`
	FileName    string `gorm:"type:varchar(255)" json:"file_name"`
	ContentType string `gorm:"type:varchar(100)" json:"content_type"`
	Size        int64  `json:"size"`
}
