package models

import "time"

// ResidentStatus 居民状态
type ResidentStatus string

const (
	ResidentStatusPending  ResidentStatus = "pending"
	ResidentStatusActive   ResidentStatus = "active"
	ResidentStatusMovedOut ResidentStatus = "moved_out"
)

// Resident 居民档案，与 users 一对一，可选关联房源
type Resident struct {
	BaseModel
	UserID                string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	UnitID                *uint          `gorm:"index" json:"unit_id,omitempty"`
	PreferredUnitID       *uint          `json:"preferred_unit_id,omitempty"`
	FullName              string         `gorm:"type:varchar(100);not null" json:"full_name"`
	Phone                 string         `gorm:"type:varchar(20);not null" json:"phone"`
	DateOfBirth           *time.Time     `json:"date_of_birth,omitempty"`
	IDNumber              string         `gorm:"type:varchar(30)" json:"id_number"`
	Occupation            string         `gorm:"type:varchar(100)" json:"occupation"`
	EmergencyContactName  string         `gorm:"type:varchar(100)" json:"emergency_contact_name"`
	EmergencyContactPhone string         `gorm:"type:varchar(20)" json:"emergency_contact_phone"`
	MoveInDate            *time.Time     `json:"move_in_date,omitempty"`
	Occupants             int            `gorm:"default:1" json:"occupants"`
	Status                ResidentStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Unit *Unit `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
}
