package models

import "time"

// FacilityStatus 公共设施状态
type FacilityStatus string

const (
	FacilityStatusActive      FacilityStatus = "active"
	FacilityStatusInactive    FacilityStatus = "inactive"
	FacilityStatusMaintenance FacilityStatus = "maintenance"
)

// Facility 可预约的公共设施（泳池、健身房、会议室等）
type Facility struct {
	BaseModel
	Name             string         `gorm:"type:varchar(100);not null" json:"name"`
	Description      string         `gorm:"type:text" json:"description"`
	Location         string         `gorm:"type:varchar(100)" json:"location"`
	Capacity         int            `gorm:"default:1" json:"capacity"`
	OpenTime         string         `gorm:"type:varchar(5);default:'06:00'" json:"open_time"`  // HH:MM
	CloseTime        string         `gorm:"type:varchar(5);default:'22:00'" json:"close_time"` // HH:MM
	HourlyRate       float64        `gorm:"type:decimal(12,2);default:0" json:"hourly_rate"`
	RequiresApproval bool           `gorm:"default:false" json:"requires_approval"`
	Status           FacilityStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	ImageURL         string         `gorm:"type:varchar(500)" json:"image_url"`
}

// BookingStatus 预约状态
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// bookingTransitions 允许的预约状态流转
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusCompleted},
}

// CanTransitionTo 判断预约能否从当前状态变更为目标状态
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// FacilityBooking 公共设施预约
type FacilityBooking struct {
	BaseModel
	BookingNumber string        `gorm:"type:varchar(40);uniqueIndex;not null" json:"booking_number"`
	FacilityID    uint          `gorm:"index;not null" json:"facility_id"`
	ResidentID    uint          `gorm:"index;not null" json:"resident_id"`
	StartTime     time.Time     `gorm:"index" json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Attendees     int           `gorm:"default:1" json:"attendees"`
	Purpose       string        `gorm:"type:varchar(255)" json:"purpose"`
	Status        BookingStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	TotalFee      float64       `gorm:"type:decimal(12,2);default:0" json:"total_fee"`
	CancelReason  string        `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	PaymentID     *uint         `json:"payment_id,omitempty"`

	// Relations
	Facility *Facility `gorm:"foreignKey:FacilityID" json:"facility,omitempty"`
	Resident *Resident `gorm:"foreignKey:ResidentID" json:"resident,omitempty"`
}
