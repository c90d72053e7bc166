package models

import "gorm.io/datatypes"

// UnitStatus 房源状态
type UnitStatus string

const (
	UnitStatusAvailable   UnitStatus = "available"
	UnitStatusOccupied    UnitStatus = "occupied"
	UnitStatusMaintenance UnitStatus = "maintenance"
	UnitStatusReserved    UnitStatus = "reserved"
)

// ValidUnitStatus 判断房源状态是否合法
func ValidUnitStatus(s UnitStatus) bool {
	switch s {
	case UnitStatusAvailable, UnitStatusOccupied, UnitStatusMaintenance, UnitStatusReserved:
		return true
	}
	return false
}

// Unit 可出租的公寓房源
type Unit struct {
	BaseModel
	UnitNumber  string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"unit_number"` // 如 "A-1203"
	Name        string         `gorm:"type:varchar(100);not null" json:"name"`
	Type        string         `gorm:"type:varchar(20);index" json:"type"` // studio, 1br, 2br, 3br, penthouse
	Building    string         `gorm:"type:varchar(50)" json:"building"`
	Floor       int            `json:"floor"`
	Bedrooms    int            `json:"bedrooms"`
	Bathrooms   int            `json:"bathrooms"`
	AreaSqm     float64        `gorm:"type:decimal(8,2)" json:"area_sqm"`
	MonthlyRent float64        `gorm:"type:decimal(12,2)" json:"monthly_rent"`
	Deposit     float64        `gorm:"type:decimal(12,2)" json:"deposit"`
	Status      UnitStatus     `gorm:"type:varchar(20);default:'available';index" json:"status"`
	Description string         `gorm:"type:text" json:"description"`
	Amenities   datatypes.JSON `json:"amenities,omitempty"`
	IsFeatured  bool           `gorm:"default:false" json:"is_featured"`

	// Relations
	Photos    []UnitPhoto `gorm:"foreignKey:UnitID" json:"photos,omitempty"`
	Residents []Resident  `gorm:"foreignKey:UnitID" json:"residents,omitempty"`
}

// UnitPhoto 房源图片
type UnitPhoto struct {
	BaseModel
	UnitID    uint   `gorm:"index;not null" json:"unit_id"`
	ObjectKey string `gorm:"type:varchar(255);not null" json:"object_key"`
	URL       string `gorm:"type:varchar(500)" json:"url"`
	Caption   string `gorm:"type:varchar(200)" json:"caption"`
	SortOrder int    `gorm:"default:0" json:"sort_order"`
	IsPrimary bool   `gorm:"default:false" json:"is_primary"`
}
