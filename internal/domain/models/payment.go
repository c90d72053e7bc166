package models

import "time"

// PaymentStatus 账单状态
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusOverdue   PaymentStatus = "overdue"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// ValidPaymentStatus 判断账单状态是否合法
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusOverdue, PaymentStatusCancelled:
		return true
	}
	return false
}

// Payable 账单是否可以支付
func (s PaymentStatus) Payable() bool {
	return s == PaymentStatusPending || s == PaymentStatusOverdue
}

// PaymentType 账单类型
type PaymentType string

const (
	PaymentTypeRent        PaymentType = "rent"
	PaymentTypeUtility     PaymentType = "utility"
	PaymentTypeMaintenance PaymentType = "maintenance"
	PaymentTypeFacility    PaymentType = "facility"
	PaymentTypeDeposit     PaymentType = "deposit"
	PaymentTypeOther       PaymentType = "other"
)

// ValidPaymentType 判断账单类型是否合法
func ValidPaymentType(t PaymentType) bool {
	switch t {
	case PaymentTypeRent, PaymentTypeUtility, PaymentTypeMaintenance, PaymentTypeFacility, PaymentTypeDeposit, PaymentTypeOther:
		return true
	}
	return false
}

// Payment 居民账单（发票）
type Payment struct {
	BaseModel
	InvoiceNumber     string        `gorm:"type:varchar(40);uniqueIndex;not null" json:"invoice_number"`
	ResidentID        uint          `gorm:"index;not null" json:"resident_id"`
	UnitID            *uint         `gorm:"index" json:"unit_id,omitempty"`
	Type              PaymentType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Description       string        `gorm:"type:varchar(255)" json:"description"`
	Amount            float64       `gorm:"type:decimal(12,2);not null" json:"amount"`
	DueDate           time.Time     `gorm:"index" json:"due_date"`
	Status            PaymentStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaidAt            *time.Time    `json:"paid_at,omitempty"`
	PeriodMonth       int           `json:"period_month,omitempty"`
	PeriodYear        int           `json:"period_year,omitempty"`
	FacilityBookingID *uint         `json:"facility_booking_id,omitempty"`

	// Relations
	Resident     *Resident            `gorm:"foreignKey:ResidentID" json:"resident,omitempty"`
	Unit         *Unit                `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Transactions []PaymentTransaction `gorm:"foreignKey:PaymentID" json:"transactions,omitempty"`
}

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodEWallet      PaymentMethod = "e_wallet"
	PaymentMethodCash         PaymentMethod = "cash"
)

// ValidPaymentMethod 判断支付方式是否合法
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCreditCard, PaymentMethodEWallet, PaymentMethodCash:
		return true
	}
	return false
}

// PaymentTransaction 支付流水
type PaymentTransaction struct {
	BaseModel
	PaymentID         uint          `gorm:"index;not null" json:"payment_id"`
	TransactionNumber string        `gorm:"type:varchar(40);uniqueIndex;not null" json:"transaction_number"`
	Amount            float64       `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method            PaymentMethod `gorm:"type:varchar(20);not null" json:"method"`
	Status            string        `gorm:"type:varchar(20);default:'success'" json:"status"` // success, failed, pending
	Reference         string        `gorm:"type:varchar(100)" json:"reference"`               // 银行流水号等外部凭证
	PaidBy            string        `gorm:"type:varchar(36)" json:"paid_by"`
}
