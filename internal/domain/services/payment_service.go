package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/utils"
)

// PaymentFilter 账单列表筛选条件
type PaymentFilter struct {
	ResidentID *uint
	Status     models.PaymentStatus
	Type       models.PaymentType
}

// PayRequest 居民支付请求
type PayRequest struct {
	Amount    float64              `json:"amount" binding:"required" example:"3500000"`
	Method    models.PaymentMethod `json:"method" binding:"required" example:"bank_transfer"`
	Reference string               `json:"reference" example:"BCA-20300101-001"`
}

// BulkRentResult 批量生成月租账单的结果
type BulkRentResult struct {
	PeriodYear  int              `json:"period_year"`
	PeriodMonth int              `json:"period_month"`
	Created     int              `json:"created"`
	Skipped     int              `json:"skipped"`
	Invoices    []models.Payment `json:"invoices"`
}

// PaymentSummary 居民账单汇总
type PaymentSummary struct {
	Outstanding  float64         `json:"outstanding"`
	OverdueCount int64           `json:"overdue_count"`
	PaidThisYear float64         `json:"paid_this_year"`
	NextDue      *models.Payment `json:"next_due,omitempty"`
}

// InterfacePaymentService 账单服务接口
type InterfacePaymentService interface {
	ListPayments(ctx context.Context, filter PaymentFilter, page, pageSize int) ([]models.Payment, int64, error)
	GetPayment(ctx context.Context, id uint) (*models.Payment, error)
	GetResidentPayment(ctx context.Context, residentID, id uint) (*models.Payment, error)
	CreateInvoice(ctx context.Context, payment *models.Payment) error
	GenerateMonthlyRent(ctx context.Context, year, month, dueDay int) (*BulkRentResult, error)
	UpdateStatus(ctx context.Context, id uint, status models.PaymentStatus) (*models.Payment, error)
	MarkOverdue(ctx context.Context) (int64, error)
	Pay(ctx context.Context, residentID, id uint, req PayRequest, paidBy string) (*models.Payment, error)
	Summary(ctx context.Context, residentID uint) (*PaymentSummary, error)
}

// PaymentService 账单服务
type PaymentService struct {
	DB            *gorm.DB
	Config        *config.Config
	Hub           *realtime.Hub
	Notifications InterfaceNotificationService
	Now           func() time.Time
}

// NewPaymentService 创建账单服务
func NewPaymentService(db *gorm.DB, cfg *config.Config, hub *realtime.Hub, notifications InterfaceNotificationService) InterfacePaymentService {
	return &PaymentService{DB: db, Config: cfg, Hub: hub, Notifications: notifications, Now: time.Now}
}

// 1 ListPayments 分页查询账单
func (s *PaymentService) ListPayments(ctx context.Context, filter PaymentFilter, page, pageSize int) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	query := s.DB.WithContext(ctx).Model(&models.Payment{})
	if filter.ResidentID != nil {
		query = query.Where("resident_id = ?", *filter.ResidentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Preload("Resident").Preload("Unit").
		Order("due_date DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// 2 GetPayment 账单详情（含支付流水）
func (s *PaymentService) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.DB.WithContext(ctx).
		Preload("Resident").Preload("Unit").
		Preload("Transactions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// 3 GetResidentPayment 居民只能查看自己的账单
func (s *PaymentService) GetResidentPayment(ctx context.Context, residentID, id uint) (*models.Payment, error) {
	payment, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.ResidentID != residentID {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// 4 CreateInvoice 管理员开具账单
func (s *PaymentService) CreateInvoice(ctx context.Context, payment *models.Payment) error {
	if !models.ValidPaymentType(payment.Type) {
		return fmt.Errorf("%w: 账单类型无效", ErrInvalidArgument)
	}
	if payment.Amount <= 0 {
		return fmt.Errorf("%w: 金额必须大于0", ErrInvalidArgument)
	}
	if payment.DueDate.IsZero() {
		return fmt.Errorf("%w: 缺少到期日", ErrInvalidArgument)
	}

	var resident models.Resident
	if err := s.DB.WithContext(ctx).First(&resident, payment.ResidentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResidentNotFound
		}
		return err
	}
	if payment.UnitID == nil {
		payment.UnitID = resident.UnitID
	}
	if err := createInvoice(ctx, s.DB, s.Hub, payment); err != nil {
		return err
	}
	s.notifyInvoice(ctx, payment)
	return nil
}

// 5 GenerateMonthlyRent 为所有已入住房源的在住居民生成指定月份的租金账单，已存在的跳过
func (s *PaymentService) GenerateMonthlyRent(ctx context.Context, year, month, dueDay int) (*BulkRentResult, error) {
	if month < 1 || month > 12 || year < 2000 {
		return nil, fmt.Errorf("%w: 账期无效", ErrInvalidArgument)
	}
	if dueDay < 1 || dueDay > 28 {
		dueDay = 5
	}

	occupied := s.DB.WithContext(ctx).Model(&models.Unit{}).Select("id").Where("status = ?", models.UnitStatusOccupied)
	var residents []models.Resident
	if err := s.DB.WithContext(ctx).Preload("Unit").
		Where("status = ? AND unit_id IN (?)", models.ResidentStatusActive, occupied).
		Order("id ASC").
		Find(&residents).Error; err != nil {
		return nil, err
	}

	result := &BulkRentResult{PeriodYear: year, PeriodMonth: month, Invoices: []models.Payment{}}
	dueDate := time.Date(year, time.Month(month), dueDay, 0, 0, 0, 0, time.UTC)
	for _, resident := range residents {
		if resident.Unit == nil {
			continue
		}
		var existing int64
		if err := s.DB.WithContext(ctx).Model(&models.Payment{}).
			Where("resident_id = ? AND unit_id = ? AND type = ? AND period_year = ? AND period_month = ? AND status <> ?",
				resident.ID, *resident.UnitID, models.PaymentTypeRent, year, month, models.PaymentStatusCancelled).
			Count(&existing).Error; err != nil {
			return nil, err
		}
		if existing > 0 {
			result.Skipped++
			continue
		}

		payment := &models.Payment{
			ResidentID:  resident.ID,
			UnitID:      resident.UnitID,
			Type:        models.PaymentTypeRent,
			Description: fmt.Sprintf("%s %04d-%02d 月租", resident.Unit.UnitNumber, year, month),
			Amount:      resident.Unit.MonthlyRent,
			DueDate:     dueDate,
			PeriodYear:  year,
			PeriodMonth: month,
		}
		if err := createInvoice(ctx, s.DB, s.Hub, payment); err != nil {
			logger.Error("生成居民 %d 的月租账单失败: %v", resident.ID, err)
			continue
		}
		s.notifyInvoice(ctx, payment)
		result.Created++
		result.Invoices = append(result.Invoices, *payment)
	}
	logger.Info("生成 %04d-%02d 月租账单: 新建 %d, 跳过 %d", year, month, result.Created, result.Skipped)
	return result, nil
}

// 6 UpdateStatus 管理员修改账单状态
func (s *PaymentService) UpdateStatus(ctx context.Context, id uint, status models.PaymentStatus) (*models.Payment, error) {
	if !models.ValidPaymentStatus(status) {
		return nil, fmt.Errorf("%w: 账单状态无效", ErrInvalidArgument)
	}
	payment, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusPaid && status != models.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: 已支付账单不能修改状态", ErrInvalidStatusTransition)
	}

	updates := map[string]interface{}{"status": status}
	if status == models.PaymentStatusPaid {
		updates["paid_at"] = s.now()
	}
	if err := s.DB.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	updated, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	publishChange(s.Hub, "payments", realtime.EventUpdate, updated)
	return updated, nil
}

// 7 MarkOverdue 把已过到期日的待支付账单标记为逾期
func (s *PaymentService) MarkOverdue(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Payment{}).
		Where("status = ? AND due_date < ?", models.PaymentStatusPending, s.now()).
		Updates(map[string]interface{}{"status": models.PaymentStatusOverdue, "updated_at": s.now()})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		logger.Info("已将 %d 张账单标记为逾期", res.RowsAffected)
		if s.Hub != nil {
			s.Hub.Publish(realtime.ChangeEvent{
				Table:   "payments",
				Type:    realtime.EventUpdate,
				Filters: map[string]interface{}{"status": models.PaymentStatusOverdue},
			})
		}
	}
	return res.RowsAffected, nil
}

// 8 Pay 先写入支付流水，再把账单置为已支付，两次写入互相独立
func (s *PaymentService) Pay(ctx context.Context, residentID, id uint, req PayRequest, paidBy string) (*models.Payment, error) {
	payment, err := s.GetResidentPayment(ctx, residentID, id)
	if err != nil {
		return nil, err
	}
	if !payment.Status.Payable() {
		return nil, ErrPaymentNotPayable
	}
	if !models.ValidPaymentMethod(req.Method) {
		return nil, fmt.Errorf("%w: 支付方式无效", ErrInvalidArgument)
	}
	if math.Abs(req.Amount-payment.Amount) >= 0.005 {
		return nil, ErrPaymentAmountMismatch
	}

	txn := &models.PaymentTransaction{
		PaymentID:         payment.ID,
		TransactionNumber: utils.GenerateReference(utils.PrefixTransaction),
		Amount:            req.Amount,
		Method:            req.Method,
		Status:            "success",
		Reference:         req.Reference,
		PaidBy:            paidBy,
	}
	if err := s.DB.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}
	publishChange(s.Hub, "payment_transactions", realtime.EventInsert, txn)

	if err := s.DB.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", payment.ID).
		Updates(map[string]interface{}{"status": models.PaymentStatusPaid, "paid_at": s.now()}).Error; err != nil {
		logger.Error("支付流水 %s 已写入，但更新账单 %s 状态失败: %v", txn.TransactionNumber, payment.InvoiceNumber, err)
		return nil, err
	}

	updated, err := s.GetPayment(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	publishChange(s.Hub, "payments", realtime.EventUpdate, updated)
	if s.Notifications != nil {
		s.Notifications.NotifyResident(ctx, residentID, "支付成功",
			fmt.Sprintf("账单 %s 已支付，流水号 %s", updated.InvoiceNumber, txn.TransactionNumber),
			NotificationTypePayment, fmt.Sprintf("/resident/payments/%d", updated.ID))
	}
	return updated, nil
}

// 9 Summary 居民账单汇总：待付总额、今年已付、最近一笔待付
func (s *PaymentService) Summary(ctx context.Context, residentID uint) (*PaymentSummary, error) {
	summary := &PaymentSummary{}
	open := []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusOverdue}
	base := s.DB.WithContext(ctx).Model(&models.Payment{}).Where("resident_id = ?", residentID)

	if err := base.Session(&gorm.Session{}).Where("status IN ?", open).
		Select("COALESCE(SUM(amount), 0)").Scan(&summary.Outstanding).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", models.PaymentStatusOverdue).
		Count(&summary.OverdueCount).Error; err != nil {
		return nil, err
	}
	yearStart := time.Date(s.now().Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	if err := base.Session(&gorm.Session{}).Where("status = ? AND paid_at >= ?", models.PaymentStatusPaid, yearStart).
		Select("COALESCE(SUM(amount), 0)").Scan(&summary.PaidThisYear).Error; err != nil {
		return nil, err
	}

	var next models.Payment
	err := s.DB.WithContext(ctx).Where("resident_id = ? AND status IN ?", residentID, open).
		Order("due_date ASC").First(&next).Error
	switch {
	case err == nil:
		summary.NextDue = &next
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return summary, nil
}

func (s *PaymentService) notifyInvoice(ctx context.Context, payment *models.Payment) {
	if s.Notifications == nil {
		return
	}
	s.Notifications.NotifyResident(ctx, payment.ResidentID, "新账单",
		fmt.Sprintf("账单 %s 金额 %.2f，到期日 %s", payment.InvoiceNumber, payment.Amount, payment.DueDate.Format(dateLayout)),
		NotificationTypePayment, fmt.Sprintf("/resident/payments/%d", payment.ID))
}

func (s *PaymentService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// createInvoice 写入一张待支付账单并推送变更事件
func createInvoice(ctx context.Context, db *gorm.DB, hub *realtime.Hub, payment *models.Payment) error {
	if payment.InvoiceNumber == "" {
		payment.InvoiceNumber = utils.GenerateReference(utils.PrefixInvoice)
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	if err := db.WithContext(ctx).Create(payment).Error; err != nil {
		return err
	}
	publishChange(hub, "payments", realtime.EventInsert, payment)
	return nil
}
