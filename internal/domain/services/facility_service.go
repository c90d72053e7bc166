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

const clockLayout = "15:04"

// 占用时段的预约状态
var activeBookingStatuses = []models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed}

// BookingRequest 居民提交的预约
type BookingRequest struct {
	FacilityID uint      `json:"facility_id" binding:"required" example:"1"`
	StartTime  time.Time `json:"start_time" binding:"required" example:"2030-01-01T09:00:00+07:00"`
	EndTime    time.Time `json:"end_time" binding:"required" example:"2030-01-01T11:00:00+07:00"`
	Attendees  int       `json:"attendees" example:"4"`
	Purpose    string    `json:"purpose" example:"Birthday party"`
}

// BookingFilter 预约列表筛选条件
type BookingFilter struct {
	ResidentID *uint
	FacilityID *uint
	Status     models.BookingStatus
	Date       *time.Time
}

// TimeSlot 已被占用的时段
type TimeSlot struct {
	BookingID uint                 `json:"booking_id"`
	StartTime time.Time            `json:"start_time"`
	EndTime   time.Time            `json:"end_time"`
	Status    models.BookingStatus `json:"status"`
}

// InterfaceFacilityService 公共设施及预约服务接口
type InterfaceFacilityService interface {
	ListFacilities(ctx context.Context, activeOnly bool) ([]models.Facility, error)
	GetFacility(ctx context.Context, id uint) (*models.Facility, error)
	CreateFacility(ctx context.Context, facility *models.Facility) error
	UpdateFacility(ctx context.Context, id uint, updates map[string]interface{}) (*models.Facility, error)
	DeleteFacility(ctx context.Context, id uint) error
	GetAvailability(ctx context.Context, facilityID uint, day time.Time) ([]TimeSlot, error)

	CreateBooking(ctx context.Context, residentID uint, req BookingRequest) (*models.FacilityBooking, error)
	ListBookings(ctx context.Context, filter BookingFilter, page, pageSize int) ([]models.FacilityBooking, int64, error)
	GetBooking(ctx context.Context, id uint) (*models.FacilityBooking, error)
	CancelBooking(ctx context.Context, residentID, bookingID uint, reason string) (*models.FacilityBooking, error)
	UpdateBookingStatus(ctx context.Context, id uint, status models.BookingStatus, reason string) (*models.FacilityBooking, error)
}

// FacilityService 公共设施及预约服务
type FacilityService struct {
	DB            *gorm.DB
	Config        *config.Config
	Hub           *realtime.Hub
	Notifications InterfaceNotificationService
	Now           func() time.Time
}

// NewFacilityService 创建设施服务
func NewFacilityService(db *gorm.DB, cfg *config.Config, hub *realtime.Hub, notifications InterfaceNotificationService) InterfaceFacilityService {
	return &FacilityService{DB: db, Config: cfg, Hub: hub, Notifications: notifications, Now: time.Now}
}

// 1 ListFacilities 设施列表
func (s *FacilityService) ListFacilities(ctx context.Context, activeOnly bool) ([]models.Facility, error) {
	var facilities []models.Facility
	query := s.DB.WithContext(ctx).Model(&models.Facility{})
	if activeOnly {
		query = query.Where("status = ?", models.FacilityStatusActive)
	}
	if err := query.Order("name ASC").Find(&facilities).Error; err != nil {
		return nil, err
	}
	return facilities, nil
}

// 2 GetFacility 设施详情
func (s *FacilityService) GetFacility(ctx context.Context, id uint) (*models.Facility, error) {
	var facility models.Facility
	if err := s.DB.WithContext(ctx).First(&facility, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFacilityNotFound
		}
		return nil, err
	}
	return &facility, nil
}

// 3 CreateFacility 创建设施
func (s *FacilityService) CreateFacility(ctx context.Context, facility *models.Facility) error {
	if facility.Status == "" {
		facility.Status = models.FacilityStatusActive
	}
	if err := validateFacility(facility); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Create(facility).Error; err != nil {
		return err
	}
	publishChange(s.Hub, "facilities", realtime.EventInsert, facility)
	return nil
}

// 4 UpdateFacility 更新设施
func (s *FacilityService) UpdateFacility(ctx context.Context, id uint, updates map[string]interface{}) (*models.Facility, error) {
	facility, err := s.GetFacility(ctx, id)
	if err != nil {
		return nil, err
	}

	// 先在副本上校验合并后的结果
	merged := *facility
	if v, ok := updates["open_time"].(string); ok {
		merged.OpenTime = v
	}
	if v, ok := updates["close_time"].(string); ok {
		merged.CloseTime = v
	}
	if v, ok := updates["capacity"].(int); ok {
		merged.Capacity = v
	}
	if v, ok := updates["hourly_rate"].(float64); ok {
		merged.HourlyRate = v
	}
	if v, ok := updates["status"].(models.FacilityStatus); ok {
		merged.Status = v
	}
	if err := validateFacility(&merged); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.Facility{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	updated, err := s.GetFacility(ctx, id)
	if err != nil {
		return nil, err
	}
	publishChange(s.Hub, "facilities", realtime.EventUpdate, updated)
	return updated, nil
}

// 5 DeleteFacility 删除设施，存在未结束的预约时不允许删除
func (s *FacilityService) DeleteFacility(ctx context.Context, id uint) error {
	facility, err := s.GetFacility(ctx, id)
	if err != nil {
		return err
	}
	var active int64
	if err := s.DB.WithContext(ctx).Model(&models.FacilityBooking{}).
		Where("facility_id = ? AND status IN ? AND end_time > ?", id, activeBookingStatuses, s.now()).
		Count(&active).Error; err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("%w: 设施仍有未结束的预约", ErrBookingConflict)
	}
	if err := s.DB.WithContext(ctx).Delete(&models.Facility{}, id).Error; err != nil {
		return err
	}
	publishChange(s.Hub, "facilities", realtime.EventDelete, facility)
	return nil
}

// 6 GetAvailability 查询某天已被占用的时段
func (s *FacilityService) GetAvailability(ctx context.Context, facilityID uint, day time.Time) ([]TimeSlot, error) {
	if _, err := s.GetFacility(ctx, facilityID); err != nil {
		return nil, err
	}
	start := s.startOfDay(day)
	end := start.AddDate(0, 0, 1).UTC()
	start = start.UTC()

	var bookings []models.FacilityBooking
	if err := s.DB.WithContext(ctx).
		Where("facility_id = ? AND status IN ? AND start_time < ? AND end_time > ?", facilityID, activeBookingStatuses, end, start).
		Order("start_time ASC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	slots := make([]TimeSlot, 0, len(bookings))
	for _, b := range bookings {
		slots = append(slots, TimeSlot{BookingID: b.ID, StartTime: b.StartTime, EndTime: b.EndTime, Status: b.Status})
	}
	return slots, nil
}

// 7 CreateBooking 校验并创建预约，有费用时随后单独生成设施账单
func (s *FacilityService) CreateBooking(ctx context.Context, residentID uint, req BookingRequest) (*models.FacilityBooking, error) {
	var resident models.Resident
	if err := s.DB.WithContext(ctx).First(&resident, residentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResidentNotFound
		}
		return nil, err
	}
	if resident.Status != models.ResidentStatusActive {
		return nil, ErrResidentNotActive
	}

	facility, err := s.GetFacility(ctx, req.FacilityID)
	if err != nil {
		return nil, err
	}
	if req.Attendees <= 0 {
		req.Attendees = 1
	}
	// 统一以 UTC 入库，查询条件与存储值可直接比较
	req.StartTime = req.StartTime.UTC()
	req.EndTime = req.EndTime.UTC()
	if err := s.validateBookingWindow(facility, req); err != nil {
		return nil, err
	}

	// 时段冲突只做校验性查询，不加锁
	var overlapping int64
	if err := s.DB.WithContext(ctx).Model(&models.FacilityBooking{}).
		Where("facility_id = ? AND status IN ? AND start_time < ? AND end_time > ?",
			facility.ID, activeBookingStatuses, req.EndTime, req.StartTime).
		Count(&overlapping).Error; err != nil {
		return nil, err
	}
	if overlapping > 0 {
		return nil, ErrBookingConflict
	}

	status := models.BookingStatusConfirmed
	if facility.RequiresApproval {
		status = models.BookingStatusPending
	}
	booking := &models.FacilityBooking{
		BookingNumber: utils.GenerateReference(utils.PrefixBooking),
		FacilityID:    facility.ID,
		ResidentID:    residentID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Attendees:     req.Attendees,
		Purpose:       req.Purpose,
		Status:        status,
		TotalFee:      BookingFee(facility.HourlyRate, req.StartTime, req.EndTime),
	}
	if err := s.DB.WithContext(ctx).Create(booking).Error; err != nil {
		return nil, err
	}
	publishChange(s.Hub, "facility_bookings", realtime.EventInsert, booking)

	if booking.TotalFee > 0 {
		s.createBookingInvoice(ctx, booking, facility, &resident)
	}
	if s.Notifications != nil {
		s.Notifications.NotifyResident(ctx, residentID, "设施预约已提交",
			fmt.Sprintf("%s 预约 %s 状态: %s", facility.Name, booking.BookingNumber, booking.Status),
			NotificationTypeBooking, fmt.Sprintf("/resident/bookings/%d", booking.ID))
	}
	booking.Facility = facility
	return booking, nil
}

// 8 ListBookings 分页查询预约
func (s *FacilityService) ListBookings(ctx context.Context, filter BookingFilter, page, pageSize int) ([]models.FacilityBooking, int64, error) {
	var bookings []models.FacilityBooking
	var total int64

	query := s.DB.WithContext(ctx).Model(&models.FacilityBooking{})
	if filter.ResidentID != nil {
		query = query.Where("resident_id = ?", *filter.ResidentID)
	}
	if filter.FacilityID != nil {
		query = query.Where("facility_id = ?", *filter.FacilityID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Date != nil {
		start := s.startOfDay(*filter.Date)
		query = query.Where("start_time >= ? AND start_time < ?", start.UTC(), start.AddDate(0, 0, 1).UTC())
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Preload("Facility").Preload("Resident").
		Order("start_time DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// 9 GetBooking 预约详情
func (s *FacilityService) GetBooking(ctx context.Context, id uint) (*models.FacilityBooking, error) {
	var booking models.FacilityBooking
	if err := s.DB.WithContext(ctx).Preload("Facility").Preload("Resident").First(&booking, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// 10 CancelBooking 居民取消本人的预约
func (s *FacilityService) CancelBooking(ctx context.Context, residentID, bookingID uint, reason string) (*models.FacilityBooking, error) {
	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ResidentID != residentID {
		return nil, ErrBookingNotFound
	}
	return s.transition(ctx, booking, models.BookingStatusCancelled, reason)
}

// 11 UpdateBookingStatus 管理员审批/取消/完成预约
func (s *FacilityService) UpdateBookingStatus(ctx context.Context, id uint, status models.BookingStatus, reason string) (*models.FacilityBooking, error) {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, booking, status, reason)
}

func (s *FacilityService) transition(ctx context.Context, booking *models.FacilityBooking, status models.BookingStatus, reason string) (*models.FacilityBooking, error) {
	if !booking.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, booking.Status, status)
	}
	updates := map[string]interface{}{"status": status}
	if status == models.BookingStatusCancelled {
		updates["cancel_reason"] = reason
	}
	if err := s.DB.WithContext(ctx).Model(&models.FacilityBooking{}).Where("id = ?", booking.ID).Updates(updates).Error; err != nil {
		return nil, err
	}

	// 取消预约时作废尚未支付的设施账单
	if status == models.BookingStatusCancelled && booking.PaymentID != nil {
		if err := s.DB.WithContext(ctx).Model(&models.Payment{}).
			Where("id = ? AND status IN ?", *booking.PaymentID, []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusOverdue}).
			Update("status", models.PaymentStatusCancelled).Error; err != nil {
			logger.Warning("作废预约 %s 的账单失败: %v", booking.BookingNumber, err)
		}
	}

	updated, err := s.GetBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	publishChange(s.Hub, "facility_bookings", realtime.EventUpdate, updated)
	if s.Notifications != nil {
		s.Notifications.NotifyResident(ctx, updated.ResidentID, "设施预约状态更新",
			fmt.Sprintf("预约 %s 状态已变更为 %s", updated.BookingNumber, updated.Status),
			NotificationTypeBooking, fmt.Sprintf("/resident/bookings/%d", updated.ID))
	}
	return updated, nil
}

func (s *FacilityService) validateBookingWindow(facility *models.Facility, req BookingRequest) error {
	if facility.Status != models.FacilityStatusActive {
		return ErrFacilityUnavailable
	}
	if !req.StartTime.Before(req.EndTime) {
		return fmt.Errorf("%w: 结束时间必须晚于开始时间", ErrBookingInvalidTime)
	}
	// 营业时间和跨天都按物业时区判断，与客户端传入的时区偏移无关
	loc := s.location()
	start := req.StartTime.In(loc)
	end := req.EndTime.In(loc)
	if start.Format(dateLayout) != end.Format(dateLayout) {
		return fmt.Errorf("%w: 预约不能跨天", ErrBookingInvalidTime)
	}
	if !req.StartTime.After(s.now()) {
		return fmt.Errorf("%w: 开始时间必须晚于当前时间", ErrBookingInvalidTime)
	}
	if start.Format(clockLayout) < facility.OpenTime || end.Format(clockLayout) > facility.CloseTime {
		return fmt.Errorf("%w: 须在开放时间 %s-%s 内", ErrBookingInvalidTime, facility.OpenTime, facility.CloseTime)
	}
	if req.Attendees > facility.Capacity {
		return ErrCapacityExceeded
	}
	return nil
}

// createBookingInvoice 预约写入后单独生成账单，失败不回滚预约
func (s *FacilityService) createBookingInvoice(ctx context.Context, booking *models.FacilityBooking, facility *models.Facility, resident *models.Resident) {
	payment := &models.Payment{
		ResidentID:        resident.ID,
		UnitID:            resident.UnitID,
		Type:              models.PaymentTypeFacility,
		Description:       fmt.Sprintf("%s 预约 %s", facility.Name, booking.BookingNumber),
		Amount:            booking.TotalFee,
		DueDate:           booking.StartTime,
		FacilityBookingID: &booking.ID,
	}
	if err := createInvoice(ctx, s.DB, s.Hub, payment); err != nil {
		logger.Error("生成预约 %s 的账单失败: %v", booking.BookingNumber, err)
		return
	}
	if err := s.DB.WithContext(ctx).Model(&models.FacilityBooking{}).Where("id = ?", booking.ID).Update("payment_id", payment.ID).Error; err != nil {
		logger.Error("关联预约 %s 与账单 %s 失败: %v", booking.BookingNumber, payment.InvoiceNumber, err)
		return
	}
	booking.PaymentID = &payment.ID
}

func (s *FacilityService) location() *time.Location {
	return s.Config.Location()
}

// startOfDay 物业时区内 day 所在日期的零点
func (s *FacilityService) startOfDay(day time.Time) time.Time {
	d := day.In(s.location())
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

func (s *FacilityService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// BookingFee 按小时计费，保留两位小数
func BookingFee(hourlyRate float64, start, end time.Time) float64 {
	hours := end.Sub(start).Hours()
	if hours <= 0 || hourlyRate <= 0 {
		return 0
	}
	return math.Round(hours*hourlyRate*100) / 100
}

func validateFacility(f *models.Facility) error {
	open, err := time.Parse(clockLayout, f.OpenTime)
	if err != nil {
		return fmt.Errorf("%w: 开放时间格式应为HH:MM", ErrInvalidArgument)
	}
	closing, err := time.Parse(clockLayout, f.CloseTime)
	if err != nil {
		return fmt.Errorf("%w: 关闭时间格式应为HH:MM", ErrInvalidArgument)
	}
	if !open.Before(closing) {
		return fmt.Errorf("%w: 关闭时间必须晚于开放时间", ErrInvalidArgument)
	}
	if f.Capacity < 1 {
		return fmt.Errorf("%w: 容量至少为1", ErrInvalidArgument)
	}
	if f.HourlyRate < 0 {
		return fmt.Errorf("%w: 费用不能为负数", ErrInvalidArgument)
	}
	switch f.Status {
	case models.FacilityStatusActive, models.FacilityStatusInactive, models.FacilityStatusMaintenance:
	default:
		return fmt.Errorf("%w: 设施状态无效", ErrInvalidArgument)
	}
	return nil
}
