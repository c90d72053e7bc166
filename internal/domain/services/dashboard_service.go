package services

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
)

const recentItems = 5

// DashboardStats 管理后台首页统计
type DashboardStats struct {
	TotalUnits        int64                       `json:"total_units"`
	UnitsByStatus     map[models.UnitStatus]int64 `json:"units_by_status"`
	OccupancyRate     float64                     `json:"occupancy_rate"`
	ActiveResidents   int64                       `json:"active_residents"`
	PendingResidents  int64                       `json:"pending_residents"`
	PendingBookings   int64                       `json:"pending_bookings"`
	OpenTickets       int64                       `json:"open_tickets"`
	OutstandingAmount float64                     `json:"outstanding_amount"`
	OverduePayments   int64                       `json:"overdue_payments"`
	RevenueThisMonth  float64                     `json:"revenue_this_month"`
	NewInquiries      int64                       `json:"new_inquiries"`
	RecentTickets     []models.Ticket             `json:"recent_tickets"`
	RecentBookings    []models.FacilityBooking    `json:"recent_bookings"`
	GeneratedAt       time.Time                   `json:"generated_at"`
}

// InterfaceDashboardService 后台统计服务接口
type InterfaceDashboardService interface {
	GetStats(ctx context.Context) (*DashboardStats, error)
}

// DashboardService 后台统计服务
type DashboardService struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewDashboardService 创建后台统计服务
func NewDashboardService(db *gorm.DB) InterfaceDashboardService {
	return &DashboardService{DB: db, Now: time.Now}
}

type statusCount struct {
	Status string
	Count  int64
}

// 1 GetStats 汇总房源、居民、预约、工单与账单数据
func (s *DashboardService) GetStats(ctx context.Context) (*DashboardStats, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	db := s.DB.WithContext(ctx)
	stats := &DashboardStats{UnitsByStatus: map[models.UnitStatus]int64{}, GeneratedAt: now}

	var units []statusCount
	if err := db.Model(&models.Unit{}).Select("status, COUNT(*) AS count").Group("status").Scan(&units).Error; err != nil {
		return nil, err
	}
	for _, row := range units {
		stats.UnitsByStatus[models.UnitStatus(row.Status)] = row.Count
		stats.TotalUnits += row.Count
	}
	if stats.TotalUnits > 0 {
		rate := float64(stats.UnitsByStatus[models.UnitStatusOccupied]) / float64(stats.TotalUnits) * 100
		stats.OccupancyRate = math.Round(rate*100) / 100
	}

	counts := []struct {
		dest  *int64
		model interface{}
		query string
		args  []interface{}
	}{
		{&stats.ActiveResidents, &models.Resident{}, "status = ?", []interface{}{models.ResidentStatusActive}},
		{&stats.PendingResidents, &models.Resident{}, "status = ?", []interface{}{models.ResidentStatusPending}},
		{&stats.PendingBookings, &models.FacilityBooking{}, "status = ?", []interface{}{models.BookingStatusPending}},
		{&stats.OpenTickets, &models.Ticket{}, "status IN ?", []interface{}{[]models.TicketStatus{models.TicketStatusOpen, models.TicketStatusInProgress}}},
		{&stats.OverduePayments, &models.Payment{}, "status = ?", []interface{}{models.PaymentStatusOverdue}},
		{&stats.NewInquiries, &models.Inquiry{}, "status = ?", []interface{}{InquiryStatusNew}},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.query, c.args...).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	if err := db.Model(&models.Payment{}).
		Where("status IN ?", []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusOverdue}).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.OutstandingAmount).Error; err != nil {
		return nil, err
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if err := db.Model(&models.Payment{}).
		Where("status = ? AND paid_at >= ?", models.PaymentStatusPaid, monthStart).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.RevenueThisMonth).Error; err != nil {
		return nil, err
	}

	if err := db.Preload("Resident").Order("created_at DESC").Limit(recentItems).Find(&stats.RecentTickets).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("Facility").Preload("Resident").Order("created_at DESC").Limit(recentItems).Find(&stats.RecentBookings).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
