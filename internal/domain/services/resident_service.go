package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
)

// ResidentFilter 居民列表筛选条件
type ResidentFilter struct {
	Search string
	Status models.ResidentStatus
	UnitID *uint
}

// 居民本人可修改的字段
var residentProfileFields = map[string]bool{
	"full_name":               true,
	"phone":                   true,
	"occupation":              true,
	"emergency_contact_name":  true,
	"emergency_contact_phone": true,
	"occupants":               true,
}

// InterfaceResidentService defines the resident service interface
type InterfaceResidentService interface {
	GetAllResidents(ctx context.Context, filter ResidentFilter, page, pageSize int) ([]models.Resident, int64, error)
	GetResidentByID(ctx context.Context, id uint) (*models.Resident, error)
	GetResidentByUserID(ctx context.Context, userID string) (*models.Resident, error)
	UpdateResident(ctx context.Context, id uint, updates map[string]interface{}) (*models.Resident, error)
	UpdateProfile(ctx context.Context, userID string, updates map[string]interface{}) (*models.Resident, error)
	AssignUnit(ctx context.Context, id, unitID uint) (*models.Resident, error)
	UpdateStatus(ctx context.Context, id uint, status models.ResidentStatus) (*models.Resident, error)
	DeleteResident(ctx context.Context, id uint) error
}

// ResidentService 提供居民相关的服务
type ResidentService struct {
	DB     *gorm.DB
	Config *config.Config
	Hub    *realtime.Hub
}

// NewResidentService 创建一个新的居民服务
func NewResidentService(db *gorm.DB, cfg *config.Config, hub *realtime.Hub) InterfaceResidentService {
	return &ResidentService{
		DB:     db,
		Config: cfg,
		Hub:    hub,
	}
}

// 1 GetAllResidents 获取居民列表
func (s *ResidentService) GetAllResidents(ctx context.Context, filter ResidentFilter, page, pageSize int) ([]models.Resident, int64, error) {
	var residents []models.Resident
	var total int64

	query := s.DB.WithContext(ctx).Model(&models.Resident{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UnitID != nil {
		query = query.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("full_name LIKE ? OR phone LIKE ? OR id_number LIKE ?", like, like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Preload("User").Preload("Unit").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&residents).Error; err != nil {
		return nil, 0, err
	}
	return residents, total, nil
}

// 2 GetResidentByID 根据ID获取居民
func (s *ResidentService) GetResidentByID(ctx context.Context, id uint) (*models.Resident, error) {
	var resident models.Resident
	if err := s.DB.WithContext(ctx).Preload("User").Preload("Unit").First(&resident, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResidentNotFound
		}
		return nil, err
	}
	return &resident, nil
}

// 3 GetResidentByUserID 根据账号获取居民档案
func (s *ResidentService) GetResidentByUserID(ctx context.Context, userID string) (*models.Resident, error) {
	var resident models.Resident
	if err := s.DB.WithContext(ctx).Preload("Unit").Where("user_id = ?", userID).Take(&resident).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResidentNotFound
		}
		return nil, err
	}
	return &resident, nil
}

// 4 UpdateResident 管理员更新居民信息
func (s *ResidentService) UpdateResident(ctx context.Context, id uint, updates map[string]interface{}) (*models.Resident, error) {
	if _, err := s.GetResidentByID(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.Resident{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	// 重新获取更新后的居民信息
	updated, err := s.GetResidentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	publishChange(s.Hub, "residents", realtime.EventUpdate, updated)
	return updated, nil
}

// 5 UpdateProfile 居民修改本人资料，只允许修改部分字段
func (s *ResidentService) UpdateProfile(ctx context.Context, userID string, updates map[string]interface{}) (*models.Resident, error) {
	resident, err := s.GetResidentByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	for field := range updates {
		if !residentProfileFields[field] {
			return nil, fmt.Errorf("%w: 不允许修改字段 %s", ErrForbidden, field)
		}
	}
	if occupants, ok := updates["occupants"].(int); ok && (occupants < 1 || occupants > maxOccupants) {
		return nil, fmt.Errorf("%w: 入住人数必须在1到10之间", ErrInvalidArgument)
	}
	return s.UpdateResident(ctx, resident.ID, updates)
}

// 6 AssignUnit 为居民分配房源，原房源释放为可租
func (s *ResidentService) AssignUnit(ctx context.Context, id, unitID uint) (*models.Resident, error) {
	resident, err := s.GetResidentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if resident.Status == models.ResidentStatusMovedOut {
		return nil, ErrResidentNotActive
	}
	if resident.UnitID != nil && *resident.UnitID == unitID {
		return resident, nil
	}

	var unit models.Unit
	if err := s.DB.WithContext(ctx).First(&unit, unitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnitNotFound
		}
		return nil, err
	}
	if unit.Status != models.UnitStatusAvailable && unit.Status != models.UnitStatusReserved {
		return nil, ErrUnitNotAvailable
	}

	// 依次写入：居民 → 新房源 → 原房源
	if err := s.DB.WithContext(ctx).Model(&models.Resident{}).Where("id = ?", id).Update("unit_id", unitID).Error; err != nil {
		return nil, err
	}
	if err := s.setUnitStatus(ctx, unitID, models.UnitStatusOccupied); err != nil {
		return nil, err
	}
	if resident.UnitID != nil {
		s.releaseUnit(ctx, *resident.UnitID)
	}
	return s.reload(ctx, id)
}

// 7 UpdateStatus 变更居民状态，搬离时释放房源
func (s *ResidentService) UpdateStatus(ctx context.Context, id uint, status models.ResidentStatus) (*models.Resident, error) {
	resident, err := s.GetResidentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch status {
	case models.ResidentStatusActive, models.ResidentStatusPending:
		if err := s.DB.WithContext(ctx).Model(&models.Resident{}).Where("id = ?", id).Update("status", status).Error; err != nil {
			return nil, err
		}
	case models.ResidentStatusMovedOut:
		if err := s.DB.WithContext(ctx).Model(&models.Resident{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":  status,
			"unit_id": nil,
		}).Error; err != nil {
			return nil, err
		}
		if resident.UnitID != nil {
			s.releaseUnit(ctx, *resident.UnitID)
		}
	default:
		return nil, fmt.Errorf("%w: 居民状态无效", ErrInvalidArgument)
	}
	return s.reload(ctx, id)
}

// 8 DeleteResident 删除居民档案及其账号
func (s *ResidentService) DeleteResident(ctx context.Context, id uint) error {
	resident, err := s.GetResidentByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&models.Resident{}, id).Error; err != nil {
		return err
	}
	if resident.UnitID != nil {
		s.releaseUnit(ctx, *resident.UnitID)
	}
	if err := s.DB.WithContext(ctx).Where("id = ?", resident.UserID).Delete(&models.User{}).Error; err != nil {
		logger.Warning("删除居民 %d 的账号失败: %v", id, err)
	}
	publishChange(s.Hub, "residents", realtime.EventDelete, resident)
	return nil
}

func (s *ResidentService) reload(ctx context.Context, id uint) (*models.Resident, error) {
	updated, err := s.GetResidentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	publishChange(s.Hub, "residents", realtime.EventUpdate, updated)
	return updated, nil
}

func (s *ResidentService) setUnitStatus(ctx context.Context, unitID uint, status models.UnitStatus) error {
	if err := s.DB.WithContext(ctx).Model(&models.Unit{}).Where("id = ?", unitID).Update("status", status).Error; err != nil {
		return err
	}
	publishChange(s.Hub, "units", realtime.EventUpdate, map[string]interface{}{"id": unitID, "status": status})
	return nil
}

// releaseUnit 房源没有其他在住居民时恢复为可租，失败只记录日志
func (s *ResidentService) releaseUnit(ctx context.Context, unitID uint) {
	var others int64
	if err := s.DB.WithContext(ctx).Model(&models.Resident{}).
		Where("unit_id = ? AND status <> ?", unitID, models.ResidentStatusMovedOut).
		Count(&others).Error; err != nil {
		logger.Warning("检查房源 %d 的居民失败: %v", unitID, err)
		return
	}
	if others > 0 {
		return
	}
	if err := s.setUnitStatus(ctx, unitID, models.UnitStatusAvailable); err != nil {
		logger.Warning("释放房源 %d 失败: %v", unitID, err)
	}
}
