package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
)

// UnitFilter 房源列表筛选条件
type UnitFilter struct {
	Status   models.UnitStatus
	Type     string
	Bedrooms *int
	MinPrice *float64
	MaxPrice *float64
	Featured *bool
	Search   string
}

// InterfaceUnitService defines the unit service interface
type InterfaceUnitService interface {
	ListUnits(ctx context.Context, filter UnitFilter, page, pageSize int) ([]models.Unit, int64, error)
	GetUnit(ctx context.Context, id uint) (*models.Unit, error)
	CreateUnit(ctx context.Context, unit *models.Unit) error
	UpdateUnit(ctx context.Context, id uint, updates map[string]interface{}) (*models.Unit, error)
	UpdateStatus(ctx context.Context, id uint, status models.UnitStatus) (*models.Unit, error)
	DeleteUnit(ctx context.Context, id uint) error
	AddPhoto(ctx context.Context, unitID uint, file UploadFile, caption string, isPrimary bool) (*models.UnitPhoto, error)
	DeletePhoto(ctx context.Context, unitID, photoID uint) error
}

// UnitService 房源目录服务
type UnitService struct {
	DB     *gorm.DB
	Config *config.Config
	Store  storage.ObjectStore
	Hub    *realtime.Hub
}

// NewUnitService 创建房源服务
func NewUnitService(db *gorm.DB, cfg *config.Config, store storage.ObjectStore, hub *realtime.Hub) InterfaceUnitService {
	return &UnitService{DB: db, Config: cfg, Store: store, Hub: hub}
}

// 1 ListUnits 分页查询房源
func (s *UnitService) ListUnits(ctx context.Context, filter UnitFilter, page, pageSize int) ([]models.Unit, int64, error) {
	var units []models.Unit
	var total int64

	query := s.DB.WithContext(ctx).Model(&models.Unit{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Bedrooms != nil {
		query = query.Where("bedrooms = ?", *filter.Bedrooms)
	}
	if filter.MinPrice != nil {
		query = query.Where("monthly_rent >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("monthly_rent <= ?", *filter.MaxPrice)
	}
	if filter.Featured != nil {
		query = query.Where("is_featured = ?", *filter.Featured)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("unit_number LIKE ? OR name LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Photos", func(db *gorm.DB) *gorm.DB {
		return db.Order("is_primary DESC, sort_order ASC")
	}).Order("is_featured DESC, unit_number ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&units).Error
	if err != nil {
		return nil, 0, err
	}
	return units, total, nil
}

// 2 GetUnit 获取房源详情及图片
func (s *UnitService) GetUnit(ctx context.Context, id uint) (*models.Unit, error) {
	var unit models.Unit
	err := s.DB.WithContext(ctx).Preload("Photos", func(db *gorm.DB) *gorm.DB {
		return db.Order("is_primary DESC, sort_order ASC")
	}).First(&unit, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnitNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// 3 CreateUnit 创建房源，房号唯一
func (s *UnitService) CreateUnit(ctx context.Context, unit *models.Unit) error {
	if unit.Status == "" {
		unit.Status = models.UnitStatusAvailable
	}
	if !models.ValidUnitStatus(unit.Status) {
		return fmt.Errorf("%w: 房源状态无效", ErrInvalidArgument)
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Unit{}).Where("unit_number = ?", unit.UnitNumber).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUnitAlreadyExist
	}
	if err := s.DB.WithContext(ctx).Create(unit).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrUnitAlreadyExist
		}
		return err
	}
	publishChange(s.Hub, "units", realtime.EventInsert, unit)
	return nil
}

// 4 UpdateUnit 更新房源信息
func (s *UnitService) UpdateUnit(ctx context.Context, id uint, updates map[string]interface{}) (*models.Unit, error) {
	unit, err := s.GetUnit(ctx, id)
	if err != nil {
		return nil, err
	}

	// 如果更新房号，需要检查唯一性
	if number, ok := updates["unit_number"].(string); ok && number != unit.UnitNumber {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Unit{}).Where("unit_number = ? AND id != ?", number, id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrUnitAlreadyExist
		}
	}
	if status, ok := updates["status"].(models.UnitStatus); ok && !models.ValidUnitStatus(status) {
		return nil, fmt.Errorf("%w: 房源状态无效", ErrInvalidArgument)
	}

	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.Unit{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	updated, err := s.GetUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	publishChange(s.Hub, "units", realtime.EventUpdate, updated)
	return updated, nil
}

// 5 UpdateStatus 修改房源状态
func (s *UnitService) UpdateStatus(ctx context.Context, id uint, status models.UnitStatus) (*models.Unit, error) {
	if !models.ValidUnitStatus(status) {
		return nil, fmt.Errorf("%w: 房源状态无效", ErrInvalidArgument)
	}
	return s.UpdateUnit(ctx, id, map[string]interface{}{"status": status})
}

// 6 DeleteUnit 删除房源及其图片，有居民入住时不允许删除
func (s *UnitService) DeleteUnit(ctx context.Context, id uint) error {
	unit, err := s.GetUnit(ctx, id)
	if err != nil {
		return err
	}

	var residents int64
	if err := s.DB.WithContext(ctx).Model(&models.Resident{}).
		Where("unit_id = ? AND status = ?", id, models.ResidentStatusActive).
		Count(&residents).Error; err != nil {
		return err
	}
	if residents > 0 {
		return fmt.Errorf("%w: 房源仍有居民入住", ErrUnitNotAvailable)
	}

	if err := s.DB.WithContext(ctx).Where("unit_id = ?", id).Delete(&models.UnitPhoto{}).Error; err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&models.Unit{}, id).Error; err != nil {
		return err
	}
	for _, photo := range unit.Photos {
		s.removeObject(ctx, photo.ObjectKey)
	}
	publishChange(s.Hub, "units", realtime.EventDelete, unit)
	return nil
}

// 7 AddPhoto 上传房源图片
func (s *UnitService) AddPhoto(ctx context.Context, unitID uint, file UploadFile, caption string, isPrimary bool) (*models.UnitPhoto, error) {
	if _, err := s.GetUnit(ctx, unitID); err != nil {
		return nil, err
	}
	obj, err := putObject(ctx, s.Store, fmt.Sprintf("units/%d", unitID), file, true)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.UnitPhoto{}).Where("unit_id = ?", unitID).Count(&count).Error; err != nil {
		return nil, err
	}
	photo := &models.UnitPhoto{
		UnitID:    unitID,
		ObjectKey: obj.Key,
		URL:       obj.URL,
		Caption:   caption,
		SortOrder: int(count),
		IsPrimary: isPrimary || count == 0,
	}
	if photo.IsPrimary && count > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.UnitPhoto{}).Where("unit_id = ?", unitID).Update("is_primary", false).Error; err != nil {
			return nil, err
		}
	}
	if err := s.DB.WithContext(ctx).Create(photo).Error; err != nil {
		s.removeObject(ctx, obj.Key)
		return nil, err
	}
	publishChange(s.Hub, "unit_photos", realtime.EventInsert, photo)
	return photo, nil
}

// 8 DeletePhoto 删除房源图片，对象存储删除失败只记录日志
func (s *UnitService) DeletePhoto(ctx context.Context, unitID, photoID uint) error {
	var photo models.UnitPhoto
	if err := s.DB.WithContext(ctx).Where("id = ? AND unit_id = ?", photoID, unitID).First(&photo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPhotoNotFound
		}
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&photo).Error; err != nil {
		return err
	}
	s.removeObject(ctx, photo.ObjectKey)
	publishChange(s.Hub, "unit_photos", realtime.EventDelete, &photo)
	return nil
}

func (s *UnitService) removeObject(ctx context.Context, key string) {
	removeObject(ctx, s.Store, key)
}
