package services

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
)

// Actor 当前操作者
type Actor struct {
	UserID    string
	Role      models.UserRole
	IPAddress string
}

// AuditFilter 审计日志查询条件
type AuditFilter struct {
	ActorID string
	Action  string
	Target  string
}

// InterfaceAuditService 审计日志服务接口
type InterfaceAuditService interface {
	Record(ctx context.Context, actor Actor, action, target, recordID string, details interface{})
	List(ctx context.Context, filter AuditFilter, page, pageSize int) ([]models.AuditLog, int64, error)
}

// AuditService 记录管理员的写操作
type AuditService struct {
	DB *gorm.DB
}

// NewAuditService 创建审计日志服务
func NewAuditService(db *gorm.DB) InterfaceAuditService {
	return &AuditService{DB: db}
}

// 1 Record 写入审计日志，失败只记录日志不影响业务
func (s *AuditService) Record(ctx context.Context, actor Actor, action, target, recordID string, details interface{}) {
	entry := models.AuditLog{
		ActorID:   actor.UserID,
		ActorRole: actor.Role,
		Action:    action,
		Target:    target,
		RecordID:  recordID,
		IPAddress: actor.IPAddress,
	}
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			entry.Details = datatypes.JSON(b)
		}
	}
	if err := s.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		logger.Error("写入审计日志失败 action=%s target=%s: %v", action, target, err)
	}
}

// 2 List 分页查询审计日志
func (s *AuditService) List(ctx context.Context, filter AuditFilter, page, pageSize int) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.DB.WithContext(ctx).Model(&models.AuditLog{})
	if filter.ActorID != "" {
		query = query.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Target != "" {
		query = query.Where("target = ?", filter.Target)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
