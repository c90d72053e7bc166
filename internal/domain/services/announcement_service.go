package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
)

var (
	announcementCategories = []string{"general", "maintenance", "event", "emergency", "billing"}
	announcementPriorities = []string{"normal", "important", "urgent"}
)

// AnnouncementFilter 管理端公告筛选条件
type AnnouncementFilter struct {
	Category  string
	Published *bool
}

// InterfaceAnnouncementService 公告服务接口
type InterfaceAnnouncementService interface {
	ListAnnouncements(ctx context.Context, filter AnnouncementFilter, page, pageSize int) ([]models.Announcement, int64, error)
	GetAnnouncement(ctx context.Context, id uint) (*models.Announcement, error)
	CreateAnnouncement(ctx context.Context, announcement *models.Announcement) error
	UpdateAnnouncement(ctx context.Context, id uint, updates map[string]interface{}) (*models.Announcement, error)
	DeleteAnnouncement(ctx context.Context, id uint) error
	SetPublished(ctx context.Context, id uint, published bool) (*models.Announcement, error)

	ListPublished(ctx context.Context, userID, category string, page, pageSize int) ([]models.Announcement, int64, error)
	MarkRead(ctx context.Context, userID string, id uint) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

// AnnouncementService 公告服务
type AnnouncementService struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	Now func() time.Time
}

// NewAnnouncementService 创建公告服务
func NewAnnouncementService(db *gorm.DB, hub *realtime.Hub) InterfaceAnnouncementService {
	return &AnnouncementService{DB: db, Hub: hub, Now: time.Now}
}

// 1 ListAnnouncements 管理端公告列表（含草稿）
func (s *AnnouncementService) ListAnnouncements(ctx context.Context, filter AnnouncementFilter, page, pageSize int) ([]models.Announcement, int64, error) {
	var announcements []models.Announcement
	var total int64

	query := s.DB.WithContext(ctx).Model(&models.Announcement{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Published != nil {
		query = query.Where("is_published = ?", *filter.Published)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&announcements).Error; err != nil {
		return nil, 0, err
	}
	return announcements, total, nil
}

// 2 GetAnnouncement 公告详情
func (s *AnnouncementService) GetAnnouncement(ctx context.Context, id uint) (*models.Announcement, error) {
	var announcement models.Announcement
	if err := s.DB.WithContext(ctx).First(&announcement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnnouncementNotFound
		}
		return nil, err
	}
	return &announcement, nil
}

// 3 CreateAnnouncement 创建公告，可直接发布
func (s *AnnouncementService) CreateAnnouncement(ctx context.Context, announcement *models.Announcement) error {
	if announcement.Category == "" {
		announcement.Category = "general"
	}
	if announcement.Priority == "" {
		announcement.Priority = "normal"
	}
	if err := validateAnnouncement(announcement); err != nil {
		return err
	}
	if announcement.IsPublished && announcement.PublishedAt == nil {
		now := s.now()
		announcement.PublishedAt = &now
	}
	if err := s.DB.WithContext(ctx).Create(announcement).Error; err != nil {
		return err
	}
	publishChange(s.Hub, "announcements", realtime.EventInsert, announcement)
	return nil
}

// 4 UpdateAnnouncement 更新公告内容
func (s *AnnouncementService) UpdateAnnouncement(ctx context.Context, id uint, updates map[string]interface{}) (*models.Announcement, error) {
	existing, err := s.GetAnnouncement(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := *existing
	if v, ok := updates["title"].(string); ok {
		merged.Title = v
	}
	if v, ok := updates["content"].(string); ok {
		merged.Content = v
	}
	if v, ok := updates["category"].(string); ok {
		merged.Category = v
	}
	if v, ok := updates["priority"].(string); ok {
		merged.Priority = v
	}
	if err := validateAnnouncement(&merged); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.Announcement{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	updated, err := s.GetAnnouncement(ctx, id)
	if err != nil {
		return nil, err
	}
	publishChange(s.Hub, "announcements", realtime.EventUpdate, updated)
	return updated, nil
}

// 5 DeleteAnnouncement 删除公告及其已读记录
func (s *AnnouncementService) DeleteAnnouncement(ctx context.Context, id uint) error {
	announcement, err := s.GetAnnouncement(ctx, id)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Where("announcement_id = ?", id).Delete(&models.AnnouncementRead{}).Error; err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&models.Announcement{}, id).Error; err != nil {
		return err
	}
	publishChange(s.Hub, "announcements", realtime.EventDelete, announcement)
	return nil
}

// 6 SetPublished 发布/撤回公告，订阅 announcements 的居民会收到实时事件
func (s *AnnouncementService) SetPublished(ctx context.Context, id uint, published bool) (*models.Announcement, error) {
	announcement, err := s.GetAnnouncement(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"is_published": published}
	if published && announcement.PublishedAt == nil {
		updates["published_at"] = s.now()
	}
	if err := s.DB.WithContext(ctx).Model(&models.Announcement{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	updated, err := s.GetAnnouncement(ctx, id)
	if err != nil {
		return nil, err
	}
	publishChange(s.Hub, "announcements", realtime.EventUpdate, updated)
	return updated, nil
}

// 7 ListPublished 已发布且未过期的公告；userID 非空时填充 is_read
func (s *AnnouncementService) ListPublished(ctx context.Context, userID, category string, page, pageSize int) ([]models.Announcement, int64, error) {
	var announcements []models.Announcement
	var total int64

	query := s.visible(ctx)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("published_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&announcements).Error; err != nil {
		return nil, 0, err
	}
	if userID == "" || len(announcements) == 0 {
		return announcements, total, nil
	}

	ids := make([]uint, 0, len(announcements))
	for _, a := range announcements {
		ids = append(ids, a.ID)
	}
	var readIDs []uint
	if err := s.DB.WithContext(ctx).Model(&models.AnnouncementRead{}).
		Where("user_id = ? AND announcement_id IN ?", userID, ids).
		Pluck("announcement_id", &readIDs).Error; err != nil {
		return nil, 0, err
	}
	read := make(map[uint]bool, len(readIDs))
	for _, id := range readIDs {
		read[id] = true
	}
	for i := range announcements {
		announcements[i].IsRead = read[announcements[i].ID]
	}
	return announcements, total, nil
}

// 8 MarkRead 标记已读，重复调用不报错
func (s *AnnouncementService) MarkRead(ctx context.Context, userID string, id uint) error {
	var count int64
	if err := s.visible(ctx).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrAnnouncementNotFound
	}
	read := &models.AnnouncementRead{AnnouncementID: id, UserID: userID, ReadAt: s.now()}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(read).Error
}

// 9 UnreadCount 未读公告数
func (s *AnnouncementService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	read := s.DB.WithContext(ctx).Model(&models.AnnouncementRead{}).Select("announcement_id").Where("user_id = ?", userID)
	if err := s.visible(ctx).Where("id NOT IN (?)", read).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *AnnouncementService) visible(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Model(&models.Announcement{}).
		Where("is_published = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", s.now())
}

func (s *AnnouncementService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func validateAnnouncement(a *models.Announcement) error {
	if strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.Content) == "" {
		return fmt.Errorf("%w: 标题和内容不能为空", ErrInvalidArgument)
	}
	if !contains(announcementCategories, a.Category) {
		return fmt.Errorf("%w: 公告分类无效", ErrInvalidArgument)
	}
	if !contains(announcementPriorities, a.Priority) {
		return fmt.Errorf("%w: 优先级无效", ErrInvalidArgument)
	}
	return nil
}
