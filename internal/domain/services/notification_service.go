package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
)

// 通知类型
const (
	NotificationTypeBooking      = "booking"
	NotificationTypePayment      = "payment"
	NotificationTypeTicket       = "ticket"
	NotificationTypeAnnouncement = "announcement"
	NotificationTypeAccount      = "account"
)

// Notifier 验证码投递，当前只写站内通知和日志，不接入邮件/短信通道
type Notifier interface {
	SendOTP(ctx context.Context, email string, purpose models.OTPPurpose, code string) error
}

// InterfaceNotificationService 站内通知服务接口
type InterfaceNotificationService interface {
	Notifier
	Notify(ctx context.Context, userID, title, message, typ, link string) (*models.Notification, error)
	NotifyResident(ctx context.Context, residentID uint, title, message, typ, link string)
	List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID string, id uint) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// NotificationService 站内通知服务
type NotificationService struct {
	DB     *gorm.DB
	Config *config.Config
	Hub    *realtime.Hub
}

// NewNotificationService 创建站内通知服务
func NewNotificationService(db *gorm.DB, cfg *config.Config, hub *realtime.Hub) InterfaceNotificationService {
	return &NotificationService{DB: db, Config: cfg, Hub: hub}
}

// 1 Notify 给指定用户写入一条通知
func (s *NotificationService) Notify(ctx context.Context, userID, title, message, typ, link string) (*models.Notification, error) {
	n := &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    typ,
		Link:    link,
	}
	if err := s.DB.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	publishChange(s.Hub, "notifications", realtime.EventInsert, n)
	return n, nil
}

// 2 NotifyResident 按居民ID通知，失败只记录日志
func (s *NotificationService) NotifyResident(ctx context.Context, residentID uint, title, message, typ, link string) {
	var resident models.Resident
	if err := s.DB.WithContext(ctx).Select("id", "user_id").First(&resident, residentID).Error; err != nil {
		logger.Warning("通知居民 %d 失败，查询居民出错: %v", residentID, err)
		return
	}
	if _, err := s.Notify(ctx, resident.UserID, title, message, typ, link); err != nil {
		logger.Warning("通知居民 %d 失败: %v", residentID, err)
	}
}

// 3 List 获取用户通知列表，按时间倒序
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error) {
	var items []models.Notification
	var total int64

	query := s.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// 4 UnreadCount 未读通知数量
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&total).Error
	return total, err
}

// 5 MarkRead 标记单条通知为已读
func (s *NotificationService) MarkRead(ctx context.Context, userID string, id uint) error {
	var n models.Notification
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	if n.IsRead {
		return nil
	}
	now := time.Now()
	return s.DB.WithContext(ctx).Model(&n).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
}

// 6 MarkAllRead 标记全部通知为已读
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return result.RowsAffected, result.Error
}

// 7 SendOTP 投递验证码：写入站内通知并记录日志
func (s *NotificationService) SendOTP(ctx context.Context, email string, purpose models.OTPPurpose, code string) error {
	var user models.User
	if err := s.DB.WithContext(ctx).Select("id", "email").Where("email = ?", normalizeEmail(email)).Take(&user).Error; err != nil {
		return err
	}

	title := "邮箱验证码"
	if purpose == models.OTPPurposeResetPassword {
		title = "重置密码验证码"
	}
	message := fmt.Sprintf("您的验证码为 %s，%d 分钟内有效。", code, int(s.otpTTL().Minutes()))
	if _, err := s.Notify(ctx, user.ID, title, message, NotificationTypeAccount, ""); err != nil {
		return err
	}
	logger.Info("已向 %s 发送%s", maskEmail(email), title)
	logger.Debug("验证码 %s: %s", purpose, code)
	return nil
}

func (s *NotificationService) otpTTL() time.Duration {
	if s.Config == nil || s.Config.OTPTTL <= 0 {
		return 10 * time.Minute
	}
	return s.Config.OTPTTL
}

func maskEmail(email string) string {
	parts := strings.Split(normalizeEmail(email), "@")
	if len(parts) != 2 || parts[0] == "" {
		return email
	}
	local := parts[0]
	if len(local) <= 2 {
		return local[:1] + "***@" + parts[1]
	}
	return local[:1] + "***" + local[len(local)-1:] + "@" + parts[1]
}
