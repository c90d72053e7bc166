package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
)

// 咨询状态
const (
	InquiryStatusNew       = "new"
	InquiryStatusContacted = "contacted"
	InquiryStatusClosed    = "closed"
)

// GalleryUpload 相册上传元数据
type GalleryUpload struct {
	Title       string
	Description string
	Category    string
	SortOrder   int
}

// InterfaceGalleryService 官网相册及咨询服务接口
type InterfaceGalleryService interface {
	ListPhotos(ctx context.Context, category string, publishedOnly bool) ([]models.GalleryPhoto, error)
	UploadPhoto(ctx context.Context, meta GalleryUpload, file UploadFile) (*models.GalleryPhoto, error)
	UpdatePhoto(ctx context.Context, id uint, updates map[string]interface{}) (*models.GalleryPhoto, error)
	DeletePhoto(ctx context.Context, id uint) error

	SubmitInquiry(ctx context.Context, inquiry *models.Inquiry) error
	ListInquiries(ctx context.Context, status string, page, pageSize int) ([]models.Inquiry, int64, error)
	UpdateInquiryStatus(ctx context.Context, id uint, status string) (*models.Inquiry, error)
}

// GalleryService 官网相册及咨询服务
type GalleryService struct {
	DB    *gorm.DB
	Store storage.ObjectStore
	Hub   *realtime.Hub
}

// NewGalleryService 创建相册服务
func NewGalleryService(db *gorm.DB, store storage.ObjectStore, hub *realtime.Hub) InterfaceGalleryService {
	return &GalleryService{DB: db, Store: store, Hub: hub}
}

// 1 ListPhotos 相册列表，按排序号升序
func (s *GalleryService) ListPhotos(ctx context.Context, category string, publishedOnly bool) ([]models.GalleryPhoto, error) {
	var photos []models.GalleryPhoto
	query := s.DB.WithContext(ctx).Model(&models.GalleryPhoto{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if err := query.Order("sort_order ASC, id ASC").Find(&photos).Error; err != nil {
		return nil, err
	}
	return photos, nil
}

// 2 UploadPhoto 上传相册图片
func (s *GalleryService) UploadPhoto(ctx context.Context, meta GalleryUpload, file UploadFile) (*models.GalleryPhoto, error) {
	obj, err := putObject(ctx, s.Store, "gallery", file, true)
	if err != nil {
		return nil, err
	}
	photo := &models.GalleryPhoto{
		Title:       strings.TrimSpace(meta.Title),
		Description: meta.Description,
		Category:    meta.Category,
		ObjectKey:   obj.Key,
		URL:         obj.URL,
		SortOrder:   meta.SortOrder,
		IsPublished: true,
	}
	if err := s.DB.WithContext(ctx).Create(photo).Error; err != nil {
		removeObject(ctx, s.Store, obj.Key)
		return nil, err
	}
	publishChange(s.Hub, "gallery_photos", realtime.EventInsert, photo)
	return photo, nil
}

// 3 UpdatePhoto 修改标题、排序或发布状态
func (s *GalleryService) UpdatePhoto(ctx context.Context, id uint, updates map[string]interface{}) (*models.GalleryPhoto, error) {
	if _, err := s.getPhoto(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.GalleryPhoto{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	photo, err := s.getPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	publishChange(s.Hub, "gallery_photos", realtime.EventUpdate, photo)
	return photo, nil
}

// 4 DeletePhoto 删除图片，对象存储删除失败只记录日志
func (s *GalleryService) DeletePhoto(ctx context.Context, id uint) error {
	photo, err := s.getPhoto(ctx, id)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&models.GalleryPhoto{}, id).Error; err != nil {
		return err
	}
	removeObject(ctx, s.Store, photo.ObjectKey)
	publishChange(s.Hub, "gallery_photos", realtime.EventDelete, photo)
	return nil
}

// 5 SubmitInquiry 官网提交咨询/预约看房
func (s *GalleryService) SubmitInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	inquiry.Name = strings.TrimSpace(inquiry.Name)
	inquiry.Email = strings.TrimSpace(inquiry.Email)
	fields := FieldErrors{}
	if len(inquiry.Name) < 2 {
		fields["name"] = "请填写姓名"
	}
	if !validEmail(inquiry.Email) {
		fields["email"] = "邮箱格式不正确"
	}
	if inquiry.Phone != "" && !validPhone(inquiry.Phone) {
		fields["phone"] = "手机号格式不正确"
	}
	if len(fields) > 0 {
		return fields
	}
	if inquiry.UnitID != nil {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Unit{}).Where("id = ?", *inquiry.UnitID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrUnitNotFound
		}
	}
	inquiry.Status = InquiryStatusNew
	if err := s.DB.WithContext(ctx).Create(inquiry).Error; err != nil {
		return err
	}
	publishChange(s.Hub, "inquiries", realtime.EventInsert, inquiry)
	return nil
}

// 6 ListInquiries 管理端咨询列表
func (s *GalleryService) ListInquiries(ctx context.Context, status string, page, pageSize int) ([]models.Inquiry, int64, error) {
	var inquiries []models.Inquiry
	var total int64
	query := s.DB.WithContext(ctx).Model(&models.Inquiry{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&inquiries).Error; err != nil {
		return nil, 0, err
	}
	return inquiries, total, nil
}

// 7 UpdateInquiryStatus 跟进咨询
func (s *GalleryService) UpdateInquiryStatus(ctx context.Context, id uint, status string) (*models.Inquiry, error) {
	switch status {
	case InquiryStatusNew, InquiryStatusContacted, InquiryStatusClosed:
	default:
		return nil, fmt.Errorf("%w: 咨询状态无效", ErrInvalidArgument)
	}
	res := s.DB.WithContext(ctx).Model(&models.Inquiry{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInquiryNotFound
	}
	var inquiry models.Inquiry
	if err := s.DB.WithContext(ctx).First(&inquiry, id).Error; err != nil {
		return nil, err
	}
	publishChange(s.Hub, "inquiries", realtime.EventUpdate, &inquiry)
	return &inquiry, nil
}

func (s *GalleryService) getPhoto(ctx context.Context, id uint) (*models.GalleryPhoto, error) {
	var photo models.GalleryPhoto
	if err := s.DB.WithContext(ctx).First(&photo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	return &photo, nil
}
