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
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/utils"
)

// TicketRequest 居民提交工单
type TicketRequest struct {
	Title       string `json:"title" binding:"required" example:"厨房水管漏水"`
	Description string `json:"description" binding:"required" example:"水槽下方持续滴水"`
	Category    string `json:"category" binding:"required" example:"plumbing"`
	Priority    string `json:"priority" example:"medium"`
}

// TicketChange 管理员处理工单
type TicketChange struct {
	Status     *models.TicketStatus `json:"status,omitempty" example:"in_progress"`
	AssignedTo *string              `json:"assigned_to,omitempty" example:"维修班 王师傅"`
	Priority   *string              `json:"priority,omitempty" example:"high"`
	Message    string               `json:"message" example:"已安排维修人员下午上门"`
	IsInternal bool                 `json:"is_internal" example:"false"`
}

// TicketFilter 工单列表筛选条件
type TicketFilter struct {
	ResidentID *uint
	Status     models.TicketStatus
	Priority   string
	Category   string
}

// InterfaceTicketService 工单服务接口
type InterfaceTicketService interface {
	CreateTicket(ctx context.Context, residentID uint, req TicketRequest) (*models.Ticket, error)
	ListTickets(ctx context.Context, filter TicketFilter, page, pageSize int) ([]models.Ticket, int64, error)
	GetTicket(ctx context.Context, id uint, includeInternal bool) (*models.Ticket, error)
	GetResidentTicket(ctx context.Context, residentID, id uint) (*models.Ticket, error)
	AddComment(ctx context.Context, id uint, actor Actor, message string, internal bool) (*models.TicketUpdate, error)
	AddAttachment(ctx context.Context, id uint, actor Actor, file UploadFile) (*models.TicketAttachment, error)
	CloseTicket(ctx context.Context, residentID, id uint, actor Actor) (*models.Ticket, error)
	UpdateTicket(ctx context.Context, id uint, actor Actor, change TicketChange) (*models.Ticket, error)
}

// TicketService 报修工单服务
type TicketService struct {
	DB            *gorm.DB
	Config        *config.Config
	Store         storage.ObjectStore
	Hub           *realtime.Hub
	Notifications InterfaceNotificationService
}

// NewTicketService 创建工单服务
func NewTicketService(db *gorm.DB, cfg *config.Config, store storage.ObjectStore, hub *realtime.Hub, notifications InterfaceNotificationService) InterfaceTicketService {
	return &TicketService{DB: db, Config: cfg, Store: store, Hub: hub, Notifications: notifications}
}

// 1 CreateTicket 居民提交工单，房源取居民当前入住的房源
func (s *TicketService) CreateTicket(ctx context.Context, residentID uint, req TicketRequest) (*models.Ticket, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" || req.Description == "" {
		return nil, fmt.Errorf("%w: 标题和描述不能为空", ErrInvalidArgument)
	}
	if !contains(models.TicketCategories, req.Category) {
		return nil, fmt.Errorf("%w: 工单分类无效", ErrInvalidArgument)
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}
	if !contains(models.TicketPriorities, req.Priority) {
		return nil, fmt.Errorf("%w: 优先级无效", ErrInvalidArgument)
	}

	var resident models.Resident
	if err := s.DB.WithContext(ctx).First(&resident, residentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResidentNotFound
		}
		return nil, err
	}

	ticket := &models.Ticket{
		TicketNumber: utils.GenerateReference(utils.PrefixTicket),
		ResidentID:   residentID,
		UnitID:       resident.UnitID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Priority:     req.Priority,
		Status:       models.TicketStatusOpen,
	}
	if err := s.DB.WithContext(ctx).Create(ticket).Error; err != nil {
		return nil, err
	}
	publishChange(s.Hub, "tickets", realtime.EventInsert, ticket)
	return ticket, nil
}

// 2 ListTickets 分页查询工单
func (s *TicketService) ListTickets(ctx context.Context, filter TicketFilter, page, pageSize int) ([]models.Ticket, int64, error) {
	var tickets []models.Ticket
	var total int64

	query := s.DB.WithContext(ctx).Model(&models.Ticket{})
	if filter.ResidentID != nil {
		query = query.Where("resident_id = ?", *filter.ResidentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Preload("Resident").Preload("Unit").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&tickets).Error; err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// 3 GetTicket 工单详情，包含处理记录和附件
func (s *TicketService) GetTicket(ctx context.Context, id uint, includeInternal bool) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.DB.WithContext(ctx).
		Preload("Resident").Preload("Unit").
		Preload("Updates", func(db *gorm.DB) *gorm.DB {
			if !includeInternal {
				db = db.Where("is_internal = ?", false)
			}
			return db.Order("created_at ASC")
		}).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&ticket, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// 4 GetResidentTicket 居民只能查看自己的工单，内部备注不可见
func (s *TicketService) GetResidentTicket(ctx context.Context, residentID, id uint) (*models.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if ticket.ResidentID != residentID {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}

// 5 AddComment 添加回复，内部备注仅管理员可写
func (s *TicketService) AddComment(ctx context.Context, id uint, actor Actor, message string, internal bool) (*models.TicketUpdate, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: 回复内容不能为空", ErrInvalidArgument)
	}
	ticket, err := s.GetTicket(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		internal = false
		if ticket.Status == models.TicketStatusClosed {
			return nil, ErrTicketClosed
		}
	}

	update := &models.TicketUpdate{
		TicketID:   ticket.ID,
		AuthorID:   actor.UserID,
		AuthorRole: actor.Role,
		Message:    message,
		IsInternal: internal,
	}
	if err := s.DB.WithContext(ctx).Create(update).Error; err != nil {
		return nil, err
	}
	publishChange(s.Hub, "ticket_updates", realtime.EventInsert, update)
	if actor.Role == models.RoleAdmin && !internal {
		s.notifyResident(ctx, ticket, "工单有新回复", fmt.Sprintf("工单 %s 有新的回复", ticket.TicketNumber))
	}
	return update, nil
}

// 6 AddAttachment 上传工单附件
func (s *TicketService) AddAttachment(ctx context.Context, id uint, actor Actor, file UploadFile) (*models.TicketAttachment, error) {
	ticket, err := s.GetTicket(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && ticket.Status == models.TicketStatusClosed {
		return nil, ErrTicketClosed
	}
	obj, err := putObject(ctx, s.Store, fmt.Sprintf("tickets/%d", ticket.ID), file, false)
	if err != nil {
		return nil, err
	}

	attachment := &models.TicketAttachment{
		TicketID:    ticket.ID,
		ObjectKey:   obj.Key,
		URL:         obj.URL,
		FileName:    file.FileName,
		ContentType: file.ContentType,
		Size:        file.Size,
	}
	if err := s.DB.WithContext(ctx).Create(attachment).Error; err != nil {
		removeObject(ctx, s.Store, obj.Key)
		return nil, err
	}
	publishChange(s.Hub, "ticket_attachments", realtime.EventInsert, attachment)
	return attachment, nil
}

// 7 CloseTicket 居民关闭自己的工单
func (s *TicketService) CloseTicket(ctx context.Context, residentID, id uint, actor Actor) (*models.Ticket, error) {
	ticket, err := s.GetResidentTicket(ctx, residentID, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == models.TicketStatusClosed {
		return nil, ErrTicketClosed
	}
	status := models.TicketStatusClosed
	return s.apply(ctx, ticket, actor, TicketChange{Status: &status, Message: "居民关闭工单"})
}

// 8 UpdateTicket 管理员修改状态/处理人/优先级
func (s *TicketService) UpdateTicket(ctx context.Context, id uint, actor Actor, change TicketChange) (*models.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, ticket, actor, change)
}

func (s *TicketService) apply(ctx context.Context, ticket *models.Ticket, actor Actor, change TicketChange) (*models.Ticket, error) {
	updates := map[string]interface{}{}
	oldStatus := ticket.Status
	var newStatus models.TicketStatus

	if change.Status != nil && *change.Status != ticket.Status {
		next := *change.Status
		if !ticket.Status.CanTransitionTo(next) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, ticket.Status, next)
		}
		if ticket.Status == models.TicketStatusClosed && actor.Role != models.RoleAdmin {
			return nil, ErrForbidden
		}
		updates["status"] = next
		switch next {
		case models.TicketStatusResolved, models.TicketStatusClosed:
			if ticket.ResolvedAt == nil {
				updates["resolved_at"] = time.Now()
			}
		case models.TicketStatusOpen, models.TicketStatusInProgress:
			updates["resolved_at"] = nil
		}
		newStatus = next
	}
	if change.AssignedTo != nil {
		updates["assigned_to"] = strings.TrimSpace(*change.AssignedTo)
	}
	if change.Priority != nil {
		if !contains(models.TicketPriorities, *change.Priority) {
			return nil, fmt.Errorf("%w: 优先级无效", ErrInvalidArgument)
		}
		updates["priority"] = *change.Priority
	}
	if len(updates) == 0 && strings.TrimSpace(change.Message) == "" {
		return nil, fmt.Errorf("%w: 没有需要更新的内容", ErrInvalidArgument)
	}

	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.Ticket{}).Where("id = ?", ticket.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	record := &models.TicketUpdate{
		TicketID:   ticket.ID,
		AuthorID:   actor.UserID,
		AuthorRole: actor.Role,
		Message:    strings.TrimSpace(change.Message),
		IsInternal: change.IsInternal && actor.Role == models.RoleAdmin,
	}
	if newStatus != "" {
		record.OldStatus = oldStatus
		record.NewStatus = newStatus
	}
	if err := s.DB.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	publishChange(s.Hub, "ticket_updates", realtime.EventInsert, record)

	updated, err := s.GetTicket(ctx, ticket.ID, actor.Role == models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	publishChange(s.Hub, "tickets", realtime.EventUpdate, updated)
	if newStatus != "" && actor.Role == models.RoleAdmin {
		s.notifyResident(ctx, updated, "工单状态更新",
			fmt.Sprintf("工单 %s 状态: %s -> %s", updated.TicketNumber, oldStatus, newStatus))
	}
	return updated, nil
}

func (s *TicketService) notifyResident(ctx context.Context, ticket *models.Ticket, title, message string) {
	if s.Notifications == nil {
		return
	}
	s.Notifications.NotifyResident(ctx, ticket.ResidentID, title, message,
		NotificationTypeTicket, fmt.Sprintf("/resident/tickets/%d", ticket.ID))
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
