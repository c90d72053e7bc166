package container

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
)

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config
	redis  *redis.Client
	store  storage.ObjectStore
	hub    *realtime.Hub

	// 基础服务
	redisService services.InterfaceRedisService
	jwtService   services.InterfaceJWTService
	otpStore     services.OTPStore
	wizard       *services.RegistrationWizard

	// 通用表访问
	tableService services.InterfaceTableService

	// 业务服务
	authService         services.InterfaceAuthService
	notificationService services.InterfaceNotificationService
	auditService        services.InterfaceAuditService
	unitService         services.InterfaceUnitService
	residentService     services.InterfaceResidentService
	facilityService     services.InterfaceFacilityService
	paymentService      services.InterfacePaymentService
	ticketService       services.InterfaceTicketService
	announcementService services.InterfaceAnnouncementService
	galleryService      services.InterfaceGalleryService
	dashboardService    services.InterfaceDashboardService

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器，redisClient 和 store 可以为空
func NewServiceContainer(db *gorm.DB, cfg *config.Config, redisClient *redis.Client, store storage.ObjectStore, hub *realtime.Hub) *ServiceContainer {
	if db == nil {
		panic("数据库连接为空")
	}

	if cfg == nil {
		panic("配置为空")
	}

	if hub == nil {
		hub = realtime.NewHub()
	}

	// 测试Redis连接
	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warning("Redis连接测试失败: %v，验证码和令牌吊销将只使用数据库", err)
			redisClient = nil
		}
	}

	container := &ServiceContainer{
		db:     db,
		config: cfg,
		redis:  redisClient,
		store:  store,
		hub:    hub,
	}
	container.initializeServices()
	return container
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	otpOptions := services.OTPOptions{TTL: c.config.OTPTTL, ResendAfter: c.config.OTPResendAfter}
	dbOTP := services.NewDBOTPStore(c.db, otpOptions)

	// 初始化Redis相关服务
	if c.redis != nil {
		c.redisService = services.NewRedisServiceWithClient(c.redis)
		c.otpStore = &services.FallbackOTPStore{
			Primary:  services.NewRedisOTPStore(c.redis, otpOptions),
			Fallback: dbOTP,
		}
	} else {
		c.otpStore = dbOTP
	}

	// 初始化基础服务
	c.jwtService = services.NewJWTService(c.config, c.db, c.redisService)
	c.wizard = services.NewRegistrationWizard()

	c.tableService = services.NewTableService(c.db, c.hub)

	// 初始化业务服务
	c.notificationService = services.NewNotificationService(c.db, c.config, c.hub)
	c.auditService = services.NewAuditService(c.db)
	c.authService = services.NewAuthService(c.db, c.config, c.jwtService, c.otpStore, c.notificationService)
	c.unitService = services.NewUnitService(c.db, c.config, c.store, c.hub)
	c.residentService = services.NewResidentService(c.db, c.config, c.hub)
	c.facilityService = services.NewFacilityService(c.db, c.config, c.hub, c.notificationService)
	c.paymentService = services.NewPaymentService(c.db, c.config, c.hub, c.notificationService)
	c.ticketService = services.NewTicketService(c.db, c.config, c.store, c.hub, c.notificationService)
	c.announcementService = services.NewAnnouncementService(c.db, c.hub)
	c.galleryService = services.NewGalleryService(c.db, c.store, c.hub)
	c.dashboardService = services.NewDashboardService(c.db)
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "hub":
		return c.hub
	case "redis":
		return c.redisService
	case "jwt":
		return c.jwtService
	case "otp":
		return c.otpStore
	case "wizard":
		return c.wizard
	case "table":
		return c.tableService
	case "auth":
		return c.authService
	case "notification":
		return c.notificationService
	case "audit":
		return c.auditService
	case "unit":
		return c.unitService
	case "resident":
		return c.residentService
	case "facility":
		return c.facilityService
	case "payment":
		return c.paymentService
	case "ticket":
		return c.ticketService
	case "announcement":
		return c.announcementService
	case "gallery":
		return c.galleryService
	case "dashboard":
		return c.dashboardService
	default:
		return nil
	}
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// GetHub 获取数据变更事件中心
func (c *ServiceContainer) GetHub() *realtime.Hub {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hub
}

// HasRedis Redis 是否可用
func (c *ServiceContainer) HasRedis() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.redis != nil
}

// HasStorage 对象存储是否已配置
func (c *ServiceContainer) HasStorage() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store != nil
}

// GetStore 获取对象存储，未配置时为 nil
func (c *ServiceContainer) GetStore() storage.ObjectStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}
