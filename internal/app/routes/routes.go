package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/pramacoder/BookingApartSystem-sub000/docs"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/controllers"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/middleware"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
)

// SetupRouter 初始化并返回配置好的路由
func SetupRouter(serviceContainer *container.ServiceContainer, cfg *config.Config) *gin.Engine {
	// 初始化 Gin
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 添加 CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
	// 设置正确的Content-Type，确保UTF-8编码
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		c.Next()
	})

	// 初始化中间件
	middleware.InitAuthMiddleware(serviceContainer.GetService("jwt").(services.InterfaceJWTService))
	// 添加 Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 内存对象存储没有独立的文件服务，由本服务提供下载
	if _, ok := serviceContainer.GetStore().(*storage.MemoryStore); ok {
		r.GET("/files/*key", controllers.HandleFileFunc(serviceContainer, "getFile"))
	}

	// 注册路由
	registerRoutes(r, serviceContainer)
	return r
}

// registerRoutes 配置所有API路由
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
) {
	// API 路由根路径
	api := r.Group("/api")
	// 添加IP限流中间件 - 每秒允许10个请求，最多突发20个请求
	api.Use(middleware.IPRateLimiter(10, 20))

	registerHealthRoutes(api, container)
	registerPublicRoutes(api, container)
	registerAuthRoutes(api, container)
	registerResidentRoutes(api, container)
	registerAdminRoutes(api, container)
	registerSharedRoutes(api, container)
}

// registerHealthRoutes 健康检查路由
func registerHealthRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	api.GET("/ping", controllers.HandleHealthFunc(container, "ping"))
	api.GET("/health", controllers.HandleHealthFunc(container, "ping")) // 兼容Docker健康检查

	healthGroup := api.Group("/health")
	healthGroup.GET("/status", controllers.HandleHealthFunc(container, "status"))
	healthGroup.GET("/cache-stats", controllers.HandleHealthFunc(container, "cacheStats"))
}

// registerPublicRoutes 官网公开接口，GET 响应缓存，管理员修改后按前缀清除
func registerPublicRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	public := api.Group("/public")
	shortCache := middleware.Cache(middleware.CacheConfig{Expiration: 30 * time.Second})
	longCache := middleware.Cache(middleware.CacheConfig{Expiration: 5 * time.Minute})

	public.GET("/units", shortCache, controllers.HandleUnitFunc(container, "getUnits"))
	public.GET("/units/:id", shortCache, controllers.HandleUnitFunc(container, "getUnit"))
	public.GET("/facilities", longCache, controllers.HandleFacilityFunc(container, "getActiveFacilities"))
	public.GET("/facilities/:id", longCache, controllers.HandleFacilityFunc(container, "getFacility"))
	public.GET("/gallery", longCache, controllers.HandleGalleryFunc(container, "getPublishedPhotos"))
	public.GET("/announcements", shortCache, controllers.HandleAnnouncementFunc(container, "getPublished"))
	public.GET("/announcements/:id", shortCache, controllers.HandleAnnouncementFunc(container, "getPublishedAnnouncement"))

	// 咨询表单 - 每秒1个请求，最多突发3个
	public.POST("/inquiries", middleware.CombinedRateLimiter(1, 3), controllers.HandleGalleryFunc(container, "submitInquiry"))
}

// registerAuthRoutes 注册、登录与密码相关路由
func registerAuthRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	authGroup := api.Group("/auth")
	// 按IP+路径限流，每秒2个请求，最多突发5个
	authGroup.Use(middleware.CombinedRateLimiter(2, 5))

	authGroup.POST("/register/validate/:step", controllers.HandleAuthFunc(container, "validateStep"))
	authGroup.POST("/register", controllers.HandleAuthFunc(container, "register"))
	authGroup.POST("/login", controllers.HandleAuthFunc(container, "login"))
	authGroup.POST("/verify-email", controllers.HandleAuthFunc(container, "verifyEmail"))
	authGroup.POST("/resend-verification", controllers.HandleAuthFunc(container, "resendVerification"))
	authGroup.POST("/forgot-password", controllers.HandleAuthFunc(container, "forgotPassword"))
	authGroup.POST("/reset-password", controllers.HandleAuthFunc(container, "resetPassword"))

	// 以下需要登录
	authed := authGroup.Group("")
	authed.Use(middleware.Authentication())
	authed.POST("/logout", controllers.HandleAuthFunc(container, "logout"))
	authed.GET("/me", controllers.HandleAuthFunc(container, "me"))
	authed.PUT("/password", controllers.HandleAuthFunc(container, "changePassword"))
}

// registerResidentRoutes 居民端路由
func registerResidentRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	resident := api.Group("/resident")
	resident.Use(middleware.AuthenticateResident())

	resident.GET("/profile", controllers.HandleResidentFunc(container, "getProfile"))
	resident.PUT("/profile", controllers.HandleResidentFunc(container, "updateProfile"))

	resident.GET("/facilities", controllers.HandleFacilityFunc(container, "getActiveFacilities"))
	resident.GET("/facilities/:id/availability", controllers.HandleFacilityFunc(container, "getAvailability"))

	bookingGroup := resident.Group("/bookings")
	bookingGroup.GET("", controllers.HandleFacilityFunc(container, "getMyBookings"))
	bookingGroup.POST("", controllers.HandleFacilityFunc(container, "createBooking"))
	bookingGroup.GET("/:id", controllers.HandleFacilityFunc(container, "getMyBooking"))
	bookingGroup.POST("/:id/cancel", controllers.HandleFacilityFunc(container, "cancelBooking"))

	paymentGroup := resident.Group("/payments")
	paymentGroup.GET("", controllers.HandlePaymentFunc(container, "getMyPayments"))
	paymentGroup.GET("/summary", controllers.HandlePaymentFunc(container, "getMySummary"))
	paymentGroup.GET("/:id", controllers.HandlePaymentFunc(container, "getMyPayment"))
	paymentGroup.POST("/:id/pay", controllers.HandlePaymentFunc(container, "payInvoice"))

	ticketGroup := resident.Group("/tickets")
	ticketGroup.GET("", controllers.HandleTicketFunc(container, "getMyTickets"))
	ticketGroup.POST("", controllers.HandleTicketFunc(container, "createTicket"))
	ticketGroup.GET("/:id", controllers.HandleTicketFunc(container, "getMyTicket"))
	ticketGroup.POST("/:id/comments", controllers.HandleTicketFunc(container, "addMyComment"))
	ticketGroup.POST("/:id/attachments", controllers.HandleTicketFunc(container, "addMyAttachment"))
	ticketGroup.POST("/:id/close", controllers.HandleTicketFunc(container, "closeMyTicket"))

	announcementGroup := resident.Group("/announcements")
	announcementGroup.GET("", controllers.HandleAnnouncementFunc(container, "getPublished"))
	announcementGroup.GET("/unread-count", controllers.HandleAnnouncementFunc(container, "getUnreadCount"))
	announcementGroup.POST("/:id/read", controllers.HandleAnnouncementFunc(container, "markRead"))
}

// registerAdminRoutes 管理后台路由
func registerAdminRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	admin := api.Group("/admin")
	admin.Use(middleware.AuthenticateAdmin())
	// 添加通用限流中间件 - 每秒30个请求，最多突发50个请求
	admin.Use(middleware.IPRateLimiter(30, 50))

	admin.GET("/dashboard", middleware.Cache(middleware.CacheConfig{Expiration: 30 * time.Second}), controllers.HandleAdminFunc(container, "getDashboard"))
	admin.GET("/audit-logs", controllers.HandleAdminFunc(container, "getAuditLogs"))

	// 房源
	unitGroup := admin.Group("/units")
	unitGroup.GET("", controllers.HandleUnitFunc(container, "getUnits"))
	unitGroup.POST("", controllers.HandleUnitFunc(container, "createUnit"))
	unitGroup.GET("/:id", controllers.HandleUnitFunc(container, "getUnit"))
	unitGroup.PUT("/:id", controllers.HandleUnitFunc(container, "updateUnit"))
	unitGroup.DELETE("/:id", controllers.HandleUnitFunc(container, "deleteUnit"))
	unitGroup.PUT("/:id/status", controllers.HandleUnitFunc(container, "updateUnitStatus"))
	unitGroup.POST("/:id/photos", controllers.HandleUnitFunc(container, "uploadPhoto"))
	unitGroup.DELETE("/:id/photos/:photoId", controllers.HandleUnitFunc(container, "deletePhoto"))

	// 居民
	residentGroup := admin.Group("/residents")
	residentGroup.GET("", controllers.HandleResidentFunc(container, "getResidents"))
	residentGroup.GET("/:id", controllers.HandleResidentFunc(container, "getResident"))
	residentGroup.PUT("/:id", controllers.HandleResidentFunc(container, "updateResident"))
	residentGroup.DELETE("/:id", controllers.HandleResidentFunc(container, "deleteResident"))
	residentGroup.PUT("/:id/unit", controllers.HandleResidentFunc(container, "assignUnit"))
	residentGroup.PUT("/:id/status", controllers.HandleResidentFunc(container, "updateResidentStatus"))

	// 设施与预约
	facilityGroup := admin.Group("/facilities")
	facilityGroup.GET("", controllers.HandleFacilityFunc(container, "getFacilities"))
	facilityGroup.POST("", controllers.HandleFacilityFunc(container, "createFacility"))
	facilityGroup.GET("/:id", controllers.HandleFacilityFunc(container, "getFacility"))
	facilityGroup.PUT("/:id", controllers.HandleFacilityFunc(container, "updateFacility"))
	facilityGroup.DELETE("/:id", controllers.HandleFacilityFunc(container, "deleteFacility"))

	bookingGroup := admin.Group("/bookings")
	bookingGroup.GET("", controllers.HandleFacilityFunc(container, "getBookings"))
	bookingGroup.GET("/:id", controllers.HandleFacilityFunc(container, "getBooking"))
	bookingGroup.PUT("/:id/status", controllers.HandleFacilityFunc(container, "updateBookingStatus"))

	// 账单
	paymentGroup := admin.Group("/payments")
	paymentGroup.GET("", controllers.HandlePaymentFunc(container, "getPayments"))
	paymentGroup.POST("", controllers.HandlePaymentFunc(container, "createInvoice"))
	paymentGroup.POST("/bulk", controllers.HandlePaymentFunc(container, "generateMonthlyRent"))
	paymentGroup.POST("/mark-overdue", controllers.HandlePaymentFunc(container, "markOverdue"))
	paymentGroup.GET("/:id", controllers.HandlePaymentFunc(container, "getPayment"))
	paymentGroup.PUT("/:id/status", controllers.HandlePaymentFunc(container, "updatePaymentStatus"))

	// 工单
	ticketGroup := admin.Group("/tickets")
	ticketGroup.GET("", controllers.HandleTicketFunc(container, "getTickets"))
	ticketGroup.GET("/:id", controllers.HandleTicketFunc(container, "getTicket"))
	ticketGroup.PATCH("/:id", controllers.HandleTicketFunc(container, "updateTicket"))
	ticketGroup.POST("/:id/comments", controllers.HandleTicketFunc(container, "addComment"))
	ticketGroup.POST("/:id/attachments", controllers.HandleTicketFunc(container, "addAttachment"))

	// 公告
	announcementGroup := admin.Group("/announcements")
	announcementGroup.GET("", controllers.HandleAnnouncementFunc(container, "getAnnouncements"))
	announcementGroup.POST("", controllers.HandleAnnouncementFunc(container, "createAnnouncement"))
	announcementGroup.PUT("/:id", controllers.HandleAnnouncementFunc(container, "updateAnnouncement"))
	announcementGroup.PATCH("/:id/publish", controllers.HandleAnnouncementFunc(container, "publishAnnouncement"))
	announcementGroup.DELETE("/:id", controllers.HandleAnnouncementFunc(container, "deleteAnnouncement"))

	// 相册与咨询
	galleryGroup := admin.Group("/gallery")
	galleryGroup.GET("", controllers.HandleGalleryFunc(container, "getPhotos"))
	galleryGroup.POST("", controllers.HandleGalleryFunc(container, "uploadPhoto"))
	galleryGroup.PUT("/:id", controllers.HandleGalleryFunc(container, "updatePhoto"))
	galleryGroup.DELETE("/:id", controllers.HandleGalleryFunc(container, "deletePhoto"))

	inquiryGroup := admin.Group("/inquiries")
	inquiryGroup.GET("", controllers.HandleGalleryFunc(container, "getInquiries"))
	inquiryGroup.PUT("/:id/status", controllers.HandleGalleryFunc(container, "updateInquiryStatus"))

	// 通用数据表
	tableGroup := admin.Group("/tables")
	tableGroup.GET("", controllers.HandleTableFunc(container, "getTables"))
	tableGroup.GET("/:table", controllers.HandleTableFunc(container, "fetchRows"))
	tableGroup.POST("/:table", controllers.HandleTableFunc(container, "insertRow"))
	tableGroup.PATCH("/:table", controllers.HandleTableFunc(container, "updateRows"))
	tableGroup.DELETE("/:table", controllers.HandleTableFunc(container, "deleteRows"))
}

// registerSharedRoutes 居民和管理员都可访问的路由
func registerSharedRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	notificationGroup := api.Group("/notifications")
	notificationGroup.Use(middleware.Authentication())
	notificationGroup.GET("", controllers.HandleNotificationFunc(container, "getNotifications"))
	notificationGroup.GET("/unread-count", controllers.HandleNotificationFunc(container, "getUnreadCount"))
	notificationGroup.PUT("/read-all", controllers.HandleNotificationFunc(container, "markAllRead"))
	notificationGroup.PUT("/:id/read", controllers.HandleNotificationFunc(container, "markRead"))

	// WebSocket 握手无法带 Authorization 头，令牌通过 ?token= 传递
	api.GET("/realtime/:table", middleware.Authentication(), controllers.HandleRealtimeFunc(container, "subscribe"))
}
