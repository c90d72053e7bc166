// @title           Apartment Booking Service API
// @version         1.0
// @description     公寓租赁与物业管理后端：房源、居民、设施预约、账单、工单、公告

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Enter the token with the `Bearer: ` prefix
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/routes"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/database"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
	Logger "github.com/pramacoder/BookingApartSystem-sub000/pkg/logger"
)

// MQTT 连接的最大重试次数
const mqttConnectRetries = 5

func main() {
	// 初始化日志配置
	if err := Logger.SetupLogger(); err != nil {
		fmt.Printf("初始化日志配置失败: %v\n", err)
		os.Exit(1)
	}

	// 加载.env文件
	if err := godotenv.Load(); err != nil {
		Logger.Warning("无法加载.env文件: %v", err)
		// 即使加载失败也继续执行，可能环境变量已经通过其他方式设置
	} else {
		Logger.Info("成功加载.env文件")
	}

	// 获取配置
	cfg := config.GetConfig()
	Logger.SetLevel(cfg.LogLevel)
	if cfg.EnvType == "SERVER" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建数据库连接池
	pool, err := database.NewConnectionPool(cfg)
	if err != nil {
		Logger.Error("无法创建数据库连接池: %v", err)
		os.Exit(1)
	}
	defer pool.Close()
	db := pool.GetDB()

	if err := database.Migrate(db, cfg.DBMigrationMode); err != nil {
		Logger.Error("数据库迁移失败: %v", err)
		os.Exit(1)
	}

	// 确保系统中有管理员账户
	if err := database.EnsureAdminExists(db, cfg); err != nil {
		Logger.Error("创建默认管理员失败: %v", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	store := newObjectStore(cfg)

	hub := realtime.NewHub()
	if cfg.MQTTEnabled {
		bridge := realtime.NewMQTTBridge(cfg, hub)
		go func() {
			if err := bridge.Connect(mqttConnectRetries); err != nil {
				Logger.Error("%v，数据变更不会转发到MQTT", err)
				return
			}
			bridge.Start()
		}()
		defer bridge.Stop()
	}

	// 服务容器内部检测Redis，不可用时退回数据库实现
	serviceContainer := container.NewServiceContainer(db, cfg, redisClient, store, hub)
	r := routes.SetupRouter(serviceContainer, cfg)

	printSystemInfo(pool)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		Logger.Info("服务器启动在: http://0.0.0.0:%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Error("启动服务器失败: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	Logger.Info("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		Logger.Error("关闭服务器失败: %v", err)
	}
	Logger.Info("服务器已停止")
}

// newObjectStore 未配置 MinIO 时使用内存存储，文件由本服务的 /files 路由提供，重启后丢失
func newObjectStore(cfg *config.Config) storage.ObjectStore {
	if cfg.MinioEndpoint == "" {
		Logger.Warning("未配置MINIO_ENDPOINT，使用内存对象存储，文件通过 /files 下载，重启后丢失")
		return storage.NewMemoryStore("http://localhost:" + cfg.ServerPort + "/files")
	}

	store, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
		cfg.MinioBucket, cfg.MinioUseSSL, cfg.MinioPublicURL)
	if err != nil {
		Logger.Error("连接MinIO失败: %v，使用内存对象存储", err)
		return storage.NewMemoryStore("http://localhost:" + cfg.ServerPort + "/files")
	}
	Logger.Info("MinIO对象存储已连接，存储桶: %s", cfg.MinioBucket)
	return store
}

// printSystemInfo 打印系统信息
func printSystemInfo(pool *database.ConnectionPool) {
	// 打印数据库连接池信息
	stats, err := pool.Stats()
	if err == nil {
		Logger.Info("数据库连接池状态: %+v", stats)
	}

	// 打印系统资源信息
	Logger.Info("系统CPU核心数: %d, 当前Go协程数: %d", runtime.NumCPU(), runtime.NumGoroutine())

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	Logger.Info("系统内存使用: Alloc=%v MiB, TotalAlloc=%v MiB, Sys=%v MiB",
		m.Alloc/1024/1024, m.TotalAlloc/1024/1024, m.Sys/1024/1024)
}
