package benchmark

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/middleware"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/routes"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/database"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/test/testdb"
)

// 测试配置
type TestConfig struct {
	BaseURL     string `json:"base_url"`
	AdminEmail  string `json:"admin_email"`
	AdminPass   string `json:"admin_pass"`
	Concurrency int    `json:"concurrency"`
	Requests    int    `json:"requests"`
}

var benchConfig TestConfig

// TestMain 测试主函数
func TestMain(m *testing.M) {
	// 加载测试配置
	if err := loadConfig(); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	gin.SetMode(gin.TestMode)

	// 运行测试
	os.Exit(m.Run())
}

// loadConfig 加载测试配置，base_url 为空时压测进程内启动的服务
func loadConfig() error {
	// 默认配置
	benchConfig = TestConfig{
		AdminEmail:  "admin@example.com",
		AdminPass:   "Admin12345",
		Concurrency: 4,
		Requests:    40,
	}

	// 尝试从文件加载配置
	data, err := os.ReadFile("test_config.json")
	if err == nil {
		if err := json.Unmarshal(data, &benchConfig); err != nil {
			return fmt.Errorf("解析配置文件失败: %v", err)
		}
	}
	return nil
}

// newTarget 返回指向被测服务的压测器，已用管理员登录
func newTarget(tb testing.TB) *APIBenchmark {
	tb.Helper()
	baseURL := benchConfig.BaseURL
	if baseURL == "" {
		baseURL = startServer(tb) + "/api"
	}

	bench := NewAPIBenchmark(baseURL, benchConfig.Concurrency, benchConfig.Requests, "")
	token, err := bench.Login(benchConfig.AdminEmail, benchConfig.AdminPass)
	require.NoError(tb, err)
	bench.AuthToken = token
	bench.SpreadClients = true
	return bench
}

// startServer 在内存数据库上启动完整路由
func startServer(tb testing.TB) string {
	tb.Helper()
	middleware.PurgeCache()

	db := testdb.New(tb)
	cfg := &config.Config{
		JWTSecretKey:         "bench-secret",
		JWTExpireHours:       1,
		CORSAllowOrigin:      "*",
		DefaultAdminEmail:    benchConfig.AdminEmail,
		DefaultAdminPassword: benchConfig.AdminPass,
	}
	require.NoError(tb, database.EnsureAdminExists(db, cfg))

	for i := 1; i <= 20; i++ {
		unit := &models.Unit{
			UnitNumber:  fmt.Sprintf("A-%02d01", i),
			Name:        fmt.Sprintf("Tower A %d层", i),
			Type:        "2br",
			MonthlyRent: 3500000,
			Status:      models.UnitStatusAvailable,
		}
		require.NoError(tb, db.Create(unit).Error)
	}

	c := container.NewServiceContainer(db, cfg, nil, storage.NewMemoryStore("http://files.local"), realtime.NewHub())
	server := httptest.NewServer(routes.SetupRouter(c, cfg))
	tb.Cleanup(server.Close)
	return server.URL
}

func assertAllSucceeded(t *testing.T, name string, result *BenchmarkResult) {
	t.Helper()
	result.PrintResult()
	assert.Zero(t, result.FailureCount, "%s接口测试失败: 成功率 %.2f%%", name, result.SuccessRate())
}

// TestPublicUnitList 测试公开房源列表接口
func TestPublicUnitList(t *testing.T) {
	bench := newTarget(t)
	bench.AuthToken = ""
	assertAllSucceeded(t, "公开房源列表", bench.RunGET("/public/units?page_size=10"))
}

// TestAdminDashboard 测试管理后台统计接口
func TestAdminDashboard(t *testing.T) {
	bench := newTarget(t)
	assertAllSucceeded(t, "后台统计", bench.RunGET("/admin/dashboard"))
}

// TestAdminTableFetch 测试通用数据表查询接口
func TestAdminTableFetch(t *testing.T) {
	bench := newTarget(t)
	assertAllSucceeded(t, "数据表查询", bench.RunGET("/admin/tables/units?eq.status=available&order=unit_number.desc&limit=10"))
}

// TestUnauthorizedRequestsFail 未登录访问后台接口全部失败
func TestUnauthorizedRequestsFail(t *testing.T) {
	bench := newTarget(t)
	bench.AuthToken = ""
	result := bench.RunGET("/admin/dashboard")
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, result.TotalRequests, result.StatusCodes[401])
}

func TestPercentile(t *testing.T) {
	durations := make([]time.Duration, 0, 100)
	for i := 1; i <= 100; i++ {
		durations = append(durations, time.Duration(i)*time.Millisecond)
	}
	assert.Equal(t, durations[49], percentile(durations, 50))
	assert.Equal(t, durations[94], percentile(durations, 95))
	assert.Equal(t, durations[99], percentile(durations, 100))
	assert.Zero(t, percentile(nil, 95))
}

// BenchmarkPublicUnitList 单请求路径的 go test -bench 版本
func BenchmarkPublicUnitList(b *testing.B) {
	bench := newTarget(b)
	bench.AuthToken = ""
	bench.Concurrency = 1
	bench.Requests = 1
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if r := bench.do("GET", bench.BaseURL+"/public/units", nil); r.Error != nil {
			b.Fatal(r.Error)
		}
	}
}
