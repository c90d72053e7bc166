package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/app/middleware"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services/container"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/database"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/realtime"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/test/testdb"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/utils"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Admin12345"
)

var otpPattern = regexp.MustCompile(`\d{6}`)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	store  *storage.MemoryStore
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.PurgeCache()

	db := testdb.New(t)
	cfg := &config.Config{
		JWTSecretKey:         "test-secret",
		JWTExpireHours:       1,
		CORSAllowOrigin:      "*",
		DefaultAdminEmail:    adminEmail,
		DefaultAdminPassword: adminPassword,
	}
	require.NoError(t, database.EnsureAdminExists(db, cfg))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := storage.NewMemoryStore("http://files.local/files")
	c := container.NewServiceContainer(db, cfg, client, store, realtime.NewHub())
	return &testEnv{t: t, db: db, store: store, router: SetupRouter(c, cfg)}
}

func (e *testEnv) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (e *testEnv) login(email, password string) string {
	e.t.Helper()
	w, env := e.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(e.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(e.t, data.Token)
	return data.Token
}

func (e *testEnv) seedResident(email string, status models.ResidentStatus) *models.Resident {
	e.t.Helper()
	hashed, err := utils.HashPassword("secret123")
	require.NoError(e.t, err)
	user := &models.User{Email: email, Password: hashed, Role: models.RoleResident, Status: models.UserStatusActive, EmailVerified: true}
	require.NoError(e.t, e.db.Create(user).Error)
	resident := &models.Resident{UserID: user.ID, FullName: "Budi Santoso", Phone: "+6281234567890", Status: status, Occupants: 1}
	require.NoError(e.t, e.db.Create(resident).Error)
	return resident
}

func registration(email string) gin.H {
	return gin.H{
		"email":                   email,
		"password":                "secret123",
		"confirm_password":        "secret123",
		"full_name":               "Budi Santoso",
		"phone":                   "+6281234567890",
		"date_of_birth":           "1990-04-12",
		"id_number":               "3171234567890001",
		"move_in_date":            time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
		"occupants":               2,
		"emergency_contact_name":  "Siti",
		"emergency_contact_phone": "+6281298765432",
		"accept_terms":            true,
		"accept_privacy":          true,
	}
}

func TestPingAndHealthStatus(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(http.MethodGet, "/api/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := env.do(http.MethodGet, "/api/health/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.Equal(t, "healthy", status["status"])
	assert.Equal(t, "up", status["redis"].(map[string]interface{})["status"])
	assert.Equal(t, "configured", status["storage"].(map[string]interface{})["status"])
}

func TestRegisterVerifyAndLogin(t *testing.T) {
	env := newTestEnv(t)
	email := "budi@example.com"

	// 第1步校验失败时返回字段错误
	bad := registration(email)
	bad["confirm_password"] = "different1"
	w, resp := env.do(http.MethodPost, "/api/auth/register/validate/1", "", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrValidation, resp.Code)
	assert.Contains(t, string(resp.Data), "confirm_password")

	w, _ = env.do(http.MethodPost, "/api/auth/register", "", registration(email))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp = env.do(http.MethodPost, "/api/auth/register", "", registration(email))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, code.ErrUserAlreadyExist, resp.Code)

	w, resp = env.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": "secret123"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, code.ErrEmailNotVerified, resp.Code)

	// 验证码通过站内通知投递
	var user models.User
	require.NoError(t, env.db.Where("email = ?", email).Take(&user).Error)
	var note models.Notification
	require.NoError(t, env.db.Where("user_id = ? AND title = ?", user.ID, "邮箱验证码").Order("id DESC").Take(&note).Error)
	otp := otpPattern.FindString(note.Message)
	require.NotEmpty(t, otp)

	w, _ = env.do(http.MethodPost, "/api/auth/verify-email", "", gin.H{"email": email, "code": otp})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	token := env.login(email, "secret123")

	w, resp = env.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), email)

	w, _ = env.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, code.ErrTokenInvalid, resp.Code)
}

func TestMemoryStoreFilesAreServed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.Put(ctx, "units/1/photo.png", strings.NewReader("png-bytes"), 9, "image/png"))

	url, err := env.store.URL(ctx, "units/1/photo.png")
	require.NoError(t, err)
	assert.Equal(t, "http://files.local/files/units/1/photo.png", url)

	req := httptest.NewRequest(http.MethodGet, "/files/units/1/photo.png", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", w.Body.String())

	w, resp := env.do(http.MethodGet, "/files/units/1/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, code.ErrRecordNotFound, resp.Code)
}

func TestRoleEnforcement(t *testing.T) {
	env := newTestEnv(t)
	env.seedResident("resident@example.com", models.ResidentStatusActive)
	residentToken := env.login("resident@example.com", "secret123")
	adminToken := env.login(adminEmail, adminPassword)

	w, resp := env.do(http.MethodGet, "/api/admin/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, code.ErrTokenInvalid, resp.Code)

	w, resp = env.do(http.MethodGet, "/api/admin/dashboard", residentToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, code.ErrForbidden, resp.Code)

	w, _ = env.do(http.MethodGet, "/api/resident/profile", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = env.do(http.MethodGet, "/api/resident/profile", residentToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(http.MethodGet, "/api/admin/dashboard", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 通知接口两种角色都可访问
	w, _ = env.do(http.MethodGet, "/api/notifications", residentToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(http.MethodGet, "/api/notifications", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookingConflictReturnsConflict(t *testing.T) {
	env := newTestEnv(t)
	env.seedResident("resident@example.com", models.ResidentStatusActive)
	facility := &models.Facility{
		Name:       "Meeting Room",
		Capacity:   10,
		OpenTime:   "06:00",
		CloseTime:  "22:00",
		HourlyRate: 50000,
		Status:     models.FacilityStatusActive,
	}
	require.NoError(t, env.db.Create(facility).Error)
	token := env.login("resident@example.com", "secret123")

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	at := func(hour int) time.Time {
		return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, 0, 0, 0, time.UTC)
	}
	booking := gin.H{"facility_id": facility.ID, "start_time": at(10), "end_time": at(12), "attendees": 4}

	w, resp := env.do(http.MethodPost, "/api/resident/bookings", token, booking)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.FacilityBooking
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, models.BookingStatusConfirmed, created.Status)
	assert.True(t, strings.HasPrefix(created.BookingNumber, "BK"))

	overlap := gin.H{"facility_id": facility.ID, "start_time": at(11), "end_time": at(13), "attendees": 2}
	w, resp = env.do(http.MethodPost, "/api/resident/bookings", token, overlap)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, code.ErrBookingConflict, resp.Code)

	crowd := gin.H{"facility_id": facility.ID, "start_time": at(14), "end_time": at(15), "attendees": 50}
	w, resp = env.do(http.MethodPost, "/api/resident/bookings", token, crowd)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrValidation, resp.Code)

	// 有费用的预约会生成设施账单
	w, resp = env.do(http.MethodGet, "/api/resident/payments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"total":1`)

	w, _ = env.do(http.MethodGet, fmt.Sprintf("/api/resident/bookings/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminTablesAPI(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(adminEmail, adminPassword)

	w, resp := env.do(http.MethodGet, "/api/admin/tables", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"units"`)
	assert.NotContains(t, string(resp.Data), "otp_codes")

	unit := gin.H{"unit_number": "B-201", "name": "Tower B Studio", "type": "studio", "monthly_rent": 2500000, "status": "available"}
	w, resp = env.do(http.MethodPost, "/api/admin/tables/units", token, unit)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var row map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &row))
	id := int(row["id"].(float64))

	w, resp = env.do(http.MethodGet, "/api/admin/tables/units?eq.status=available&select=id,unit_number&order=id.desc&limit=5", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "B-201", rows[0]["unit_number"])
	assert.NotContains(t, rows[0], "monthly_rent")

	w, resp = env.do(http.MethodGet, "/api/admin/tables/users", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, string(resp.Data), "password")

	w, resp = env.do(http.MethodGet, "/api/admin/tables/otp_codes", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrUnknownTable, resp.Code)

	w, resp = env.do(http.MethodGet, "/api/admin/tables/units?eq.bogus=1", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrInvalidColumn, resp.Code)

	w, resp = env.do(http.MethodPatch, "/api/admin/tables/units", token, gin.H{"status": "maintenance"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrValidation, resp.Code)

	w, resp = env.do(http.MethodPatch, fmt.Sprintf("/api/admin/tables/units?eq.id=%d", id), token, gin.H{"status": "maintenance"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(resp.Data), "maintenance")

	w, resp = env.do(http.MethodDelete, fmt.Sprintf("/api/admin/tables/units?eq.id=%d", id), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":1}`, string(resp.Data))

	var audits int64
	require.NoError(t, env.db.Model(&models.AuditLog{}).Where("target = ?", "units").Count(&audits).Error)
	assert.Equal(t, int64(3), audits)
}

func TestPublicCachePurgedAfterAdminChange(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(adminEmail, adminPassword)

	w, resp := env.do(http.MethodGet, "/api/public/units", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"total":0`)

	unit := gin.H{"unit_number": "A-1203", "name": "Tower A 两居室", "type": "2br", "monthly_rent": 3500000}
	w, _ = env.do(http.MethodPost, "/api/admin/units", token, unit)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp = env.do(http.MethodGet, "/api/public/units", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"total":1`)
	assert.Contains(t, string(resp.Data), "A-1203")
}

func TestRealtimeSubscription(t *testing.T) {
	env := newTestEnv(t)
	env.seedResident("resident@example.com", models.ResidentStatusActive)
	residentToken := env.login("resident@example.com", "secret123")
	adminToken := env.login(adminEmail, adminPassword)

	server := httptest.NewServer(env.router)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/realtime/"

	// 居民不能订阅任意表
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"users?token="+residentToken, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"announcements?token="+residentToken, nil)
	require.NoError(t, err)
	defer conn.Close()

	// 草稿不会推送给居民，第一条收到的事件是已发布的公告
	draft := gin.H{"title": "租金调整草稿", "content": "明年租金上调", "is_published": false}
	w, _ := env.do(http.MethodPost, "/api/admin/announcements", adminToken, draft)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	announcement := gin.H{"title": "停水通知", "content": "周六检修水管", "is_published": true}
	w, _ = env.do(http.MethodPost, "/api/admin/announcements", adminToken, announcement)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event realtime.ChangeEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "announcements", event.Table)
	assert.Equal(t, realtime.EventInsert, event.Type)
	require.Len(t, event.New, 1)
	assert.Equal(t, "停水通知", event.New[0]["title"])
}
