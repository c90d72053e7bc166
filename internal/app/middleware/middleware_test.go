package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT(t *testing.T) services.InterfaceJWTService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	svc := services.NewJWTService(&config.Config{JWTSecretKey: "test-secret", JWTExpireHours: 1}, nil, services.NewRedisServiceWithClient(client))
	InitAuthMiddleware(svc)
	t.Cleanup(func() { InitAuthMiddleware(nil) })
	return svc
}

func protectedRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/secure", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": CurrentUserID(c), "role": CurrentRole(c)})
	})
	return r
}

func doRequest(r http.Handler, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestRequireRoles(t *testing.T) {
	svc := newJWT(t)
	admin, err := svc.GenerateToken("admin-1", models.RoleAdmin)
	require.NoError(t, err)
	resident, err := svc.GenerateToken("resident-1", models.RoleResident)
	require.NoError(t, err)

	r := protectedRouter(AuthenticateAdmin())

	w := doRequest(r, "/secure", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, code.ErrTokenInvalid, errorCode(t, w))

	w = doRequest(r, "/secure", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, "/secure", resident.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, code.ErrForbidden, errorCode(t, w))

	w = doRequest(r, "/secure", admin.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"admin-1","role":"admin"}`, w.Body.String())

	anyRole := protectedRouter(Authentication())
	assert.Equal(t, http.StatusOK, doRequest(anyRole, "/secure", resident.Token).Code)
	assert.Equal(t, http.StatusOK, doRequest(anyRole, "/secure?token="+resident.Token, "").Code)
}

func TestRevokedTokenRejected(t *testing.T) {
	svc := newJWT(t)
	issued, err := svc.GenerateToken("resident-1", models.RoleResident)
	require.NoError(t, err)
	r := protectedRouter(AuthenticateResident())

	require.Equal(t, http.StatusOK, doRequest(r, "/secure", issued.Token).Code)
	require.NoError(t, svc.RevokeToken(context.Background(), issued.TokenID, issued.ExpiresAt))
	w := doRequest(r, "/secure", issued.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.GET("/limited", IPRateLimiter(0.001, 2), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, doRequest(r, "/limited", "").Code)
	assert.Equal(t, http.StatusNoContent, doRequest(r, "/limited", "").Code)
	w := doRequest(r, "/limited", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, code.ErrTooManyRequests, errorCode(t, w))
}

func TestLimiterStoreSweep(t *testing.T) {
	store := newLimiterStore()
	bucket := store.get("1.2.3.4", RateLimiterConfig{Rate: 1, Burst: 1})
	assert.Same(t, bucket, store.get("1.2.3.4", RateLimiterConfig{Rate: 1, Burst: 1}))

	bucket.lastRefill = time.Now().Add(-2 * time.Hour)
	assert.Equal(t, 1, store.sweep(time.Hour))
	assert.NotSame(t, bucket, store.get("1.2.3.4", RateLimiterConfig{Rate: 1, Burst: 1}))
}

func TestCacheServesRepeatedGet(t *testing.T) {
	PurgeCache()
	t.Cleanup(PurgeCache)

	hits := 0
	r := gin.New()
	r.GET("/api/public/units", Cache(CacheConfig{Expiration: time.Minute}), func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"hits": hits})
	})

	first := doRequest(r, "/api/public/units?page=1", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := doRequest(r, "/api/public/units?page=1", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, hits)

	doRequest(r, "/api/public/units?page=2", "")
	assert.Equal(t, 2, hits)
	assert.Equal(t, 2, CacheStats()["total_items"])

	PurgeCacheByPrefix("/api/public/units")
	doRequest(r, "/api/public/units?page=1", "")
	assert.Equal(t, 3, hits)
}

func TestCacheSkipsErrors(t *testing.T) {
	PurgeCache()
	t.Cleanup(PurgeCache)

	r := gin.New()
	r.GET("/broken", Cache(), func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	doRequest(r, "/broken", "")
	assert.Equal(t, 0, CacheStats()["total_items"])
}
