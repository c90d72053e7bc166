package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T, prefix string) {
	t.Setenv(prefix+"DB_HOST", "db.internal")
	t.Setenv(prefix+"DB_USER", "apartment")
	t.Setenv(prefix+"DB_PASSWORD", "secret")
	t.Setenv(prefix+"DB_NAME", "apartment")
	t.Setenv("DEFAULT_ADMIN_PASSWORD", "admin12345")
}

func TestLoadConfigLocalPrefix(t *testing.T) {
	t.Setenv("ENV_TYPE", "local")
	setRequired(t, "LOCAL_")
	t.Setenv("LOCAL_SERVER_PORT", "9090")
	t.Setenv("OTP_TTL_MINUTES", "5")

	cfg := LoadConfig()

	assert.Equal(t, "local", cfg.EnvType)
	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Contains(t, cfg.GetDSN(), "host=db.internal")
	assert.Contains(t, cfg.GetDSN(), "sslmode=disable")
}

func TestLoadConfigServerPrefix(t *testing.T) {
	t.Setenv("ENV_TYPE", "SERVER")
	setRequired(t, "SERVER_")
	t.Setenv("SERVER_REDIS_HOST", "redis")
	t.Setenv("SERVER_REDIS_PORT", "6380")

	cfg := LoadConfig()

	assert.Equal(t, "redis:6380", cfg.GetRedisAddr())
}

func TestLoadConfigPanicsWithoutRequired(t *testing.T) {
	t.Setenv("ENV_TYPE", "LOCAL")
	t.Setenv("LOCAL_DB_HOST", "")

	assert.Panics(t, func() { LoadConfig() })
}

func TestJWTExpirationDefault(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiration())

	cfg.JWTExpireHours = 2
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiration())
}
