package container

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/storage"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/test/testdb"
)

func TestServiceContainerWiresEveryService(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := &config.Config{JWTSecretKey: "test-secret"}

	c := NewServiceContainer(testdb.New(t), cfg, client, storage.NewMemoryStore("http://files.local"), nil)

	names := []string{
		"config", "db", "hub", "redis", "jwt", "otp", "wizard", "table", "auth", "notification",
		"audit", "unit", "resident", "facility", "payment", "ticket", "announcement", "gallery", "dashboard",
	}
	for _, name := range names {
		assert.NotNil(t, c.GetService(name), name)
	}
	assert.Nil(t, c.GetService("unknown"))
	assert.True(t, c.HasRedis())
	assert.True(t, c.HasStorage())
	assert.NotNil(t, c.GetHub())

	_, ok := c.GetService("otp").(*services.FallbackOTPStore)
	assert.True(t, ok)
	_, ok = c.GetService("table").(services.InterfaceTableService)
	assert.True(t, ok)
}

func TestServiceContainerWithoutRedis(t *testing.T) {
	cfg := &config.Config{JWTSecretKey: "test-secret"}
	c := NewServiceContainer(testdb.New(t), cfg, nil, nil, nil)

	assert.False(t, c.HasRedis())
	assert.False(t, c.HasStorage())
	assert.Nil(t, c.GetService("redis"))
	_, ok := c.GetService("otp").(*services.DBOTPStore)
	assert.True(t, ok)
}

func TestServiceContainerPanicsWithoutDB(t *testing.T) {
	assert.Panics(t, func() { NewServiceContainer(nil, &config.Config{}, nil, nil, nil) })
}
