package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/test/testdb"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/utils"
)

func openTestDB(t *testing.T) *gorm.DB {
	return testdb.Open(t)
}

func TestMigrateAndSeedAdmin(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db, "auto"))

	cfg := &config.Config{DefaultAdminEmail: "root@apartment.local", DefaultAdminPassword: "admin12345"}
	require.NoError(t, EnsureAdminExists(db, cfg))
	// 第二次调用不应重复创建
	require.NoError(t, EnsureAdminExists(db, cfg))

	var users []models.User
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).Find(&users).Error)
	require.Len(t, users, 1)
	assert.True(t, users[0].EmailVerified)
	assert.True(t, utils.CheckPasswordHash("admin12345", users[0].Password))

	var admin models.Admin
	require.NoError(t, db.Where("user_id = ?", users[0].ID).First(&admin).Error)
}

func TestDropAndRecreate(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))
	require.NoError(t, db.Create(&models.Unit{UnitNumber: "A-101", Name: "Studio"}).Error)

	require.NoError(t, Migrate(db, "drop"))

	var count int64
	require.NoError(t, db.Model(&models.Unit{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPoolStatsFromDB(t *testing.T) {
	pool := NewConnectionPoolFromDB(openTestDB(t))
	require.NoError(t, pool.HealthCheck())

	stats, err := pool.Stats()
	require.NoError(t, err)
	assert.Contains(t, stats, "open_connections")
}
