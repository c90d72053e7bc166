// Package testdb 为单元测试提供内存 SQLite 数据库
package testdb

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
)

// Open 打开一个空的内存数据库。内存库按连接隔离，所以连接池固定为1
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// New 打开内存数据库并迁移全部模型
func New(t testing.TB) *gorm.DB {
	t.Helper()
	db := Open(t)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}
