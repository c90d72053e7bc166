package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
	"github.com/pramacoder/BookingApartSystem-sub000/pkg/utils"

	"gorm.io/gorm"
)

// Migrate 根据配置的迁移模式执行数据库迁移
func Migrate(db *gorm.DB, mode string) error {
	if mode == "drop" {
		log.Println("警告: 在drop模式下运行，将删除并重建所有表")
		return DropAndRecreateTables(db)
	}
	log.Println("在标准模式下运行，将只添加新列和新表")
	return AutoMigrate(db)
}

// AutoMigrate 自动迁移所有模型（只添加新列和新表）
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return err
	}
	log.Println("Database migration completed")
	return nil
}

// DropAndRecreateTables 删除并重建所有表，所有数据将丢失
func DropAndRecreateTables(db *gorm.DB) error {
	all := models.AllModels()
	// 倒序删除，先删依赖表
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", all[i], err)
		}
	}
	log.Println("正在重新创建所有表")
	return AutoMigrate(db)
}

// EnsureAdminExists 确保系统中至少有一个管理员账户
func EnsureAdminExists(db *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if cfg.DefaultAdminPassword == "" {
		return errors.New("未配置默认管理员密码")
	}
	hashedPassword, err := utils.HashPassword(cfg.DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("生成密码哈希失败: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := models.User{
			Email:         cfg.DefaultAdminEmail,
			Password:      hashedPassword,
			Role:          models.RoleAdmin,
			Status:        models.UserStatusActive,
			EmailVerified: true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("创建默认管理员失败: %w", err)
		}
		admin := models.Admin{
			UserID:   user.ID,
			FullName: "System Administrator",
			Position: "system_admin",
		}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("创建管理员档案失败: %w", err)
		}
		log.Printf("已创建默认管理员账户 (邮箱: %s)", user.Email)
		return nil
	})
}
