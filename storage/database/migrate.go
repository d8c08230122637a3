package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"GreenNest/internal/model"
	"GreenNest/pkg/logger"
)

// Migrate 创建或更新账户表，测试中对 sqlite 也可直接调用
func Migrate(db *gorm.DB) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	if err := db.AutoMigrate(&model.Account{}); err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	logger.Logger.Info("Database migration completed successfully")
	return nil
}
