package database

import (
	"bakerapi/internal/models"
	"bakerapi/pkg/logger"
)

// Migrate 执行数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := DB.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.ClientGroup{},
		&models.ClientGroupMembership{},
		&models.AssessmentCategory{},
		&models.AssessmentTag{},
		&models.Assessment{},
		&models.AssessmentQuestion{},
		&models.AssessmentScoringConfig{},
		&models.AssessmentResponse{},
		// 受访者邀请
		&models.RespondentInvite{},
		&models.RespondentInviteSchedule{},
		&models.RespondentInviteScheduleRun{},
		// 通知
		&models.Notification{},
	)

	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")

	return nil
}
