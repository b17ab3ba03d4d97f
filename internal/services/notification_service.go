package services

import (
	"bakerapi/internal/database"
	"bakerapi/internal/models"
	"bakerapi/pkg/logger"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationService 站内通知服务
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService 创建通知服务
func NewNotificationService() *NotificationService {
	return &NotificationService{db: database.GetDB()}
}

// Create 写入通知。通知失败不应阻断主流程，调用方可忽略返回错误。
func (s *NotificationService) Create(recipientID uint, eventType, title, body string, payload interface{}) error {
	notification := &models.Notification{
		RecipientID: recipientID,
		EventType:   eventType,
		Title:       title,
		Body:        body,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err == nil {
			notification.Payload = datatypes.JSON(data)
		}
	}
	return s.db.Create(notification).Error
}

// List 分页查询通知，unreadOnly为true时只返回未读
func (s *NotificationService) List(recipientID uint, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	query := s.db.Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计通知失败")
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询通知失败")
	}
	return notifications, total, nil
}

// MarkRead 标记单条通知为已读
func (s *NotificationService) MarkRead(recipientID, notificationID uint) error {
	now := time.Now()
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", notificationID, recipientID).
		Update("read_at", &now)
	if result.Error != nil {
		return fmt.Errorf("更新通知失败")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("通知不存在或已读")
	}
	return nil
}

// MarkAllRead 标记全部通知为已读
func (s *NotificationService) MarkAllRead(recipientID uint) (int64, error) {
	now := time.Now()
	result := s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Update("read_at", &now)
	if result.Error != nil {
		return 0, fmt.Errorf("更新通知失败")
	}
	return result.RowsAffected, nil
}

// notifyClientCreated 客户档案由受访链接创建时通知咨询师。
// 失败只记日志，不影响绑定流程。
func notifyClientCreated(ownerID uint, client *models.Client) {
	svc := NewNotificationService()
	err := svc.Create(ownerID, models.EventTypeClientCreated,
		"新客户档案",
		fmt.Sprintf("受访者 %s 通过邀请链接创建了客户档案", client.DisplayName()),
		map[string]interface{}{
			"client_id":   client.ID,
			"client_slug": client.Slug,
		})
	if err != nil {
		logger.GetLogger().Warnf("客户创建通知写入失败: %v", err)
	}
}

// notifyAssessmentCompleted 量表作答完成时通知咨询师
func notifyAssessmentCompleted(ownerID uint, assessment *models.Assessment, client *models.Client) {
	svc := NewNotificationService()
	body := fmt.Sprintf("量表《%s》收到新的作答", assessment.Title)
	payload := map[string]interface{}{
		"assessment_id":   assessment.ID,
		"assessment_slug": assessment.Slug,
	}
	if client != nil {
		body = fmt.Sprintf("客户 %s 完成了量表《%s》", client.DisplayName(), assessment.Title)
		payload["client_id"] = client.ID
	}
	err := svc.Create(ownerID, models.EventTypeAssessmentCompleted, "量表作答完成", body, payload)
	if err != nil {
		logger.GetLogger().Warnf("作答完成通知写入失败: %v", err)
	}
}

// notifyScheduleSent 周期邀请计划创建成功后通知咨询师
func notifyScheduleSent(ownerID uint, schedule *models.RespondentInviteSchedule, runCount int) {
	svc := NewNotificationService()
	err := svc.Create(ownerID, models.EventTypeScheduleSent,
		"周期邀请已安排",
		fmt.Sprintf("已为客户安排 %d 次周期邀请发送", runCount),
		map[string]interface{}{
			"schedule_reference": schedule.Reference.String(),
			"run_count":          runCount,
		})
	if err != nil {
		logger.GetLogger().Warnf("计划通知写入失败: %v", err)
	}
}
