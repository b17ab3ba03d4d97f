package services

import (
	"bakerapi/pkg/logger"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// 过期邀请行保留天数，留出排查窗口后再物理删除
const expiredInviteRetentionDays = 30

// CleanupService 定时清理服务
type CleanupService struct {
	log           *logrus.Logger
	cron          *cron.Cron
	inviteService *InviteService
}

// NewCleanupService 创建清理服务
func NewCleanupService() *CleanupService {
	return &CleanupService{
		log:           logger.GetLogger(),
		cron:          cron.New(),
		inviteService: NewInviteService(),
	}
}

// Start 启动定时任务，每天凌晨3点清理一次
func (s *CleanupService) Start() error {
	_, err := s.cron.AddFunc("0 3 * * *", s.purgeExpiredInvites)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("定时清理服务已启动")
	return nil
}

// Stop 停止定时任务
func (s *CleanupService) Stop() {
	s.cron.Stop()
	s.log.Info("定时清理服务已停止")
}

// purgeExpiredInvites 删除过期超过保留期的邀请行
func (s *CleanupService) purgeExpiredInvites() {
	cutoff := time.Now().AddDate(0, 0, -expiredInviteRetentionDays)
	deleted, err := s.inviteService.DeleteExpiredBefore(cutoff)
	if err != nil {
		s.log.Errorf("清理过期邀请失败: %v", err)
		return
	}
	if deleted > 0 {
		s.log.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format("2006-01-02"),
		}).Info("已清理过期邀请")
	}
}
