package services

import (
	"bakerapi/internal/database"
	"bakerapi/internal/models"
	"bakerapi/pkg/logger"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 邀请存储层错误
var (
	ErrInviteNotFound  = errors.New("邀请不存在")
	ErrInviteExhausted = errors.New("邀请使用次数已耗尽")
	ErrInviteConflict  = errors.New("邀请更新冲突，请重试")
)

// InviteService 邀请行存储。所有写操作在事务内以 FOR UPDATE 锁行，
// 锁冲突时重试一次后放弃。
type InviteService struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewInviteService 创建邀请存储服务
func NewInviteService() *InviteService {
	return &InviteService{
		db:  database.GetDB(),
		log: logger.GetLogger(),
	}
}

// Create 写入一条新邀请行
func (s *InviteService) Create(tx *gorm.DB, invite *models.RespondentInvite) error {
	if tx == nil {
		tx = s.db
	}
	if err := tx.Create(invite).Error; err != nil {
		s.log.Errorf("创建邀请失败: %v", err)
		return errors.New("创建邀请失败")
	}
	return nil
}

// FindByToken 按令牌查询邀请行，只读不加锁
func (s *InviteService) FindByToken(token string) (*models.RespondentInvite, error) {
	var invite models.RespondentInvite
	err := s.db.Where("token = ?", token).First(&invite).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInviteNotFound
		}
		return nil, errors.New("查询邀请失败")
	}
	return &invite, nil
}

// lockByToken 在事务内按令牌锁行
func lockByToken(tx *gorm.DB, token string) (*models.RespondentInvite, error) {
	var invite models.RespondentInvite
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).First(&invite).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return &invite, nil
}

// isLockConflict 判断是否为并发锁冲突类错误
func isLockConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "lock timeout")
}

// withRetry 执行事务，锁冲突时重试一次
func (s *InviteService) withRetry(fn func(tx *gorm.DB) error) error {
	err := s.db.Transaction(fn)
	if err != nil && isLockConflict(err) {
		s.log.Warnf("邀请更新遇到锁冲突，重试一次: %v", err)
		err = s.db.Transaction(fn)
		if err != nil && isLockConflict(err) {
			return ErrInviteConflict
		}
	}
	return err
}

// Consume 消费一次使用次数。行锁内检查上限：
// 已达上限时返回 ErrInviteExhausted 且计数不变。
func (s *InviteService) Consume(token string, now time.Time) (*models.RespondentInvite, error) {
	var result *models.RespondentInvite
	err := s.withRetry(func(tx *gorm.DB) error {
		invite, err := lockByToken(tx, token)
		if err != nil {
			return err
		}
		if invite.Exhausted() {
			return ErrInviteExhausted
		}
		invite.Uses++
		invite.UsedAt = &now
		if err := tx.Model(invite).Updates(map[string]interface{}{
			"uses":    invite.Uses,
			"used_at": invite.UsedAt,
		}).Error; err != nil {
			return err
		}
		result = invite
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RebindInPlace 在事务内把邀请行换绑到新客户并替换令牌，使用计数清零。
// 换绑后邀请转为linked模式，原令牌随行内令牌字段被覆盖而立即失效。
func (s *InviteService) RebindInPlace(tx *gorm.DB, invite *models.RespondentInvite, clientID uint, newToken string) error {
	locked, err := lockByToken(tx, invite.Token)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"token":          newToken,
		"client_id":      clientID,
		"mode":           models.InviteModeLinked,
		"pending_client": false,
		"uses":           0,
		"used_at":        nil,
	}
	if err := tx.Model(locked).Updates(updates).Error; err != nil {
		return errors.New("换绑邀请失败")
	}
	invite.Token = newToken
	invite.ClientID = &clientID
	invite.Mode = models.InviteModeLinked
	invite.PendingClient = false
	invite.Uses = 0
	invite.UsedAt = nil
	return nil
}

// Transaction 对外暴露带重试的事务执行
func (s *InviteService) Transaction(fn func(tx *gorm.DB) error) error {
	return s.withRetry(fn)
}

// DeleteExpiredBefore 清理在指定时刻之前就已过期的邀请行，返回删除条数
func (s *InviteService) DeleteExpiredBefore(cutoff time.Time) (int64, error) {
	result := s.db.Where("expires_at < ?", cutoff).Delete(&models.RespondentInvite{})
	if result.Error != nil {
		return 0, errors.New("清理过期邀请失败")
	}
	return result.RowsAffected, nil
}

// CountActive 统计某咨询师未过期的邀请数
func (s *InviteService) CountActive(ownerID uint, now time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.RespondentInvite{}).
		Where("owner_id = ? AND expires_at > ?", ownerID, now).
		Count(&count).Error
	if err != nil {
		return 0, errors.New("统计邀请失败")
	}
	return count, nil
}
