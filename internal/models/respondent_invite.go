package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RespondentInvite 受访者邀请，每个签发的令牌对应一行。
// 令牌签名本身不可变，但行状态可变：计次、换绑时会更新行。
type RespondentInvite struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	Token   string `gorm:"type:text;not null;uniqueIndex" json:"token"`
	OwnerID uint   `gorm:"not null;index:idx_invites_owner_issued" json:"owner_id"`

	Assessments datatypes.JSONSlice[string] `gorm:"type:jsonb;not null" json:"assessments"` // 邀请中包含的量表slug
	Mode        string                      `gorm:"size:20;not null" json:"mode"`
	ClientID    *uint                       `gorm:"index" json:"client_id,omitempty"`

	ShareResults  bool `gorm:"default:false" json:"share_results"`
	PendingClient bool `gorm:"default:false" json:"pending_client"` // self-entry邀请在绑定客户前为true

	IssuedAt  time.Time `gorm:"autoCreateTime;index:idx_invites_owner_issued,priority:2" json:"issued_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`

	MaxUses int        `gorm:"not null;default:1" json:"max_uses"`
	Uses    int        `gorm:"not null;default:0" json:"uses"`
	UsedAt  *time.Time `json:"used_at,omitempty"` // 最近一次使用时间

	// 关联
	Owner  User    `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Client *Client `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL" json:"client,omitempty"`
}

// TableName 指定表名
func (RespondentInvite) TableName() string {
	return "respondent_invites"
}

// 邀请模式常量
const (
	InviteModeSelfEntry = "self-entry" // 受访者自行填写身份信息
	InviteModeLinked    = "linked"     // 绑定到已有客户档案
)

// ValidInviteMode 检查邀请模式取值
func ValidInviteMode(mode string) bool {
	return mode == InviteModeSelfEntry || mode == InviteModeLinked
}

// IsExpired 行级过期判断
func (ri *RespondentInvite) IsExpired(now time.Time) bool {
	return !now.Before(ri.ExpiresAt)
}

// Exhausted 使用次数是否已耗尽
func (ri *RespondentInvite) Exhausted() bool {
	return ri.Uses >= ri.MaxUses
}

// RespondentInviteSchedule 周期性邀请计划
type RespondentInviteSchedule struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Reference uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"reference"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	ClientID  uint      `gorm:"not null;index" json:"client_id"`

	Assessments datatypes.JSONSlice[string] `gorm:"type:jsonb;not null" json:"assessments"`

	Subject        string `gorm:"size:255;not null" json:"subject"`
	Message        string `gorm:"type:text" json:"message"`
	IncludeConsent bool   `gorm:"default:true" json:"include_consent"`
	ShareResults   bool   `gorm:"default:false" json:"share_results"`

	StartAt   time.Time `gorm:"not null" json:"start_at"`
	Frequency string    `gorm:"size:32;not null" json:"frequency"`
	Cycles    int       `gorm:"not null;default:1" json:"cycles"`

	CreatedAt time.Time `json:"created_at"`

	// 关联
	Owner  User                         `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Client Client                       `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"client,omitempty"`
	Runs   []RespondentInviteScheduleRun `gorm:"foreignKey:ScheduleID" json:"runs,omitempty"`
}

// TableName 指定表名
func (RespondentInviteSchedule) TableName() string {
	return "respondent_invite_schedules"
}

// RespondentInviteScheduleRun 计划中物化出的单次邀请发送
type RespondentInviteScheduleRun struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	ScheduleID uint      `gorm:"not null;index" json:"schedule_id"`
	Token      string    `gorm:"type:text;not null" json:"token"`
	ScheduledAt time.Time `gorm:"not null;index" json:"scheduled_at"`
	Status     string    `gorm:"size:32;not null;default:'scheduled'" json:"status"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	// 关联
	Schedule RespondentInviteSchedule `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定表名
func (RespondentInviteScheduleRun) TableName() string {
	return "respondent_invite_schedule_runs"
}

// 计划发送状态常量
const (
	ScheduleRunStatusScheduled = "scheduled"
	ScheduleRunStatusSent      = "sent"
)

// MarkSent 标记为已发送
func (r *RespondentInviteScheduleRun) MarkSent() {
	now := time.Now()
	r.Status = ScheduleRunStatusSent
	r.SentAt = &now
}
