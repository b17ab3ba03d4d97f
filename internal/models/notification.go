package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification 站内通知
type Notification struct {
	BaseModel
	RecipientID uint       `gorm:"not null;index:idx_notifications_recipient_read;index:idx_notifications_recipient_created" json:"recipient_id"`
	EventType   string     `gorm:"size:64;not null" json:"event_type"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Body        string     `gorm:"type:text" json:"body"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"` // 供前端使用的结构化数据
	ReadAt      *time.Time `gorm:"index:idx_notifications_recipient_read,priority:2" json:"read_at,omitempty"`

	// 关联
	Recipient User `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}

// 通知事件类型常量
const (
	EventTypeGeneric             = "generic"
	EventTypeClientCreated       = "client.created"
	EventTypeAssessmentCompleted = "assessment.completed"
	EventTypeScheduleSent        = "schedule.sent"
)

// IsRead 是否已读
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
