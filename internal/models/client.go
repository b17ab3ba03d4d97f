package models

import (
	"strings"
	"time"
)

// Client 客户档案，归属于某位咨询师
type Client struct {
	BaseModel
	OwnerID uint `gorm:"not null;index;uniqueIndex:idx_clients_owner_slug" json:"owner_id"`

	FirstName string     `gorm:"size:150;not null" json:"first_name"`
	LastName  string     `gorm:"size:150" json:"last_name"`
	Email     string     `gorm:"size:254;index" json:"email"`
	DOB       *time.Time `gorm:"type:date" json:"dob,omitempty"`
	Gender    string     `gorm:"size:16" json:"gender"`

	// 所属分组名称缓存，逗号分隔，分组变更时刷新
	Groups       string     `gorm:"size:255" json:"groups"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	LastAssessed *time.Time `gorm:"type:date" json:"last_assessed,omitempty"`

	// 知情人联系方式，最多两位
	Informant1Name  string `gorm:"size:150" json:"informant1_name"`
	Informant1Email string `gorm:"size:254" json:"informant1_email"`
	Informant2Name  string `gorm:"size:150" json:"informant2_name"`
	Informant2Email string `gorm:"size:254" json:"informant2_email"`

	Slug string `gorm:"size:180;not null;uniqueIndex:idx_clients_owner_slug" json:"slug"`

	// 关联
	Owner User `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定表名
func (Client) TableName() string {
	return "clients"
}

// 性别常量
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderDiverse = "diverse"
)

// ValidGender 检查性别取值
func ValidGender(gender string) bool {
	switch gender {
	case GenderMale, GenderFemale, GenderDiverse:
		return true
	}
	return false
}

// DisplayName 客户展示名称
func (c *Client) DisplayName() string {
	fullName := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if fullName != "" {
		return fullName
	}
	if c.Email != "" {
		return c.Email
	}
	return c.Slug
}

// ClientGroup 客户分组
type ClientGroup struct {
	BaseModel
	OwnerID uint   `gorm:"not null;index;uniqueIndex:idx_client_groups_owner_slug" json:"owner_id"`
	Name    string `gorm:"size:255;not null" json:"name"`
	Slug    string `gorm:"size:180;not null;uniqueIndex:idx_client_groups_owner_slug" json:"slug"`

	// 关联
	Owner       User                   `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Memberships []ClientGroupMembership `gorm:"foreignKey:GroupID" json:"memberships,omitempty"`
}

// TableName 指定表名
func (ClientGroup) TableName() string {
	return "client_groups"
}

// ClientGroupMembership 客户与分组的成员关系
type ClientGroupMembership struct {
	ID      uint      `gorm:"primarykey" json:"id"`
	GroupID uint      `gorm:"not null;uniqueIndex:idx_group_client" json:"group_id"`
	ClientID uint     `gorm:"not null;uniqueIndex:idx_group_client" json:"client_id"`
	AddedAt time.Time `gorm:"autoCreateTime" json:"added_at"`

	// 关联
	Group  ClientGroup `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"-"`
	Client Client      `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"client,omitempty"`
}

// TableName 指定表名
func (ClientGroupMembership) TableName() string {
	return "client_group_memberships"
}
