package services

import (
	"bakerapi/internal/database"
	"bakerapi/internal/models"
	"bakerapi/pkg/logger"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ClientDetails 客户档案写入字段，来自受访端提交
type ClientDetails struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	DOB             string `json:"dob"`
	Gender          string `json:"gender"`
	Informant1Name  string `json:"informant1_name"`
	Informant1Email string `json:"informant1_email"`
	Informant2Name  string `json:"informant2_name"`
	Informant2Email string `json:"informant2_email"`
}

// Normalize 清洗客户档案字段：去空白、邮箱小写、校验性别与出生日期
func (d *ClientDetails) Normalize() error {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.DOB = strings.TrimSpace(d.DOB)
	d.Gender = strings.ToLower(strings.TrimSpace(d.Gender))
	d.Informant1Name = strings.TrimSpace(d.Informant1Name)
	d.Informant1Email = strings.ToLower(strings.TrimSpace(d.Informant1Email))
	d.Informant2Name = strings.TrimSpace(d.Informant2Name)
	d.Informant2Email = strings.ToLower(strings.TrimSpace(d.Informant2Email))

	if d.FirstName == "" {
		return fmt.Errorf("客户姓名不能为空")
	}
	if d.Email == "" {
		return fmt.Errorf("客户邮箱不能为空")
	}
	if d.Gender != "" && !models.ValidGender(d.Gender) {
		return fmt.Errorf("性别取值无效")
	}
	if d.DOB != "" {
		if _, err := time.Parse("2006-01-02", d.DOB); err != nil {
			return fmt.Errorf("出生日期格式无效，应为 YYYY-MM-DD")
		}
	}
	return nil
}

func (d *ClientDetails) dobTime() *time.Time {
	if d.DOB == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", d.DOB)
	if err != nil {
		return nil
	}
	return &t
}

// ClientService 客户档案服务
type ClientService struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewClientService 创建客户服务
func NewClientService() *ClientService {
	return &ClientService{
		db:  database.GetDB(),
		log: logger.GetLogger(),
	}
}

// GetByID 查询归属于指定咨询师的客户
func (s *ClientService) GetByID(ownerID, clientID uint) (*models.Client, error) {
	var client models.Client
	err := s.db.Where("id = ? AND owner_id = ?", clientID, ownerID).First(&client).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("客户不存在")
		}
		return nil, fmt.Errorf("查询客户失败")
	}
	return &client, nil
}

// GetBySlug 根据咨询师与slug查询客户
func (s *ClientService) GetBySlug(ownerID uint, slug string) (*models.Client, error) {
	var client models.Client
	err := s.db.Where("owner_id = ? AND slug = ?", ownerID, slug).First(&client).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("客户不存在")
		}
		return nil, fmt.Errorf("查询客户失败")
	}
	return &client, nil
}

// findByEmailTx 在事务内按 (咨询师, 邮箱) 查找客户，邮箱比较不区分大小写
func (s *ClientService) findByEmailTx(tx *gorm.DB, ownerID uint, email string) (*models.Client, error) {
	var client models.Client
	err := tx.Where("owner_id = ? AND LOWER(email) = ?", ownerID, strings.ToLower(email)).
		Order("id").First(&client).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

// UpsertByEmail 在事务内按 (咨询师, 邮箱) 更新或创建客户。
// 已存在时只覆盖提交了非空值的字段，不会清空已有内容；
// 不存在时基于姓名生成唯一slug后创建。
func (s *ClientService) UpsertByEmail(tx *gorm.DB, ownerID uint, details *ClientDetails) (*models.Client, bool, error) {
	existing, err := s.findByEmailTx(tx, ownerID, details.Email)
	if err != nil {
		return nil, false, fmt.Errorf("查询客户失败")
	}

	if existing != nil {
		applyDetails(existing, details)
		if err := tx.Save(existing).Error; err != nil {
			return nil, false, fmt.Errorf("更新客户失败")
		}
		return existing, false, nil
	}

	base := slugify(strings.TrimSpace(details.FirstName + " " + details.LastName))
	slug, err := uniqueSlug(base, "client", slugExistsFn(tx, &models.Client{}, ownerID))
	if err != nil {
		return nil, false, fmt.Errorf("生成客户slug失败")
	}

	client := &models.Client{
		OwnerID:         ownerID,
		FirstName:       details.FirstName,
		LastName:        details.LastName,
		Email:           details.Email,
		DOB:             details.dobTime(),
		Gender:          details.Gender,
		IsActive:        true,
		Informant1Name:  details.Informant1Name,
		Informant1Email: details.Informant1Email,
		Informant2Name:  details.Informant2Name,
		Informant2Email: details.Informant2Email,
		Slug:            slug,
	}
	if err := tx.Create(client).Error; err != nil {
		return nil, false, fmt.Errorf("创建客户失败")
	}

	s.log.WithFields(logrus.Fields{
		"owner_id":  ownerID,
		"client_id": client.ID,
		"slug":      client.Slug,
	}).Info("通过受访链接创建客户")

	return client, true, nil
}

// applyDetails 将非空字段合并进已有客户，保留原有非空内容
func applyDetails(client *models.Client, details *ClientDetails) {
	if details.FirstName != "" {
		client.FirstName = details.FirstName
	}
	if details.LastName != "" {
		client.LastName = details.LastName
	}
	if details.Email != "" {
		client.Email = details.Email
	}
	if dob := details.dobTime(); dob != nil {
		client.DOB = dob
	}
	if details.Gender != "" {
		client.Gender = details.Gender
	}
	if details.Informant1Name != "" {
		client.Informant1Name = details.Informant1Name
	}
	if details.Informant1Email != "" {
		client.Informant1Email = details.Informant1Email
	}
	if details.Informant2Name != "" {
		client.Informant2Name = details.Informant2Name
	}
	if details.Informant2Email != "" {
		client.Informant2Email = details.Informant2Email
	}
}

// TouchLastAssessed 更新客户最近完成评估的日期
func (s *ClientService) TouchLastAssessed(tx *gorm.DB, clientID uint, when time.Time) error {
	day := time.Date(when.Year(), when.Month(), when.Day(), 0, 0, 0, 0, when.Location())
	return tx.Model(&models.Client{}).Where("id = ?", clientID).
		Update("last_assessed", &day).Error
}

// RefreshGroupCache 重算客户的分组名称缓存
func (s *ClientService) RefreshGroupCache(clientID uint) error {
	var names []string
	err := s.db.Model(&models.ClientGroup{}).
		Joins("JOIN client_group_memberships ON client_group_memberships.group_id = client_groups.id").
		Where("client_group_memberships.client_id = ?", clientID).
		Order("client_groups.name").
		Pluck("client_groups.name", &names).Error
	if err != nil {
		return fmt.Errorf("查询客户分组失败")
	}
	return s.db.Model(&models.Client{}).Where("id = ?", clientID).
		Update("groups", strings.Join(names, ", ")).Error
}
