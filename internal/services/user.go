package services

import (
	"bakerapi/internal/database"
	"bakerapi/internal/models"
	"bakerapi/pkg/logger"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService 咨询师账号服务
type UserService struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewUserService 创建用户服务
func NewUserService() *UserService {
	return &UserService{
		db:  database.GetDB(),
		log: logger.GetLogger(),
	}
}

// GetByID 根据ID查询用户
func (s *UserService) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("用户不存在")
		}
		return nil, fmt.Errorf("查询用户失败")
	}
	return &user, nil
}

// GetByEmail 根据邮箱查询用户
func (s *UserService) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("用户不存在")
		}
		return nil, fmt.Errorf("查询用户失败")
	}
	return &user, nil
}

// Create 创建用户
func (s *UserService) Create(email, password, firstName, lastName string) (*models.User, error) {
	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("该邮箱已被注册")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		IsActive:     true,
	}

	if err := s.db.Create(user).Error; err != nil {
		s.log.Errorf("创建用户失败: %v", err)
		return nil, fmt.Errorf("创建用户失败")
	}

	return user, nil
}

// Authenticate 校验邮箱密码
func (s *UserService) Authenticate(email, password string) (*models.User, error) {
	user, err := s.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("邮箱或密码错误")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("邮箱或密码错误")
	}

	if !user.IsActive {
		return nil, fmt.Errorf("账号已被禁用")
	}

	now := time.Now()
	s.db.Model(user).Update("last_login_at", &now)

	s.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("用户登录成功")

	return user, nil
}

// IsActive 检查用户状态
func (s *UserService) IsActive(user *models.User) bool {
	return user != nil && user.IsActive
}
