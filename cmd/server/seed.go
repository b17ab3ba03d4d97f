package main

import (
	"bakerapi/internal/database"
	"bakerapi/internal/models"
	"bakerapi/pkg/logger"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// seedData 初始化种子数据
func seedData() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	db := database.GetDB()

	// 1. 创建演示咨询师账号
	if err := createDemoClinician(db); err != nil {
		return fmt.Errorf("创建演示咨询师失败: %v", err)
	}

	// 2. 创建示例量表
	if err := createSampleAssessment(db); err != nil {
		return fmt.Errorf("创建示例量表失败: %v", err)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

// createDemoClinician 创建演示咨询师账号
func createDemoClinician(db *gorm.DB) error {
	var count int64
	db.Model(&models.User{}).Where("email = ?", "demo@bakerstreet.local").Count(&count)
	if count > 0 {
		logger.GetLogger().Info("演示咨询师已存在，跳过创建")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("ChangeMe123!"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Email:        "demo@bakerstreet.local",
		PasswordHash: string(hash),
		FirstName:    "Demo",
		LastName:     "Clinician",
		IsActive:     true,
		IsStaff:      true,
	}

	if err := db.Create(user).Error; err != nil {
		return err
	}

	logger.GetLogger().Info("演示咨询师创建成功")
	return nil
}

// createSampleAssessment 创建示例量表（情绪自评，sum计分）
func createSampleAssessment(db *gorm.DB) error {
	var count int64
	db.Model(&models.Assessment{}).Where("slug = ?", "mood-check-in").Count(&count)
	if count > 0 {
		logger.GetLogger().Info("示例量表已存在，跳过创建")
		return nil
	}

	// 量表归属演示咨询师，签发链接时按创建者过滤
	var owner models.User
	if err := db.Where("email = ?", "demo@bakerstreet.local").First(&owner).Error; err != nil {
		return err
	}

	category := &models.AssessmentCategory{
		Name:        "情绪与心境",
		Slug:        "mood",
		Description: "情绪状态相关量表",
	}
	if err := db.Where("slug = ?", category.Slug).FirstOrCreate(category).Error; err != nil {
		return err
	}

	now := time.Now()
	assessment := &models.Assessment{
		Title:       "情绪自评量表",
		Slug:        "mood-check-in",
		Summary:     "过去两周的情绪状态快速自评",
		Description: "请根据过去两周的实际感受作答，每题按出现频率计分。",
		Status:      models.AssessmentStatusPublished,
		PublishedAt: &now,
		CategoryID:  &category.ID,
		CreatedBy:   &owner.ID,
	}
	if err := db.Create(assessment).Error; err != nil {
		return err
	}

	likertConfig := datatypes.JSON([]byte(`{"scale":{"min":0,"max":3,"labels":["完全没有","有几天","一半以上时间","几乎每天"]}}`))
	questions := []models.AssessmentQuestion{
		{AssessmentID: assessment.ID, Identifier: "interest", Order: 1, Text: "做事时提不起劲或没有兴趣", ResponseType: models.ResponseTypeLikert, Required: true, Config: likertConfig, Domain: "mood"},
		{AssessmentID: assessment.ID, Identifier: "down", Order: 2, Text: "感到心情低落、沮丧或绝望", ResponseType: models.ResponseTypeLikert, Required: true, Config: likertConfig, Domain: "mood"},
		{AssessmentID: assessment.ID, Identifier: "sleep", Order: 3, Text: "入睡困难、睡不安稳或睡眠过多", ResponseType: models.ResponseTypeLikert, Required: true, Config: likertConfig, Domain: "sleep"},
		{AssessmentID: assessment.ID, Identifier: "energy", Order: 4, Text: "感觉疲倦或没有活力", ResponseType: models.ResponseTypeLikert, Required: true, Config: likertConfig, Domain: "energy"},
		{AssessmentID: assessment.ID, Identifier: "notes", Order: 5, Text: "还有什么想补充的吗", ResponseType: models.ResponseTypeFreeText, Required: false, Domain: "general"},
	}
	for i := range questions {
		if err := db.Create(&questions[i]).Error; err != nil {
			return err
		}
	}

	scoring := &models.AssessmentScoringConfig{
		AssessmentID: assessment.ID,
		Method:       models.ScoringMethodSum,
		Configuration: datatypes.JSON([]byte(`{"bands":[
			{"id":"minimal","label":"轻微","description":"情绪状态基本平稳","min":0,"max":4},
			{"id":"mild","label":"轻度","description":"建议持续关注","min":5,"max":8},
			{"id":"moderate","label":"中度","description":"建议与咨询师讨论","min":9,"max":12}
		]}`)),
	}
	if err := db.Create(scoring).Error; err != nil {
		return err
	}

	logger.GetLogger().Info("示例量表创建成功")
	return nil
}
