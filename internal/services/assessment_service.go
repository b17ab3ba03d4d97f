package services

import (
	"bakerapi/internal/database"
	"bakerapi/internal/models"
	"bakerapi/pkg/logger"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AssessmentService 量表查询服务
type AssessmentService struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewAssessmentService 创建量表服务
func NewAssessmentService() *AssessmentService {
	return &AssessmentService{
		db:  database.GetDB(),
		log: logger.GetLogger(),
	}
}

// GetPublishedBySlug 按slug查询已发布的量表
func (s *AssessmentService) GetPublishedBySlug(slug string) (*models.Assessment, error) {
	var assessment models.Assessment
	err := s.db.Where("slug = ? AND status = ?", slug, models.AssessmentStatusPublished).
		First(&assessment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("量表不存在或未发布")
		}
		return nil, fmt.Errorf("查询量表失败")
	}
	return &assessment, nil
}

// GetPublishedWithQuestions 查询已发布量表及其题目，受访端展示用
func (s *AssessmentService) GetPublishedWithQuestions(slug string) (*models.Assessment, error) {
	var assessment models.Assessment
	err := s.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("assessment_questions.\"order\"")
	}).Preload("Scoring").
		Where("slug = ? AND status = ?", slug, models.AssessmentStatusPublished).
		First(&assessment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("量表不存在或未发布")
		}
		return nil, fmt.Errorf("查询量表失败")
	}
	return &assessment, nil
}

// dedupeSlugs 纯函数：去除重复slug，保留首次出现的顺序
func dedupeSlugs(slugs []string) []string {
	seen := make(map[string]struct{}, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	return out
}

// ValidatePublishedSlugs 校验一组量表slug全部存在、已发布且属于该咨询师，
// 返回按slug索引的量表映射
func (s *AssessmentService) ValidatePublishedSlugs(ownerID uint, slugs []string) (map[string]*models.Assessment, error) {
	if len(slugs) == 0 {
		return nil, fmt.Errorf("至少需要一个量表")
	}

	var assessments []models.Assessment
	err := s.db.Where("slug IN ? AND status = ? AND created_by = ?",
		slugs, models.AssessmentStatusPublished, ownerID).
		Find(&assessments).Error
	if err != nil {
		return nil, fmt.Errorf("查询量表失败")
	}

	index := make(map[string]*models.Assessment, len(assessments))
	for i := range assessments {
		index[assessments[i].Slug] = &assessments[i]
	}

	for _, slug := range slugs {
		if _, ok := index[slug]; !ok {
			return nil, fmt.Errorf("量表 %s 不存在或未发布", slug)
		}
	}
	return index, nil
}

// ListPublished 列出全部已发布量表
func (s *AssessmentService) ListPublished() ([]models.Assessment, error) {
	var assessments []models.Assessment
	err := s.db.Preload("Category").Preload("Tags").
		Where("status = ?", models.AssessmentStatusPublished).
		Order("title").Find(&assessments).Error
	if err != nil {
		return nil, fmt.Errorf("查询量表列表失败")
	}
	return assessments, nil
}
