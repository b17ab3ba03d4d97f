package services

import (
	"bakerapi/internal/database"
	"bakerapi/internal/models"
	"bakerapi/pkg/logger"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScoreResult 评分计算结果
type ScoreResult struct {
	Method string              `json:"method"`
	Total  float64             `json:"total"`
	Band   *models.ScoringBand `json:"band,omitempty"`
}

// validateResponses 校验作答覆盖：必答题不能缺失，不接受未知题目标识
func validateResponses(questions []models.AssessmentQuestion, responses map[string]interface{}) error {
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.Identifier] = true
	}

	for identifier := range responses {
		if !known[identifier] {
			return fmt.Errorf("未知题目标识: %s", identifier)
		}
	}

	for _, q := range questions {
		if !q.Required {
			continue
		}
		value, ok := responses[q.Identifier]
		if !ok || value == nil {
			return fmt.Errorf("必答题 %s 缺少回答", q.Identifier)
		}
		if text, isString := value.(string); isString && text == "" {
			return fmt.Errorf("必答题 %s 缺少回答", q.Identifier)
		}
	}
	return nil
}

// toScoreValue 把回答转成可累加的数值。自由文本与多选不计分。
func toScoreValue(responseType string, value interface{}) (float64, bool) {
	switch responseType {
	case models.ResponseTypeFreeText, models.ResponseTypeMultiChoice:
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n, true
		}
	case json.Number:
		if n, err := v.Float64(); err == nil {
			return n, true
		}
	}
	return 0, false
}

// calculateScore 按sum方法累加数值并匹配分数区间。
// 其他评分方法暂不自动计分，返回nil。
func calculateScore(assessment *models.Assessment, responses map[string]interface{}) (*ScoreResult, error) {
	if assessment.Scoring == nil || assessment.Scoring.Method != models.ScoringMethodSum {
		return nil, nil
	}

	byIdentifier := make(map[string]*models.AssessmentQuestion, len(assessment.Questions))
	for i := range assessment.Questions {
		byIdentifier[assessment.Questions[i].Identifier] = &assessment.Questions[i]
	}

	var total float64
	for identifier, value := range responses {
		question, ok := byIdentifier[identifier]
		if !ok {
			continue
		}
		if n, countable := toScoreValue(question.ResponseType, value); countable {
			total += n
		}
	}

	result := &ScoreResult{Method: models.ScoringMethodSum, Total: total}

	bands, err := assessment.Scoring.DecodeBands()
	if err != nil {
		return nil, err
	}
	for i := range bands {
		if total >= *bands[i].Min && total <= *bands[i].Max {
			result.Band = &bands[i]
			break
		}
	}
	return result, nil
}

// AssessmentResponseService 量表作答服务
type AssessmentResponseService struct {
	db            *gorm.DB
	log           *logrus.Logger
	clientService *ClientService
	inviteService *InviteService
}

// NewAssessmentResponseService 创建作答服务
func NewAssessmentResponseService() *AssessmentResponseService {
	return &AssessmentResponseService{
		db:            database.GetDB(),
		log:           logger.GetLogger(),
		clientService: NewClientService(),
		inviteService: NewInviteService(),
	}
}

// Record 记录一次受访作答并消费邀请次数，两者在同一事务内完成。
// 邀请次数耗尽时整体失败，不会留下孤立的作答记录。
func (s *AssessmentResponseService) Record(resolved *ResolvedLink, slug string, responses map[string]interface{}) (*models.AssessmentResponse, error) {
	invite := resolved.Invite

	inScope := false
	for _, allowed := range invite.Assessments {
		if allowed == slug {
			inScope = true
			break
		}
	}
	if !inScope {
		return nil, fmt.Errorf("该邀请不包含量表 %s", slug)
	}

	var assessment *models.Assessment
	for i := range resolved.Assessments {
		if resolved.Assessments[i].Slug == slug {
			assessment = &resolved.Assessments[i]
			break
		}
	}
	if assessment == nil {
		return nil, fmt.Errorf("量表不存在或未发布")
	}

	if assessment.Scoring == nil {
		var scoring models.AssessmentScoringConfig
		if err := s.db.Where("assessment_id = ?", assessment.ID).First(&scoring).Error; err == nil {
			assessment.Scoring = &scoring
		}
	}

	if err := validateResponses(assessment.Questions, responses); err != nil {
		return nil, err
	}

	score, err := calculateScore(assessment, responses)
	if err != nil {
		return nil, err
	}

	rawResponses, err := json.Marshal(responses)
	if err != nil {
		return nil, fmt.Errorf("作答数据序列化失败")
	}

	record := &models.AssessmentResponse{
		AssessmentID: assessment.ID,
		ClientID:     invite.ClientID,
		Responses:    datatypes.JSON(rawResponses),
	}
	if score != nil {
		if data, err := json.Marshal(score); err == nil {
			record.Score = datatypes.JSON(data)
		}
	}

	now := time.Now()
	err = s.inviteService.Transaction(func(tx *gorm.DB) error {
		locked, err := lockByToken(tx, invite.Token)
		if err != nil {
			return err
		}
		if locked.Exhausted() {
			return ErrInviteExhausted
		}
		if err := tx.Model(locked).Updates(map[string]interface{}{
			"uses":    locked.Uses + 1,
			"used_at": &now,
		}).Error; err != nil {
			return err
		}

		if err := tx.Create(record).Error; err != nil {
			s.log.Errorf("保存作答记录失败: %v", err)
			return fmt.Errorf("保存作答记录失败")
		}

		if invite.ClientID != nil {
			if err := s.clientService.TouchLastAssessed(tx, *invite.ClientID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if err == ErrInviteExhausted {
			return nil, newLinkError(LinkStatusExhausted, "链接使用次数已耗尽")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"assessment": assessment.Slug,
		"invite_id":  invite.ID,
	}).Info("受访作答已记录")

	notifyAssessmentCompleted(invite.OwnerID, assessment, resolved.Client)

	return record, nil
}

// ListForOwner 分页查询咨询师客户的作答记录，可按客户过滤
func (s *AssessmentResponseService) ListForOwner(ownerID uint, clientID *uint, page, pageSize int) ([]models.AssessmentResponse, int64, error) {
	var records []models.AssessmentResponse
	var total int64

	query := s.db.Model(&models.AssessmentResponse{}).
		Joins("JOIN clients ON clients.id = assessment_responses.client_id").
		Where("clients.owner_id = ?", ownerID)
	if clientID != nil {
		query = query.Where("assessment_responses.client_id = ?", *clientID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计作答记录失败")
	}

	err := query.Preload("Assessment").Preload("Client").
		Order("assessment_responses.submitted_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询作答记录失败")
	}
	return records, total, nil
}
