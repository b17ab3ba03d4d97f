package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// AssessmentCategory 量表分类
type AssessmentCategory struct {
	BaseModel
	Name        string `gorm:"size:120;not null;uniqueIndex" json:"name"`
	Slug        string `gorm:"size:140;not null;uniqueIndex" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
}

// TableName 指定表名
func (AssessmentCategory) TableName() string {
	return "assessment_categories"
}

// AssessmentTag 量表标签
type AssessmentTag struct {
	BaseModel
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Slug string `gorm:"size:120;not null;uniqueIndex" json:"slug"`
}

// TableName 指定表名
func (AssessmentTag) TableName() string {
	return "assessment_tags"
}

// Assessment 评估量表
type Assessment struct {
	BaseModel
	Title       string         `gorm:"size:255;not null" json:"title"`
	Slug        string         `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Summary     string         `gorm:"type:text" json:"summary"`
	Description string         `gorm:"type:text" json:"description"`
	Highlights  datatypes.JSON `gorm:"type:jsonb" json:"highlights,omitempty"`

	DurationMinutes *int           `json:"duration_minutes,omitempty"`
	AgeRange        string         `gorm:"size:120" json:"age_range"`
	DeliveryModes   datatypes.JSON `gorm:"type:jsonb" json:"delivery_modes,omitempty"`
	ClinicianNotes  string         `gorm:"type:text" json:"clinician_notes"`

	Status      string     `gorm:"size:20;not null;default:'draft';index" json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	CategoryID *uint `gorm:"index" json:"category_id,omitempty"`
	CreatedBy  *uint `gorm:"index" json:"created_by,omitempty"`
	UpdatedBy  *uint `json:"updated_by,omitempty"`

	// 关联
	Category  *AssessmentCategory     `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Tags      []AssessmentTag         `gorm:"many2many:assessment_tag_links" json:"tags,omitempty"`
	Questions []AssessmentQuestion    `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
	Scoring   *AssessmentScoringConfig `gorm:"foreignKey:AssessmentID" json:"scoring,omitempty"`
}

// TableName 指定表名
func (Assessment) TableName() string {
	return "assessments"
}

// 量表状态常量
const (
	AssessmentStatusDraft     = "draft"
	AssessmentStatusPublished = "published"
)

// IsPublished 是否已发布
func (a *Assessment) IsPublished() bool {
	return a.Status == AssessmentStatusPublished
}

// AssessmentQuestion 量表题目
type AssessmentQuestion struct {
	BaseModel
	AssessmentID uint   `gorm:"not null;index;uniqueIndex:idx_question_assessment_identifier" json:"assessment_id"`
	Identifier   string `gorm:"size:160;not null;uniqueIndex:idx_question_assessment_identifier" json:"identifier"` // 评分引用的稳定标识
	Order        int    `gorm:"not null" json:"order"`
	Text         string `gorm:"type:text;not null" json:"text"`
	HelpText     string `gorm:"type:text" json:"help_text"`
	ResponseType string `gorm:"size:20;not null" json:"response_type"`
	Required     bool   `gorm:"default:true" json:"required"`
	Config       datatypes.JSON `gorm:"type:jsonb" json:"config,omitempty"` // 选项、量尺锚点、校验等附加信息
	Domain       string `gorm:"size:120;default:'general'" json:"domain"`   // 题目针对的认知或能力领域
}

// TableName 指定表名
func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}

// 题目应答类型常量
const (
	ResponseTypeSingleChoice = "single_choice"
	ResponseTypeMultiChoice  = "multi_choice"
	ResponseTypeLikert       = "likert"
	ResponseTypeYesNo        = "yes_no"
	ResponseTypeFreeText     = "free_text"
	ResponseTypeNumeric      = "numeric"
)

// ValidResponseType 检查应答类型取值
func ValidResponseType(responseType string) bool {
	switch responseType {
	case ResponseTypeSingleChoice, ResponseTypeMultiChoice, ResponseTypeLikert,
		ResponseTypeYesNo, ResponseTypeFreeText, ResponseTypeNumeric:
		return true
	}
	return false
}

// AssessmentScoringConfig 量表评分配置，与量表一对一
type AssessmentScoringConfig struct {
	BaseModel
	AssessmentID  uint           `gorm:"not null;uniqueIndex" json:"assessment_id"`
	Method        string         `gorm:"size:20;not null;default:'sum'" json:"method"`
	Configuration datatypes.JSON `gorm:"type:jsonb" json:"configuration,omitempty"` // 声明式规则：分值映射、阈值、解读文案
	Notes         string         `gorm:"type:text" json:"notes"`
}

// TableName 指定表名
func (AssessmentScoringConfig) TableName() string {
	return "assessment_scoring_configs"
}

// 评分方法常量
const (
	ScoringMethodSum     = "sum"
	ScoringMethodAverage = "average"
	ScoringMethodRules   = "rules"
	ScoringMethodCustom  = "custom"
)

// ScoringBand 总分区间及解读
type ScoringBand struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Min         *float64 `json:"min"`
	Max         *float64 `json:"max"`
}

// sumConfiguration sum方法的配置结构
type sumConfiguration struct {
	Bands []ScoringBand `json:"bands"`
}

// DecodeBands 解析sum配置中的分数区间。保存时即校验，
// 避免把格式问题留到评分阶段才暴露。
func (sc *AssessmentScoringConfig) DecodeBands() ([]ScoringBand, error) {
	if len(sc.Configuration) == 0 {
		return nil, nil
	}
	var cfg sumConfiguration
	if err := json.Unmarshal(sc.Configuration, &cfg); err != nil {
		return nil, fmt.Errorf("评分配置格式错误: %v", err)
	}
	for i, band := range cfg.Bands {
		if band.Min == nil || band.Max == nil {
			return nil, fmt.Errorf("评分区间 %d 缺少min/max", i)
		}
		if *band.Min > *band.Max {
			return nil, fmt.Errorf("评分区间 %d 的min大于max", i)
		}
	}
	return cfg.Bands, nil
}

// AssessmentResponse 量表作答记录
type AssessmentResponse struct {
	ID           uint  `gorm:"primarykey" json:"id"`
	AssessmentID uint  `gorm:"not null;index:idx_responses_assessment_time" json:"assessment_id"`
	ClientID     *uint `gorm:"index:idx_responses_client_time" json:"client_id,omitempty"`
	SubmittedBy  *uint `json:"submitted_by,omitempty"`

	Responses  datatypes.JSON `gorm:"type:jsonb;not null" json:"responses"`            // 按题目标识组织的原始回答
	Score      datatypes.JSON `gorm:"type:jsonb" json:"score,omitempty"`               // 计算得到的评分载荷，含总分与区间
	Highlights datatypes.JSON `gorm:"type:jsonb" json:"highlights,omitempty"`          // 评分推导出的要点
	SubmittedAt time.Time     `gorm:"autoCreateTime;index:idx_responses_assessment_time,priority:2;index:idx_responses_client_time,priority:2" json:"submitted_at"`

	// 关联
	Assessment Assessment `gorm:"foreignKey:AssessmentID;constraint:OnDelete:CASCADE" json:"-"`
	Client     *Client    `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL" json:"client,omitempty"`
}

// TableName 指定表名
func (AssessmentResponse) TableName() string {
	return "assessment_responses"
}
