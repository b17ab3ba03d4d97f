package handlers

import (
	stderrors "errors"

	"bakerapi/internal/models"
	"bakerapi/internal/services"
	"bakerapi/pkg/errors"
	"bakerapi/pkg/response"

	"github.com/gin-gonic/gin"
)

// RespondentHandler 受访者端公开接口，凭链接令牌访问
type RespondentHandler struct {
	linkService     *services.RespondentLinkService
	responseService *services.AssessmentResponseService
}

// NewRespondentHandler 创建受访者处理器
func NewRespondentHandler() *RespondentHandler {
	return &RespondentHandler{
		linkService:     services.NewRespondentLinkService(),
		responseService: services.NewAssessmentResponseService(),
	}
}

// writeLinkError 把链接解析错误映射为响应码
func writeLinkError(c *gin.Context, linkErr *services.LinkError) {
	data := gin.H{"status": linkErr.Status}
	switch linkErr.Status {
	case services.LinkStatusNotFound:
		response.ErrorWithData(c, errors.CodeNotFound, linkErr.Message, data)
	case services.LinkStatusExpired, services.LinkStatusSignatureExpired, services.LinkStatusExhausted:
		response.ErrorWithData(c, errors.CodeGone, linkErr.Message, data)
	default:
		response.ErrorWithData(c, errors.CodeInvalidParam, linkErr.Message, data)
	}
}

func (h *RespondentHandler) handleError(c *gin.Context, err error) {
	var linkErr *services.LinkError
	if stderrors.As(err, &linkErr) {
		writeLinkError(c, linkErr)
		return
	}
	response.BadRequest(c, err.Error())
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// Resolve 解析受访链接，返回邀请上下文。只读，不消费次数。
func (h *RespondentHandler) Resolve(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	resolved, err := h.linkService.Resolve(req.Token)
	if err != nil {
		h.handleError(c, err)
		return
	}

	assessments := make([]gin.H, 0, len(resolved.Assessments))
	for _, a := range resolved.Assessments {
		assessments = append(assessments, gin.H{
			"slug":            a.Slug,
			"title":           a.Title,
			"summary":         a.Summary,
			"durationMinutes": a.DurationMinutes,
		})
	}

	data := gin.H{
		"status":        services.LinkStatusValid,
		"mode":          resolved.Invite.Mode,
		"pendingClient": resolved.Invite.PendingClient,
		"shareResults":  resolved.Invite.ShareResults,
		"expiresAt":     resolved.Invite.ExpiresAt,
		"maxUses":       resolved.Invite.MaxUses,
		"uses":          resolved.Invite.Uses,
		"assessments":   assessments,
	}
	if resolved.Client != nil {
		data["client"] = gin.H{
			"displayName": resolved.Client.DisplayName(),
			"slug":        resolved.Client.Slug,
		}
	}

	response.Success(c, data)
}

type bindClientRequest struct {
	Token   string                 `json:"token" binding:"required"`
	Details services.ClientDetails `json:"details" binding:"required"`
}

// BindClient 受访者提交身份信息，绑定客户档案并换发令牌
func (h *RespondentHandler) BindClient(c *gin.Context) {
	var req bindClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	result, err := h.linkService.BindClient(req.Token, &req.Details)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Created(c, gin.H{
		"token":         result.Token,
		"clientCreated": result.Created,
		"client": gin.H{
			"displayName": result.Client.DisplayName(),
			"slug":        result.Client.Slug,
		},
	})
}

type assessmentRequest struct {
	Token string `json:"token" binding:"required"`
	Slug  string `json:"slug" binding:"required"`
}

// GetAssessment 返回邀请范围内某个量表的题目
func (h *RespondentHandler) GetAssessment(c *gin.Context) {
	var req assessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	resolved, err := h.linkService.Resolve(req.Token)
	if err != nil {
		h.handleError(c, err)
		return
	}

	var assessment *models.Assessment
	for i := range resolved.Assessments {
		if resolved.Assessments[i].Slug == req.Slug {
			assessment = &resolved.Assessments[i]
			break
		}
	}
	if assessment == nil {
		response.NotFound(c, "该邀请不包含此量表")
		return
	}

	questions := make([]gin.H, 0, len(assessment.Questions))
	for _, q := range assessment.Questions {
		questions = append(questions, gin.H{
			"identifier":   q.Identifier,
			"order":        q.Order,
			"text":         q.Text,
			"helpText":     q.HelpText,
			"responseType": q.ResponseType,
			"required":     q.Required,
			"config":       q.Config,
			"domain":       q.Domain,
		})
	}

	response.Success(c, gin.H{
		"slug":        assessment.Slug,
		"title":       assessment.Title,
		"description": assessment.Description,
		"questions":   questions,
	})
}

type submitResponseRequest struct {
	Token      string                 `json:"token" binding:"required"`
	Assessment string                 `json:"assessment" binding:"required"`
	Responses  map[string]interface{} `json:"responses" binding:"required"`
}

// SubmitResponse 提交量表作答并消费一次链接使用次数
func (h *RespondentHandler) SubmitResponse(c *gin.Context) {
	var req submitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	resolved, err := h.linkService.Resolve(req.Token)
	if err != nil {
		h.handleError(c, err)
		return
	}

	record, err := h.responseService.Record(resolved, req.Assessment, req.Responses)
	if err != nil {
		h.handleError(c, err)
		return
	}

	data := gin.H{
		"responseId":  record.ID,
		"submittedAt": record.SubmittedAt,
	}
	// 咨询师选择共享结果时才把评分回显给受访者
	if resolved.Invite.ShareResults && record.Score != nil {
		data["score"] = record.Score
	}

	response.Created(c, data)
}
