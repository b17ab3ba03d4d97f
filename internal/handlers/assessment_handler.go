package handlers

import (
	"strconv"

	"bakerapi/internal/middleware"
	"bakerapi/internal/services"
	"bakerapi/pkg/pagination"
	"bakerapi/pkg/response"

	"github.com/gin-gonic/gin"
)

// AssessmentHandler 量表相关的咨询师端接口
type AssessmentHandler struct {
	assessmentService *services.AssessmentService
	responseService   *services.AssessmentResponseService
}

// NewAssessmentHandler 创建量表处理器
func NewAssessmentHandler() *AssessmentHandler {
	return &AssessmentHandler{
		assessmentService: services.NewAssessmentService(),
		responseService:   services.NewAssessmentResponseService(),
	}
}

// ListPublished 列出全部已发布量表
func (h *AssessmentHandler) ListPublished(c *gin.Context) {
	assessments, err := h.assessmentService.ListPublished()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, assessments)
}

// GetBySlug 查询已发布量表详情（含题目）
func (h *AssessmentHandler) GetBySlug(c *gin.Context) {
	assessment, err := h.assessmentService.GetPublishedWithQuestions(c.Param("slug"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, assessment)
}

// ListResponses 分页查询作答记录，可用 client_id 过滤
func (h *AssessmentHandler) ListResponses(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	var clientID *uint
	if raw := c.Query("client_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			response.BadRequest(c, "客户ID格式错误")
			return
		}
		id := uint(parsed)
		clientID = &id
	}

	params := pagination.ParsePageParams(c)
	records, total, err := h.responseService.ListForOwner(ownerID, clientID, params.Page, params.PageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.SuccessWithPage(c, records, pagination.NewPageInfo(params.Page, params.PageSize, total))
}
