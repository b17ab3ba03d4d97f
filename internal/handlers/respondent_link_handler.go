package handlers

import (
	"errors"
	"strconv"

	"bakerapi/internal/middleware"
	"bakerapi/internal/services"
	"bakerapi/pkg/mailer"
	"bakerapi/pkg/pagination"
	"bakerapi/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// RespondentLinkHandler 受访链接处理器，咨询师端接口
type RespondentLinkHandler struct {
	linkService     *services.RespondentLinkService
	scheduleService *services.InviteScheduleService
}

// NewRespondentLinkHandler 创建受访链接处理器
func NewRespondentLinkHandler() *RespondentLinkHandler {
	return &RespondentLinkHandler{
		linkService:     services.NewRespondentLinkService(),
		scheduleService: services.NewInviteScheduleService(),
	}
}

// Create 签发受访链接
func (h *RespondentLinkHandler) Create(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	var input services.IssueLinkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		// 解析验证错误，提供更友好的提示
		if validationErr, ok := err.(validator.ValidationErrors); ok {
			errorMsg := "参数验证失败"
			for _, fieldErr := range validationErr {
				switch fieldErr.Field() {
				case "Assessments":
					errorMsg = "至少需要选择一个量表"
				case "Mode":
					errorMsg = "必须指定邀请模式"
				}
			}
			response.BadRequest(c, errorMsg)
			return
		}
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	invite, err := h.linkService.IssueLink(ownerID, &input)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Created(c, gin.H{
		"token":      invite.Token,
		"invite_url": mailer.BuildInviteURL(invite.Token),
		"mode":       invite.Mode,
		"expires_at": invite.ExpiresAt,
		"max_uses":   invite.MaxUses,
	})
}

// List 分页查询已签发的邀请
func (h *RespondentLinkHandler) List(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	params := pagination.ParsePageParams(c)
	invites, total, err := h.linkService.ListInvites(ownerID, params.Page, params.PageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.SuccessWithPage(c, invites, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// Email 签发受访链接并通过邮件发出
func (h *RespondentLinkHandler) Email(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	var input services.EmailInviteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	invite, err := h.linkService.IssueAndEmail(ownerID, &input)
	if err != nil {
		if errors.Is(err, mailer.ErrSendFailed) || errors.Is(err, mailer.ErrNotConfigured) {
			response.BadGateway(c, "邀请邮件发送失败")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.Created(c, gin.H{
		"token":      invite.Token,
		"invite_url": mailer.BuildInviteURL(invite.Token),
		"expires_at": invite.ExpiresAt,
	})
}

// CreateSchedule 创建周期邀请计划
func (h *RespondentLinkHandler) CreateSchedule(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	var input services.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		if validationErr, ok := err.(validator.ValidationErrors); ok {
			errorMsg := "参数验证失败"
			for _, fieldErr := range validationErr {
				switch fieldErr.Field() {
				case "ClientID":
					errorMsg = "必须指定客户"
				case "Assessments":
					errorMsg = "至少需要选择一个量表"
				case "StartDate":
					errorMsg = "必须指定起始日期"
				case "Frequency":
					errorMsg = "必须指定发送频率"
				}
			}
			response.BadRequest(c, errorMsg)
			return
		}
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	schedule, err := h.scheduleService.CreateSchedule(ownerID, &input)
	if err != nil {
		if errors.Is(err, mailer.ErrSendFailed) || errors.Is(err, mailer.ErrNotConfigured) {
			response.BadGateway(c, "邀请邮件发送失败，计划未创建")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.Created(c, gin.H{
		"reference": schedule.Reference,
		"start_at":  schedule.StartAt,
		"frequency": schedule.Frequency,
		"cycles":    schedule.Cycles,
	})
}

// ListSchedules 分页查询邀请计划
func (h *RespondentLinkHandler) ListSchedules(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	params := pagination.ParsePageParams(c)
	schedules, total, err := h.scheduleService.ListSchedules(ownerID, params.Page, params.PageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.SuccessWithPage(c, schedules, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// ListRuns 查询计划的发送记录，支持 status=sent|pending|scheduled|future|all 过滤
func (h *RespondentLinkHandler) ListRuns(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	reference, err := uuid.Parse(c.Param("reference"))
	if err != nil {
		response.BadRequest(c, "计划引用格式无效")
		return
	}

	runs, err := h.scheduleService.ListRuns(ownerID, reference, c.DefaultQuery("status", "all"))
	if err != nil {
		if errors.Is(err, services.ErrScheduleNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, runs)
}

// ListClientRuns 跨计划查询某客户名下的发送记录，client_id必填
func (h *RespondentLinkHandler) ListClientRuns(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	clientID, err := strconv.ParseUint(c.Query("client_id"), 10, 32)
	if err != nil || clientID == 0 {
		response.BadRequest(c, "必须指定客户")
		return
	}

	runs, err := h.scheduleService.ListRunsForClient(ownerID, uint(clientID), c.DefaultQuery("status", "all"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, runs)
}

// DeleteSchedule 删除邀请计划，未发送的邀请一并作废
func (h *RespondentLinkHandler) DeleteSchedule(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	reference, err := uuid.Parse(c.Param("reference"))
	if err != nil {
		response.BadRequest(c, "计划引用格式无效")
		return
	}

	if err := h.scheduleService.DeleteSchedule(ownerID, reference); err != nil {
		if errors.Is(err, services.ErrScheduleNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.SuccessWithMessage(c, "邀请计划已删除", nil)
}
