package handlers

import (
	"strconv"

	"bakerapi/internal/middleware"
	"bakerapi/internal/services"
	"bakerapi/pkg/pagination"
	"bakerapi/pkg/response"

	"github.com/gin-gonic/gin"
)

// NotificationHandler 站内通知接口
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{
		notificationService: services.NewNotificationService(),
	}
}

// List 分页查询通知，unread=true时只返回未读
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	unreadOnly := c.Query("unread") == "true"
	params := pagination.ParsePageParams(c)

	notifications, total, err := h.notificationService.List(userID, unreadOnly, params.Page, params.PageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.SuccessWithPage(c, notifications, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// MarkRead 标记单条通知为已读
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "通知ID格式错误")
		return
	}

	if err := h.notificationService.MarkRead(userID, uint(id)); err != nil {
		response.NotFound(c, err.Error())
		return
	}

	response.SuccessWithMessage(c, "已标记为已读", nil)
}

// MarkAllRead 标记全部通知为已读
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	updated, err := h.notificationService.MarkAllRead(userID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"updated": updated})
}
