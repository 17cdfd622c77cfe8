package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/studioqc/internal/qc/repository"
)

// NotificationHandler 站内通知处理器
type NotificationHandler struct {
	repo *repository.NotificationRepository
}

func NewNotificationHandler(repo *repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

// ListNotifications 当前用户的通知
// GET /api/v1/notifications?unread_only=true&limit=50
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread_only") == "true"
	limit := 50
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	notifications, err := h.repo.FindByUser(c.Request.Context(), GetUserID(c), unreadOnly, limit)
	if err != nil {
		InternalError(c, "获取通知失败", err)
		return
	}
	Success(c, notifications)
}

// MarkRead 标记单条已读
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.repo.MarkRead(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		Fail(c, err, "通知不存在")
		return
	}
	Success(c, nil)
}

// MarkAllRead 全部已读
// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.repo.MarkAllRead(c.Request.Context(), GetUserID(c)); err != nil {
		InternalError(c, "标记已读失败", err)
		return
	}
	Success(c, nil)
}
