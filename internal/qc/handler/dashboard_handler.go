package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/studioqc/internal/qc/service"
)

// DashboardHandler 看板处理器
type DashboardHandler struct {
	svc *service.MetricsService
}

func NewDashboardHandler(svc *service.MetricsService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// GetSummary 全局看板汇总
// GET /api/v1/dashboard/summary
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	summary, err := h.svc.GetDashboardSummary(c.Request.Context())
	if err != nil {
		InternalError(c, "获取看板数据失败", err)
		return
	}
	Success(c, summary)
}
