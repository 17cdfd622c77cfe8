package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/studioqc/internal/qc/service"
)

// PerfexHandler Perfex同步处理器
type PerfexHandler struct {
	svc *service.PerfexSyncService
}

func NewPerfexHandler(svc *service.PerfexSyncService) *PerfexHandler {
	return &PerfexHandler{svc: svc}
}

// TriggerSync 手动触发一轮同步（admin）
// POST /api/v1/perfex/sync
func (h *PerfexHandler) TriggerSync(c *gin.Context) {
	if h.svc == nil {
		BadRequest(c, "Perfex同步未启用")
		return
	}

	result, err := h.svc.SyncAll(c.Request.Context())
	if err != nil {
		InternalError(c, "同步失败", err)
		return
	}
	Success(c, result)
}

// ListStaff CRM员工列表（admin）
// GET /api/v1/perfex/staff
func (h *PerfexHandler) ListStaff(c *gin.Context) {
	if h.svc == nil {
		BadRequest(c, "Perfex同步未启用")
		return
	}

	staff, err := h.svc.ListStaff(c.Request.Context())
	if err != nil {
		InternalError(c, "获取CRM员工失败", err)
		return
	}
	Success(c, staff)
}
