package handler

import (
	"fmt"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/studioqc/internal/qc/service"
)

// InspectionHandler 检验单处理器
type InspectionHandler struct {
	svc       *service.InspectionService
	exportSvc *service.ExportService
}

func NewInspectionHandler(svc *service.InspectionService, exportSvc *service.ExportService) *InspectionHandler {
	return &InspectionHandler{svc: svc, exportSvc: exportSvc}
}

// ListInspections 检验单列表
// GET /api/v1/inspections?project_id=xxx&phase_id=xxx&status=xxx&inspector_id=xxx
func (h *InspectionHandler) ListInspections(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"project_id":   c.Query("project_id"),
		"phase_id":     c.Query("phase_id"),
		"status":       c.Query("status"),
		"inspector_id": c.Query("inspector_id"),
	}

	items, total, err := h.svc.ListInspections(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取检验单列表失败", err)
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// GetInspection 检验单详情（含检验项和签字）
// GET /api/v1/inspections/:id
func (h *InspectionHandler) GetInspection(c *gin.Context) {
	inspection, err := h.svc.GetInspection(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err, "检验单不存在")
		return
	}
	Success(c, inspection)
}

// CreateInspection 创建检验单
// POST /api/v1/inspections
func (h *InspectionHandler) CreateInspection(c *gin.Context) {
	var req service.CreateInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	inspection, err := h.svc.CreateInspection(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err, "创建检验单失败")
		return
	}
	Created(c, inspection)
}

// SaveDraft 批量保存检验项结果
// PUT /api/v1/inspections/:id/items
func (h *InspectionHandler) SaveDraft(c *gin.Context) {
	var req struct {
		Items []service.ItemUpdate `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	inspection, err := h.svc.SaveDraft(c.Request.Context(), c.Param("id"), GetUserID(c), req.Items)
	if err != nil {
		Fail(c, err, "保存检验项失败")
		return
	}
	Success(c, inspection)
}

// UpdateItem 更新单个检验项
// PUT /api/v1/inspections/items/:itemId
func (h *InspectionHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	inspection, err := h.svc.UpdateItem(c.Request.Context(), c.Param("itemId"), GetUserID(c), &req)
	if err != nil {
		Fail(c, err, "更新检验项失败")
		return
	}
	Success(c, inspection)
}

// Submit 提交检验单
// POST /api/v1/inspections/:id/submit
func (h *InspectionHandler) Submit(c *gin.Context) {
	inspection, err := h.svc.Submit(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		Fail(c, err, "提交检验单失败")
		return
	}
	Success(c, inspection)
}

// Review 评审检验单（admin）
// POST /api/v1/inspections/:id/review
func (h *InspectionHandler) Review(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	inspection, err := h.svc.Review(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		Fail(c, err, "评审检验单失败")
		return
	}
	Success(c, inspection)
}

// AddSignature 签字
// POST /api/v1/inspections/:id/signatures
func (h *InspectionHandler) AddSignature(c *gin.Context) {
	var req service.AddSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	sig, err := h.svc.AddSignature(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		Fail(c, err, "签字失败")
		return
	}
	Created(c, sig)
}

// Export 导出检验单明细
// GET /api/v1/inspections/:id/export
func (h *InspectionHandler) Export(c *gin.Context) {
	f, filename, err := h.exportSvc.ExportInspection(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err, "导出失败")
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "写出文件失败", err)
	}
}
