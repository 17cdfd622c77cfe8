package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/studioqc/internal/qc/service"
)

// TemplateHandler 检查表模板处理器
type TemplateHandler struct {
	svc *service.TemplateService
}

func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// ListPhases 阶段目录
// GET /api/v1/phases
func (h *TemplateHandler) ListPhases(c *gin.Context) {
	phases, err := h.svc.ListPhases(c.Request.Context())
	if err != nil {
		InternalError(c, "获取阶段列表失败", err)
		return
	}
	Success(c, phases)
}

// ListTemplates 模板列表
// GET /api/v1/templates?project_type=xxx&status=xxx
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	filters := map[string]string{
		"project_type": c.Query("project_type"),
		"status":       c.Query("status"),
	}
	templates, err := h.svc.ListTemplates(c.Request.Context(), filters)
	if err != nil {
		InternalError(c, "获取模板列表失败", err)
		return
	}
	Success(c, templates)
}

// GetTemplate 模板详情
// GET /api/v1/templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	template, err := h.svc.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err, "模板不存在")
		return
	}
	Success(c, template)
}

// CreateTemplate 创建模板（admin）
// POST /api/v1/templates
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req service.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	template, err := h.svc.CreateTemplate(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err, "创建模板失败")
		return
	}
	Created(c, template)
}

// ArchiveTemplate 归档模板（admin）
// POST /api/v1/templates/:id/archive
func (h *TemplateHandler) ArchiveTemplate(c *gin.Context) {
	if err := h.svc.ArchiveTemplate(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err, "归档模板失败")
		return
	}
	Success(c, nil)
}

// DeleteTemplate 删除模板（admin）
// DELETE /api/v1/templates/:id
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.svc.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err, "删除模板失败")
		return
	}
	Success(c, nil)
}

// AddItem 向模板添加检查项（admin）
// POST /api/v1/templates/:id/items
func (h *TemplateHandler) AddItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.AddItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err, "添加检查项失败")
		return
	}
	Created(c, item)
}

// UpdateItem 更新检查项定义（admin）
// PUT /api/v1/templates/items/:itemId
func (h *TemplateHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateItemTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.UpdateItem(c.Request.Context(), c.Param("itemId"), &req)
	if err != nil {
		Fail(c, err, "更新检查项失败")
		return
	}
	Success(c, item)
}

// DeleteItem 删除检查项定义（admin）
// DELETE /api/v1/templates/items/:itemId
func (h *TemplateHandler) DeleteItem(c *gin.Context) {
	if err := h.svc.DeleteItem(c.Request.Context(), c.Param("itemId")); err != nil {
		Fail(c, err, "删除检查项失败")
		return
	}
	Success(c, nil)
}
