package handler

import (
	"fmt"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/studioqc/internal/qc/service"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	svc        *service.ProjectService
	metricsSvc *service.MetricsService
	exportSvc  *service.ExportService
}

func NewProjectHandler(svc *service.ProjectService, metricsSvc *service.MetricsService, exportSvc *service.ExportService) *ProjectHandler {
	return &ProjectHandler{svc: svc, metricsSvc: metricsSvc, exportSvc: exportSvc}
}

// ListProjects 项目列表
// GET /api/v1/projects?status=xxx&project_type=xxx&keyword=xxx
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":       c.Query("status"),
		"project_type": c.Query("project_type"),
		"keyword":      c.Query("keyword"),
	}

	items, total, err := h.svc.ListProjects(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取项目列表失败", err)
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

// ListSummaries 项目概览列表（含进度/得分/未决问题）
// GET /api/v1/projects/summaries
func (h *ProjectHandler) ListSummaries(c *gin.Context) {
	summaries, err := h.metricsSvc.ListProjectSummaries(c.Request.Context())
	if err != nil {
		InternalError(c, "获取项目概览失败", err)
		return
	}
	Success(c, summaries)
}

// GetProject 项目详情
// GET /api/v1/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.svc.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err, "项目不存在")
		return
	}
	Success(c, project)
}

// GetMetrics 项目质量指标
// GET /api/v1/projects/:id/metrics?view=items|phases
func (h *ProjectHandler) GetMetrics(c *gin.Context) {
	metrics, err := h.metricsSvc.GetProjectMetrics(c.Request.Context(), c.Param("id"), c.Query("view"))
	if err != nil {
		Fail(c, err, "项目不存在")
		return
	}
	Success(c, metrics)
}

// CreateProject 创建项目
// POST /api/v1/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	project, err := h.svc.CreateProject(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err, "创建项目失败")
		return
	}
	Created(c, project)
}

// UpdateProject 更新项目
// PUT /api/v1/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var req service.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	project, err := h.svc.UpdateProject(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err, "更新项目失败")
		return
	}
	Success(c, project)
}

// DeleteProject 删除项目（admin）
// DELETE /api/v1/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.svc.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err, "删除项目失败")
		return
	}
	Success(c, nil)
}

// ExportReport 导出项目检验报告
// GET /api/v1/projects/:id/export
func (h *ProjectHandler) ExportReport(c *gin.Context) {
	f, filename, err := h.exportSvc.ExportProjectReport(c.Request.Context(), c.Param("id"))
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
