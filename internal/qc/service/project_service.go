package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/studioqc/internal/qc/cache"
	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"github.com/bitfantasy/studioqc/internal/qc/repository"
)

// ProjectService 项目管理服务
type ProjectService struct {
	projectRepo *repository.ProjectRepository
	memCache    *cache.Cache
	perfexSync  *PerfexSyncService
}

func NewProjectService(projectRepo *repository.ProjectRepository, memCache *cache.Cache) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		memCache:    memCache,
	}
}

// SetPerfexSync 注入Perfex同步服务（未启用同步时为nil）
func (s *ProjectService) SetPerfexSync(sync *PerfexSyncService) {
	s.perfexSync = sync
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	ClientID    string `json:"client_id"`
	ClientName  string `json:"client_name"`
	ProjectType string `json:"project_type" binding:"required"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	Deadline    string `json:"deadline"`
}

// UpdateProjectRequest 更新项目请求，零值字段不更新
type UpdateProjectRequest struct {
	Name        string `json:"name"`
	ClientID    string `json:"client_id"`
	ClientName  string `json:"client_name"`
	ProjectType string `json:"project_type"`
	Status      string `json:"status"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	Deadline    string `json:"deadline"`
}

// ListProjects 分页查询项目
func (s *ProjectService) ListProjects(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Project, int64, error) {
	return s.projectRepo.FindAll(ctx, page, pageSize, filters)
}

// GetProject 查询项目详情（含检验单）
func (s *ProjectService) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	project, err := s.projectRepo.FindByIDWithInspections(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

// CreateProject 创建项目，自动生成编号
func (s *ProjectService) CreateProject(ctx context.Context, creatorID string, req *CreateProjectRequest) (*entity.Project, error) {
	code, err := s.projectRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate project code: %w", err)
	}

	project := &entity.Project{
		ID:          generateID(),
		Code:        code,
		Name:        req.Name,
		ClientName:  req.ClientName,
		Description: req.Description,
		ProjectType: req.ProjectType,
		Status:      entity.ProjectStatusActive,
		CreatedBy:   creatorID,
	}
	if req.ClientID != "" {
		project.ClientID = &req.ClientID
	}
	if project.StartDate, err = parseDate(req.StartDate); err != nil {
		return nil, &ValidationError{Message: "invalid start_date"}
	}
	if project.Deadline, err = parseDate(req.Deadline); err != nil {
		return nil, &ValidationError{Message: "invalid deadline"}
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.memCache.Invalidate(cache.KeyDashboardSummary, cache.KeyProjectSummaries)
	return project, nil
}

// UpdateProject 更新项目，状态变化时回推Perfex
func (s *ProjectService) UpdateProject(ctx context.Context, id string, req *UpdateProjectRequest) (*entity.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	statusChanged := false
	if req.Name != "" {
		project.Name = req.Name
	}
	if req.ClientID != "" {
		project.ClientID = &req.ClientID
	}
	if req.ClientName != "" {
		project.ClientName = req.ClientName
	}
	if req.ProjectType != "" {
		project.ProjectType = req.ProjectType
	}
	if req.Description != "" {
		project.Description = req.Description
	}
	if req.Status != "" {
		if !validProjectStatus(req.Status) {
			return nil, &ValidationError{Message: "invalid project status: " + req.Status}
		}
		statusChanged = project.Status != req.Status
		project.Status = req.Status
	}
	if req.StartDate != "" {
		if project.StartDate, err = parseDate(req.StartDate); err != nil {
			return nil, &ValidationError{Message: "invalid start_date"}
		}
	}
	if req.Deadline != "" {
		if project.Deadline, err = parseDate(req.Deadline); err != nil {
			return nil, &ValidationError{Message: "invalid deadline"}
		}
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	s.memCache.Invalidate(cache.KeyDashboardSummary, cache.KeyProjectSummaries)

	if statusChanged && s.perfexSync != nil {
		s.perfexSync.PushProjectStatus(ctx, project)
	}
	return project, nil
}

// DeleteProject 删除项目及其全部检验数据
func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.projectRepo.FindByID(ctx, id); err != nil {
		return fmt.Errorf("get project: %w", err)
	}
	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	s.memCache.Invalidate(cache.KeyDashboardSummary, cache.KeyProjectSummaries)
	return nil
}

func validProjectStatus(status string) bool {
	switch status {
	case entity.ProjectStatusActive, entity.ProjectStatusCompleted,
		entity.ProjectStatusOnHold, entity.ProjectStatusCancelled:
		return true
	}
	return false
}

// parseDate 解析 2006-01-02 格式日期，空串返回nil
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
