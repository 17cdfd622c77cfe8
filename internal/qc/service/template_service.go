package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"github.com/bitfantasy/studioqc/internal/qc/repository"
)

// TemplateService 检查表模板管理服务
type TemplateService struct {
	templateRepo *repository.TemplateRepository
	phaseRepo    *repository.PhaseRepository
}

func NewTemplateService(templateRepo *repository.TemplateRepository, phaseRepo *repository.PhaseRepository) *TemplateService {
	return &TemplateService{
		templateRepo: templateRepo,
		phaseRepo:    phaseRepo,
	}
}

// CreateTemplateRequest 创建模板请求
type CreateTemplateRequest struct {
	Name        string `json:"name" binding:"required"`
	ProjectType string `json:"project_type" binding:"required"`
}

// CreateItemRequest 新增检查项请求
type CreateItemRequest struct {
	PhaseID     string  `json:"phase_id" binding:"required"`
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	IsMandatory bool    `json:"is_mandatory"`
	Weight      float64 `json:"weight"`
	SortOrder   int     `json:"sort_order"`
}

// UpdateItemTemplateRequest 更新检查项定义请求，指针字段nil表示不更新
type UpdateItemTemplateRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	IsMandatory *bool    `json:"is_mandatory"`
	Weight      *float64 `json:"weight"`
	SortOrder   *int     `json:"sort_order"`
}

// ListTemplates 模板列表
func (s *TemplateService) ListTemplates(ctx context.Context, filters map[string]string) ([]entity.ChecklistTemplate, error) {
	return s.templateRepo.FindAll(ctx, filters)
}

// GetTemplate 模板详情（含检查项）
func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*entity.ChecklistTemplate, error) {
	template, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return template, nil
}

// CreateTemplate 创建模板，版本号取同名同类型最大版本+1
func (s *TemplateService) CreateTemplate(ctx context.Context, creatorID string, req *CreateTemplateRequest) (*entity.ChecklistTemplate, error) {
	existing, err := s.templateRepo.FindAll(ctx, map[string]string{"project_type": req.ProjectType})
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	version := 1
	for _, t := range existing {
		if t.Name == req.Name && t.Version >= version {
			version = t.Version + 1
		}
	}

	template := &entity.ChecklistTemplate{
		ID:          generateID(),
		Name:        req.Name,
		ProjectType: req.ProjectType,
		Version:     version,
		Status:      entity.TemplateStatusActive,
		CreatedBy:   creatorID,
	}
	if err := s.templateRepo.Create(ctx, template); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return template, nil
}

// ArchiveTemplate 归档模板，归档后不可再用于新建检验单
func (s *TemplateService) ArchiveTemplate(ctx context.Context, id string) error {
	template, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get template: %w", err)
	}
	template.Status = entity.TemplateStatusArchived
	if err := s.templateRepo.Update(ctx, template); err != nil {
		return fmt.Errorf("archive template: %w", err)
	}
	return nil
}

// DeleteTemplate 删除模板及检查项定义
func (s *TemplateService) DeleteTemplate(ctx context.Context, id string) error {
	if _, err := s.templateRepo.FindByID(ctx, id); err != nil {
		return fmt.Errorf("get template: %w", err)
	}
	return s.templateRepo.Delete(ctx, id)
}

// AddItem 向模板添加检查项，权重缺省为1
func (s *TemplateService) AddItem(ctx context.Context, templateID string, req *CreateItemRequest) (*entity.ChecklistItemTemplate, error) {
	if _, err := s.templateRepo.FindByID(ctx, templateID); err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	if _, err := s.phaseRepo.FindByID(ctx, req.PhaseID); err != nil {
		return nil, fmt.Errorf("get phase: %w", err)
	}
	if req.Weight < 0 {
		return nil, &ValidationError{Message: "weight must not be negative"}
	}
	weight := req.Weight
	if weight == 0 {
		weight = 1
	}

	item := &entity.ChecklistItemTemplate{
		ID:          generateID(),
		TemplateID:  templateID,
		PhaseID:     req.PhaseID,
		Title:       req.Title,
		Description: req.Description,
		IsMandatory: req.IsMandatory,
		Weight:      weight,
		SortOrder:   req.SortOrder,
	}
	if err := s.templateRepo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item template: %w", err)
	}
	return item, nil
}

// UpdateItem 更新检查项定义，不回溯已建检验单的快照
func (s *TemplateService) UpdateItem(ctx context.Context, itemID string, req *UpdateItemTemplateRequest) (*entity.ChecklistItemTemplate, error) {
	item, err := s.templateRepo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item template: %w", err)
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.IsMandatory != nil {
		item.IsMandatory = *req.IsMandatory
	}
	if req.Weight != nil {
		if *req.Weight < 0 {
			return nil, &ValidationError{Message: "weight must not be negative"}
		}
		item.Weight = *req.Weight
	}
	if req.SortOrder != nil {
		item.SortOrder = *req.SortOrder
	}

	if err := s.templateRepo.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("update item template: %w", err)
	}
	return item, nil
}

// DeleteItem 删除检查项定义
func (s *TemplateService) DeleteItem(ctx context.Context, itemID string) error {
	if _, err := s.templateRepo.FindItemByID(ctx, itemID); err != nil {
		return fmt.Errorf("get item template: %w", err)
	}
	return s.templateRepo.DeleteItem(ctx, itemID)
}

// ListPhases 全局阶段目录
func (s *TemplateService) ListPhases(ctx context.Context) ([]entity.Phase, error) {
	return s.phaseRepo.FindAll(ctx)
}
