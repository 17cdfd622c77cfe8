package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"gorm.io/gorm"
)

// TemplateRepository 检查表模板仓库
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// FindAll 模板列表
func (r *TemplateRepository) FindAll(ctx context.Context, filters map[string]string) ([]entity.ChecklistTemplate, error) {
	var templates []entity.ChecklistTemplate

	query := r.db.WithContext(ctx).Model(&entity.ChecklistTemplate{})
	if projectType := filters["project_type"]; projectType != "" {
		query = query.Where("project_type = ?", projectType)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}

	err := query.Order("name, version DESC").Find(&templates).Error
	return templates, err
}

// FindByID 查找模板并预加载检查项
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*entity.ChecklistTemplate, error) {
	var template entity.ChecklistTemplate
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order, created_at")
		}).
		Where("id = ?", id).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// ListItemsByPhase 模板下指定阶段的检查项
func (r *TemplateRepository) ListItemsByPhase(ctx context.Context, templateID, phaseID string) ([]entity.ChecklistItemTemplate, error) {
	var items []entity.ChecklistItemTemplate
	err := r.db.WithContext(ctx).
		Where("template_id = ? AND phase_id = ?", templateID, phaseID).
		Order("sort_order, created_at").
		Find(&items).Error
	return items, err
}

// Create 创建模板
func (r *TemplateRepository) Create(ctx context.Context, template *entity.ChecklistTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

// Update 更新模板
func (r *TemplateRepository) Update(ctx context.Context, template *entity.ChecklistTemplate) error {
	return r.db.WithContext(ctx).Save(template).Error
}

// Delete 删除模板及其检查项（事务）
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", id).
			Delete(&entity.ChecklistItemTemplate{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.ChecklistTemplate{}).Error
	})
}

// CreateItem 新增检查项定义
func (r *TemplateRepository) CreateItem(ctx context.Context, item *entity.ChecklistItemTemplate) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItem 更新检查项定义
func (r *TemplateRepository) UpdateItem(ctx context.Context, item *entity.ChecklistItemTemplate) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteItem 删除检查项定义
func (r *TemplateRepository) DeleteItem(ctx context.Context, itemID string) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&entity.ChecklistItemTemplate{}).Error
}

// FindItemByID 查找检查项定义
func (r *TemplateRepository) FindItemByID(ctx context.Context, itemID string) (*entity.ChecklistItemTemplate, error) {
	var item entity.ChecklistItemTemplate
	err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}
