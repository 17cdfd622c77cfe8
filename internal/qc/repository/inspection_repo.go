package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"gorm.io/gorm"
)

// InspectionRepository 检验单仓库
type InspectionRepository struct {
	db *gorm.DB
}

func NewInspectionRepository(db *gorm.DB) *InspectionRepository {
	return &InspectionRepository{db: db}
}

// FindAll 查询检验单列表
func (r *InspectionRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Inspection, int64, error) {
	var items []entity.Inspection
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Inspection{})

	if projectID := filters["project_id"]; projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if phaseID := filters["phase_id"]; phaseID != "" {
		query = query.Where("phase_id = ?", phaseID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if inspectorID := filters["inspector_id"]; inspectorID != "" {
		query = query.Where("inspector_id = ?", inspectorID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 查找检验单并预加载检验项和签字
func (r *InspectionRepository) FindByID(ctx context.Context, id string) (*entity.Inspection, error) {
	var inspection entity.Inspection
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order, created_at")
		}).
		Preload("Signatures").
		Where("id = ?", id).
		First(&inspection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inspection, nil
}

// FindByProject 项目下全部检验单（含检验项），按创建时间倒序
func (r *InspectionRepository) FindByProject(ctx context.Context, projectID string) ([]entity.Inspection, error) {
	var inspections []entity.Inspection
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Find(&inspections).Error
	return inspections, err
}

// FindItemByID 查找单个检验项
func (r *InspectionRepository) FindItemByID(ctx context.Context, itemID string) (*entity.InspectionItem, error) {
	var item entity.InspectionItem
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

// CreateWithItems 创建检验单及其检验项（事务）
func (r *InspectionRepository) CreateWithItems(ctx context.Context, inspection *entity.Inspection, items []entity.InspectionItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inspection).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Update 更新检验单
func (r *InspectionRepository) Update(ctx context.Context, inspection *entity.Inspection) error {
	return r.db.WithContext(ctx).Save(inspection).Error
}

// UpdateWithItems 同一事务内更新检验单和一批检验项
func (r *InspectionRepository) UpdateWithItems(ctx context.Context, inspection *entity.Inspection, items []entity.InspectionItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range items {
			if err := tx.Save(&items[i]).Error; err != nil {
				return err
			}
		}
		return tx.Save(inspection).Error
	})
}

// SaveItem 更新单个检验项
func (r *InspectionRepository) SaveItem(ctx context.Context, item *entity.InspectionItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// AddSignature 追加签字
func (r *InspectionRepository) AddSignature(ctx context.Context, sig *entity.Signature) error {
	return r.db.WithContext(ctx).Create(sig).Error
}

// GenerateCode 生成检验编码 QCI-{year}-{4位}
func (r *InspectionRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("QCI-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.Inspection{}).
		Select("COALESCE(MAX(code), '')").
		Where("code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "QCI-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("QCI-%s-%04d", year, seq), nil
}
