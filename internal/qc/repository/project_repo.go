package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"gorm.io/gorm"
)

// ProjectRepository 项目仓库
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindAll 查询项目列表
func (r *ProjectRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Project, int64, error) {
	var items []entity.Project
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Project{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if projectType := filters["project_type"]; projectType != "" {
		query = query.Where("project_type = ?", projectType)
	}
	if clientID := filters["client_id"]; clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}
	if keyword := filters["keyword"]; keyword != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找项目
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// FindByIDWithInspections 查找项目并预加载检验单及检验项
func (r *ProjectRepository) FindByIDWithInspections(ctx context.Context, id string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Preload("Inspections", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Preload("Inspections.Items").
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// FindAllWithInspections 加载全部项目及其检验单（聚合计算用）
func (r *ProjectRepository) FindAllWithInspections(ctx context.Context) ([]entity.Project, error) {
	var projects []entity.Project
	err := r.db.WithContext(ctx).
		Preload("Inspections", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Preload("Inspections.Items").
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

// FindByPerfexID 根据Perfex项目ID查找
func (r *ProjectRepository) FindByPerfexID(ctx context.Context, perfexID int64) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Where("perfex_id = ?", perfexID).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

// Delete 删除项目及其全部检验数据（事务）
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inspectionIDs []string
		if err := tx.Model(&entity.Inspection{}).
			Where("project_id = ?", id).
			Pluck("id", &inspectionIDs).Error; err != nil {
			return err
		}
		if len(inspectionIDs) > 0 {
			if err := tx.Where("inspection_id IN ?", inspectionIDs).
				Delete(&entity.InspectionItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("inspection_id IN ?", inspectionIDs).
				Delete(&entity.Signature{}).Error; err != nil {
				return err
			}
			if err := tx.Where("project_id = ?", id).
				Delete(&entity.Inspection{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&entity.Project{}).Error
	})
}

// GenerateCode 生成项目编码 PRJ-{year}-{4位}
func (r *ProjectRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("PRJ-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.Project{}).
		Select("COALESCE(MAX(code), '')").
		Where("code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "PRJ-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("PRJ-%s-%04d", year, seq), nil
}

// CountByStatus 按状态统计项目数
func (r *ProjectRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&entity.Project{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Count
	}
	return counts, nil
}

// ClientRepository 客户仓库（Perfex只读副本）
type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// FindAll 客户列表
func (r *ClientRepository) FindAll(ctx context.Context) ([]entity.Client, error) {
	var clients []entity.Client
	err := r.db.WithContext(ctx).Order("company").Find(&clients).Error
	return clients, err
}

// Upsert 按Perfex ID写入或更新客户
func (r *ClientRepository) Upsert(ctx context.Context, client *entity.Client) error {
	var existing entity.Client
	err := r.db.WithContext(ctx).
		Where("perfex_id = ?", client.PerfexID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(client).Error
	}
	if err != nil {
		return err
	}
	client.ID = existing.ID
	client.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(client).Error
}
