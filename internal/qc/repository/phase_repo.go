package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"gorm.io/gorm"
)

// PhaseRepository 阶段目录仓库
type PhaseRepository struct {
	db *gorm.DB
}

func NewPhaseRepository(db *gorm.DB) *PhaseRepository {
	return &PhaseRepository{db: db}
}

// FindAll 按排序返回全部阶段
func (r *PhaseRepository) FindAll(ctx context.Context) ([]entity.Phase, error) {
	var phases []entity.Phase
	err := r.db.WithContext(ctx).
		Order("sort_order, name").
		Find(&phases).Error
	return phases, err
}

// FindByID 根据ID查找阶段
func (r *PhaseRepository) FindByID(ctx context.Context, id string) (*entity.Phase, error) {
	var phase entity.Phase
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&phase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &phase, nil
}

// Create 创建阶段
func (r *PhaseRepository) Create(ctx context.Context, phase *entity.Phase) error {
	return r.db.WithContext(ctx).Create(phase).Error
}

// Update 更新阶段
func (r *PhaseRepository) Update(ctx context.Context, phase *entity.Phase) error {
	return r.db.WithContext(ctx).Save(phase).Error
}

// Delete 删除阶段
func (r *PhaseRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Phase{}).Error
}
