package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓库
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// FindByUser 用户的通知列表
func (r *NotificationRepository) FindByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]entity.Notification, error) {
	var notifications []entity.Notification

	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = false")
	}
	if limit <= 0 {
		limit = 50
	}

	err := query.Order("created_at DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}

// Notify 写入一条通知
func (r *NotificationRepository) Notify(ctx context.Context, userID, notifType, title, content, entityType, entityID string) error {
	n := &entity.Notification{
		ID:         uuid.New().String()[:32],
		UserID:     userID,
		Type:       notifType,
		Title:      title,
		Content:    content,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// MarkRead 标记已读
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead 全部标记已读
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = false", userID).
		Update("is_read", true).Error
}

// SettingRepository 系统配置仓库
type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get 读取配置项
func (r *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	var setting entity.SystemSetting
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return setting.Value, nil
}

// Set 写入配置项
func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	setting := entity.SystemSetting{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Save(&setting).Error
}

// All 全部配置项
func (r *SettingRepository) All(ctx context.Context) ([]entity.SystemSetting, error) {
	var settings []entity.SystemSetting
	err := r.db.WithContext(ctx).Order("key").Find(&settings).Error
	return settings, err
}
