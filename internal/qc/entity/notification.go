package entity

import "time"

// Notification 站内通知
type Notification struct {
	ID     string `json:"id" gorm:"primaryKey;size:32"`
	UserID string `json:"user_id" gorm:"size:32;index;not null"`

	Type    string `json:"type" gorm:"size:50"` // inspection_submitted/inspection_reviewed
	Title   string `json:"title" gorm:"size:200"`
	Content string `json:"content" gorm:"type:text"`

	EntityType string `json:"entity_type" gorm:"size:50"`
	EntityID   string `json:"entity_id" gorm:"size:32;index"`

	IsRead    bool      `json:"is_read" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "qc_notifications"
}

// SystemSetting 系统配置项
type SystemSetting struct {
	Key       string    `json:"key" gorm:"primaryKey;size:100"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "qc_system_settings"
}
