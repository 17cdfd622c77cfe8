package entity

import "time"

// Phase 阶段目录，全局有序（如 设计/深化/生产/安装）
type Phase struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	Name      string `json:"name" gorm:"size:100;uniqueIndex;not null"`
	SortOrder int    `json:"sort_order" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Phase) TableName() string {
	return "qc_phases"
}
