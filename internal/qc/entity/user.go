package entity

import "time"

// User 用户
type User struct {
	ID           string `json:"id" gorm:"primaryKey;size:32"`
	Username     string `json:"username" gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"size:100;not null"`

	Name   string `json:"name" gorm:"size:100;not null"`
	Email  string `json:"email" gorm:"size:200"`
	Role   string `json:"role" gorm:"size:20;default:viewer"`
	Status string `json:"status" gorm:"size:20;default:active"`

	// Perfex staff关联
	PerfexStaffID *int64 `json:"perfex_staff_id" gorm:"index"`

	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "qc_users"
}

// 用户角色
const (
	RoleAdmin  = "admin"
	RoleQC     = "qc"
	RoleViewer = "viewer"
)
