package entity

import "time"

// Project 项目
type Project struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	Code     string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name     string `json:"name" gorm:"size:200;not null"`
	ClientID *string `json:"client_id" gorm:"size:32"`

	ClientName  string `json:"client_name" gorm:"size:200"`
	ProjectType string `json:"project_type" gorm:"size:50"` // interior/architecture/furniture
	Status      string `json:"status" gorm:"size:20;default:active"`

	// Perfex CRM关联
	PerfexID *int64 `json:"perfex_id" gorm:"index"`

	Description string     `json:"description" gorm:"type:text"`
	StartDate   *time.Time `json:"start_date"`
	Deadline    *time.Time `json:"deadline"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Inspections []Inspection `json:"inspections,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "qc_projects"
}

// 项目状态
const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCancelled = "cancelled"
)

// Client 客户（从Perfex拉取的只读副本）
type Client struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	PerfexID int64  `json:"perfex_id" gorm:"uniqueIndex"`
	Company  string `json:"company" gorm:"size:200"`
	VAT      string `json:"vat" gorm:"size:50"`
	Phone    string `json:"phone" gorm:"size:50"`
	City     string `json:"city" gorm:"size:100"`
	Country  string `json:"country" gorm:"size:100"`

	// 主联系人，来自CRM联系人列表的首个在用条目
	ContactName  string `json:"contact_name" gorm:"size:100"`
	ContactEmail string `json:"contact_email" gorm:"size:100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Client) TableName() string {
	return "qc_clients"
}
