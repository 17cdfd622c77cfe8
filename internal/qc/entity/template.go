package entity

import "time"

// 模板状态
const (
	TemplateStatusActive   = "active"
	TemplateStatusArchived = "archived"
)

// ChecklistTemplate 检查表模板，按项目类型划分并带版本号
type ChecklistTemplate struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	Name        string `json:"name" gorm:"size:200;not null"`
	ProjectType string `json:"project_type" gorm:"size:50;index"`
	Version     int    `json:"version" gorm:"default:1"`
	Status      string `json:"status" gorm:"size:20;default:active"` // active/archived

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []ChecklistItemTemplate `json:"items,omitempty" gorm:"foreignKey:TemplateID"`
}

func (ChecklistTemplate) TableName() string {
	return "qc_checklist_templates"
}

// ChecklistItemTemplate 检查项定义，挂在模板和阶段上
// Weight和IsMandatory在创建检验时复制到检验项，之后模板修改不回溯
type ChecklistItemTemplate struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	TemplateID string `json:"template_id" gorm:"size:32;index;not null"`
	PhaseID    string `json:"phase_id" gorm:"size:32;index;not null"`

	Title       string  `json:"title" gorm:"size:200;not null"`
	Description string  `json:"description" gorm:"type:text"`
	IsMandatory bool    `json:"is_mandatory" gorm:"default:false"`
	Weight      float64 `json:"weight" gorm:"type:decimal(8,2);default:1"`
	SortOrder   int     `json:"sort_order" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ChecklistItemTemplate) TableName() string {
	return "qc_checklist_item_templates"
}
