package entity

import "time"

// Inspection 检验单
type Inspection struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	Code       string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	ProjectID  string `json:"project_id" gorm:"size:32;index;not null"`
	PhaseID    string `json:"phase_id" gorm:"size:32;index;not null"`
	TemplateID string `json:"template_id" gorm:"size:32;not null"`

	InspectorID string `json:"inspector_id" gorm:"size:32;not null"`
	Status      string `json:"status" gorm:"size:20;default:draft"`

	// Score是计算器输出的唯一持久化缓存，随检验项变更同步重算，禁止手工修改
	Score       float64    `json:"score" gorm:"type:decimal(5,1);default:0"`
	SubmittedAt *time.Time `json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	ReviewedBy  *string    `json:"reviewed_by" gorm:"size:32"`

	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items      []InspectionItem `json:"items,omitempty" gorm:"foreignKey:InspectionID"`
	Signatures []Signature      `json:"signatures,omitempty" gorm:"foreignKey:InspectionID"`
}

func (Inspection) TableName() string {
	return "qc_inspections"
}

// 检验单状态
const (
	InspectionStatusDraft       = "draft"
	InspectionStatusSubmitted   = "submitted"
	InspectionStatusNeedsRework = "needs_rework"
	InspectionStatusApproved    = "approved"
	InspectionStatusRejected    = "rejected"
)

// ValidReviewDecisions 评审动作 → 目标状态
var ValidReviewDecisions = map[string]string{
	"approve": InspectionStatusApproved,
	"reject":  InspectionStatusRejected,
	"rework":  InspectionStatusNeedsRework,
}

// InspectionItem 检验项，Weight/IsMandatory为创建时从模板复制的快照
type InspectionItem struct {
	ID             string `json:"id" gorm:"primaryKey;size:32"`
	InspectionID   string `json:"inspection_id" gorm:"size:32;index;not null"`
	TemplateItemID string `json:"template_item_id" gorm:"size:32;not null"`

	Title       string  `json:"title" gorm:"size:200;not null"`
	IsMandatory bool    `json:"is_mandatory" gorm:"default:false"`
	Weight      float64 `json:"weight" gorm:"type:decimal(8,2);default:1"`
	SortOrder   int     `json:"sort_order" gorm:"default:0"`

	Status        string   `json:"status" gorm:"size:20;default:pending"`
	MeasuredValue *float64 `json:"measured_value" gorm:"type:decimal(12,4)"`
	Notes         string   `json:"notes" gorm:"type:text"`
	AttachmentURL string   `json:"attachment_url" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (InspectionItem) TableName() string {
	return "qc_inspection_items"
}

// 检验项状态
const (
	ItemStatusPending = "pending"
	ItemStatusOK      = "ok"
	ItemStatusNotOK   = "not_ok"
	ItemStatusNA      = "na"
)

// ValidItemStatuses 检验项合法状态集合
var ValidItemStatuses = map[string]bool{
	ItemStatusPending: true,
	ItemStatusOK:      true,
	ItemStatusNotOK:   true,
	ItemStatusNA:      true,
}

// Signature 检验签字
type Signature struct {
	ID           string `json:"id" gorm:"primaryKey;size:32"`
	InspectionID string `json:"inspection_id" gorm:"size:32;index;not null"`

	SignerID   string `json:"signer_id" gorm:"size:32;not null"`
	SignerName string `json:"signer_name" gorm:"size:100"`
	Role       string `json:"role" gorm:"size:50"` // inspector/supervisor/client
	Approved   bool   `json:"approved" gorm:"default:true"`

	SignedAt  time.Time `json:"signed_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (Signature) TableName() string {
	return "qc_signatures"
}
