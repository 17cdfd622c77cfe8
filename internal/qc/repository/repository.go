package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories QC仓库集合
type Repositories struct {
	Project      *ProjectRepository
	Client       *ClientRepository
	Phase        *PhaseRepository
	Template     *TemplateRepository
	Inspection   *InspectionRepository
	Notification *NotificationRepository
	User         *UserRepository
	Setting      *SettingRepository
}

// NewRepositories 创建QC仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Project:      NewProjectRepository(db),
		Client:       NewClientRepository(db),
		Phase:        NewPhaseRepository(db),
		Template:     NewTemplateRepository(db),
		Inspection:   NewInspectionRepository(db),
		Notification: NewNotificationRepository(db),
		User:         NewUserRepository(db),
		Setting:      NewSettingRepository(db),
	}
}
