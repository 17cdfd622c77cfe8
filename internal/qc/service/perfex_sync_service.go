package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"github.com/bitfantasy/studioqc/internal/qc/repository"
	"github.com/bitfantasy/studioqc/internal/shared/perfex"
)

// PerfexSyncService Perfex CRM同步服务
// 拉取方向：项目/客户/员工从Perfex同步到本地（Perfex为权威数据源）
// 推送方向：项目状态、检验结论回写Perfex
// 推送失败只记日志不回滚本地事务，下一轮定时同步兜底
type PerfexSyncService struct {
	client      *perfex.Client
	projectRepo *repository.ProjectRepository
	clientRepo  *repository.ClientRepository
	userRepo    *repository.UserRepository
	exporter    *ExportService
	logger      *zap.Logger
}

func NewPerfexSyncService(client *perfex.Client, projectRepo *repository.ProjectRepository, clientRepo *repository.ClientRepository, userRepo *repository.UserRepository) *PerfexSyncService {
	return &PerfexSyncService{
		client:      client,
		projectRepo: projectRepo,
		clientRepo:  clientRepo,
		userRepo:    userRepo,
		logger:      zap.L(),
	}
}

// SetExporter 注入检验单导出，检验通过后把报告附到CRM项目下
func (s *PerfexSyncService) SetExporter(exporter *ExportService) {
	s.exporter = exporter
}

// ListStaff 透传CRM员工列表，供前端配置员工关联
func (s *PerfexSyncService) ListStaff(ctx context.Context) ([]perfex.Staff, error) {
	return s.client.GetAllStaff(ctx)
}

// SyncResult 一轮同步的统计
type SyncResult struct {
	Projects int `json:"projects"`
	Clients  int `json:"clients"`
	Staff    int `json:"staff"`
	Errors   int `json:"errors"`
}

// SyncAll 执行一轮完整同步：客户 → 项目 → 员工
// 单条记录失败跳过并计数，不中断整轮
func (s *PerfexSyncService) SyncAll(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}

	if err := s.syncClients(ctx, result); err != nil {
		return result, fmt.Errorf("sync clients: %w", err)
	}
	if err := s.syncProjects(ctx, result); err != nil {
		return result, fmt.Errorf("sync projects: %w", err)
	}
	if err := s.syncStaff(ctx, result); err != nil {
		return result, fmt.Errorf("sync staff: %w", err)
	}

	s.logger.Info("Perfex sync completed",
		zap.Int("projects", result.Projects),
		zap.Int("clients", result.Clients),
		zap.Int("staff", result.Staff),
		zap.Int("errors", result.Errors))
	return result, nil
}

func (s *PerfexSyncService) syncClients(ctx context.Context, result *SyncResult) error {
	customers, err := s.client.GetCustomers(ctx)
	if err != nil {
		return err
	}

	for _, customer := range customers {
		perfexID, err := strconv.ParseInt(customer.UserID, 10, 64)
		if err != nil {
			result.Errors++
			continue
		}
		client := &entity.Client{
			ID:       generateID(),
			PerfexID: perfexID,
			Company:  customer.Company,
			VAT:      customer.VAT,
			Phone:    customer.PhoneNumber,
			City:     customer.City,
		}
		s.applyPrimaryContact(ctx, client, customer.UserID)
		if err := s.clientRepo.Upsert(ctx, client); err != nil {
			s.logger.Warn("upsert client failed",
				zap.String("perfex_id", customer.UserID), zap.Error(err))
			result.Errors++
			continue
		}
		result.Clients++
	}
	return nil
}

// applyPrimaryContact 取客户联系人列表中首个在用条目作为主联系人
// 拉取失败不算同步错误，联系人缺失不影响客户本身落库
func (s *PerfexSyncService) applyPrimaryContact(ctx context.Context, client *entity.Client, customerID string) {
	contacts, err := s.client.GetContacts(ctx, customerID)
	if err != nil {
		s.logger.Warn("fetch contacts failed",
			zap.String("customer_id", customerID), zap.Error(err))
		return
	}
	for _, contact := range contacts {
		if contact.Active == "0" {
			continue
		}
		client.ContactName = strings.TrimSpace(contact.FirstName + " " + contact.LastName)
		client.ContactEmail = contact.Email
		return
	}
}

func (s *PerfexSyncService) syncProjects(ctx context.Context, result *SyncResult) error {
	projects, err := s.client.GetProjects(ctx)
	if err != nil {
		return err
	}

	for _, remote := range projects {
		perfexID, err := strconv.ParseInt(remote.ID, 10, 64)
		if err != nil {
			result.Errors++
			continue
		}

		local, err := s.projectRepo.FindByPerfexID(ctx, perfexID)
		if err == repository.ErrNotFound {
			if err := s.createFromPerfex(ctx, perfexID, remote); err != nil {
				s.logger.Warn("create project from perfex failed",
					zap.String("perfex_id", remote.ID), zap.Error(err))
				result.Errors++
				continue
			}
			result.Projects++
			continue
		}
		if err != nil {
			result.Errors++
			continue
		}

		// Perfex为权威源：名称、客户、日期、状态以远端为准
		local.Name = remote.Name
		local.Description = remote.Description
		local.Status = mapPerfexStatus(remote.Status)
		local.StartDate = parsePerfexDate(remote.StartDate)
		local.Deadline = parsePerfexDate(remote.Deadline)
		s.applyClient(ctx, local, remote.ClientID)
		if err := s.projectRepo.Update(ctx, local); err != nil {
			result.Errors++
			continue
		}
		result.Projects++
	}
	return nil
}

func (s *PerfexSyncService) createFromPerfex(ctx context.Context, perfexID int64, remote perfex.Project) error {
	code, err := s.projectRepo.GenerateCode(ctx)
	if err != nil {
		return err
	}
	project := &entity.Project{
		ID:          generateID(),
		Code:        code,
		Name:        remote.Name,
		Description: remote.Description,
		Status:      mapPerfexStatus(remote.Status),
		PerfexID:    &perfexID,
		StartDate:   parsePerfexDate(remote.StartDate),
		Deadline:    parsePerfexDate(remote.Deadline),
	}
	s.applyClient(ctx, project, remote.ClientID)
	return s.projectRepo.Create(ctx, project)
}

// applyClient 按Perfex客户ID关联本地客户副本
func (s *PerfexSyncService) applyClient(ctx context.Context, project *entity.Project, clientID string) {
	perfexClientID, err := strconv.ParseInt(clientID, 10, 64)
	if err != nil {
		return
	}
	clients, err := s.clientRepo.FindAll(ctx)
	if err != nil {
		return
	}
	for i := range clients {
		if clients[i].PerfexID == perfexClientID {
			project.ClientID = &clients[i].ID
			project.ClientName = clients[i].Company
			return
		}
	}
}

func (s *PerfexSyncService) syncStaff(ctx context.Context, result *SyncResult) error {
	staff, err := s.client.GetAllStaff(ctx)
	if err != nil {
		return err
	}

	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	byEmail := make(map[string]*entity.User, len(users))
	for i := range users {
		if users[i].Email != "" {
			byEmail[users[i].Email] = &users[i]
		}
	}

	// 仅按邮箱关联已有用户，不自动开账号
	for _, member := range staff {
		user, ok := byEmail[member.Email]
		if !ok || user.PerfexStaffID != nil {
			continue
		}
		staffID, err := strconv.ParseInt(member.StaffID, 10, 64)
		if err != nil {
			result.Errors++
			continue
		}
		user.PerfexStaffID = &staffID
		if err := s.userRepo.Update(ctx, user); err != nil {
			result.Errors++
			continue
		}
		result.Staff++
	}
	return nil
}

// PushProjectStatus 本地项目状态回写Perfex
func (s *PerfexSyncService) PushProjectStatus(ctx context.Context, project *entity.Project) {
	if project.PerfexID == nil {
		return
	}
	perfexID := strconv.FormatInt(*project.PerfexID, 10)
	if err := s.client.UpdateProjectStatus(ctx, perfexID, mapLocalStatus(project.Status)); err != nil {
		s.logger.Warn("push project status failed",
			zap.String("project_id", project.ID), zap.Error(err))
	}
}

// PushInspectionApproved 检验通过后在Perfex项目下留痕
func (s *PerfexSyncService) PushInspectionApproved(ctx context.Context, inspection *entity.Inspection) {
	project, err := s.projectRepo.FindByID(ctx, inspection.ProjectID)
	if err != nil || project.PerfexID == nil {
		return
	}
	perfexID := strconv.FormatInt(*project.PerfexID, 10)
	note := perfex.CreateNoteReq{
		Description: fmt.Sprintf("质检通过：检验单 %s，得分 %.1f", inspection.Code, inspection.Score),
	}
	if err := s.client.CreateProjectNote(ctx, perfexID, note); err != nil {
		s.logger.Warn("push inspection note failed",
			zap.String("inspection_id", inspection.ID), zap.Error(err))
	}
	s.uploadInspectionReport(ctx, perfexID, inspection.ID)
}

// uploadInspectionReport 导出检验单报告并上传到CRM项目文件
func (s *PerfexSyncService) uploadInspectionReport(ctx context.Context, perfexID, inspectionID string) {
	if s.exporter == nil {
		return
	}
	f, filename, err := s.exporter.ExportInspection(ctx, inspectionID)
	if err != nil {
		s.logger.Warn("export inspection report failed",
			zap.String("inspection_id", inspectionID), zap.Error(err))
		return
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Warn("serialize inspection report failed",
			zap.String("inspection_id", inspectionID), zap.Error(err))
		return
	}
	if err := s.client.UploadProjectFile(ctx, perfexID, filename, buf); err != nil {
		s.logger.Warn("upload inspection report failed",
			zap.String("inspection_id", inspectionID), zap.Error(err))
	}
}

// PushReworkTask 检验需返工时在Perfex建任务提醒项目负责人
func (s *PerfexSyncService) PushReworkTask(ctx context.Context, inspection *entity.Inspection, reason string) {
	project, err := s.projectRepo.FindByID(ctx, inspection.ProjectID)
	if err != nil || project.PerfexID == nil {
		return
	}
	task := perfex.CreateTaskReq{
		Name:        fmt.Sprintf("返工：检验单 %s", inspection.Code),
		Description: reason,
		StartDate:   time.Now().Format("2006-01-02"),
		Priority:    "3",
		RelType:     "project",
		RelID:       strconv.FormatInt(*project.PerfexID, 10),
	}
	if err := s.client.CreateTask(ctx, task); err != nil {
		s.logger.Warn("push rework task failed",
			zap.String("inspection_id", inspection.ID), zap.Error(err))
	}
}

// mapPerfexStatus Perfex项目状态码 → 本地状态
func mapPerfexStatus(status string) string {
	switch status {
	case perfex.ProjectStatusFinished:
		return entity.ProjectStatusCompleted
	case perfex.ProjectStatusOnHold:
		return entity.ProjectStatusOnHold
	case perfex.ProjectStatusCancelled:
		return entity.ProjectStatusCancelled
	default:
		return entity.ProjectStatusActive
	}
}

// mapLocalStatus 本地状态 → Perfex项目状态码
func mapLocalStatus(status string) string {
	switch status {
	case entity.ProjectStatusCompleted:
		return perfex.ProjectStatusFinished
	case entity.ProjectStatusOnHold:
		return perfex.ProjectStatusOnHold
	case entity.ProjectStatusCancelled:
		return perfex.ProjectStatusCancelled
	default:
		return perfex.ProjectStatusInProgress
	}
}

// parsePerfexDate 解析Perfex日期（2006-01-02），空串或零值返回nil
func parsePerfexDate(value string) *time.Time {
	if value == "" || value == "0000-00-00" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}
