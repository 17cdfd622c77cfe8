package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bitfantasy/studioqc/internal/qc/cache"
	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"github.com/bitfantasy/studioqc/internal/qc/repository"
	"github.com/bitfantasy/studioqc/internal/qc/scoring"
)

// InspectionService 检验单生命周期服务
//
// 得分和状态在每次检验项变更的请求内同步重算。并发修改同一检验单
// 不同检验项时，最终得分取决于最后一次重算读到的项集合（last-write-wins，
// 与存储层一致，无乐观锁）
type InspectionService struct {
	repo         *repository.InspectionRepository
	templateRepo *repository.TemplateRepository
	phaseRepo    *repository.PhaseRepository
	projectRepo  *repository.ProjectRepository
	userRepo     *repository.UserRepository
	notifRepo    *repository.NotificationRepository

	memCache   *cache.Cache
	perfexSync *PerfexSyncService
	logger     *zap.Logger
}

func NewInspectionService(
	repo *repository.InspectionRepository,
	templateRepo *repository.TemplateRepository,
	phaseRepo *repository.PhaseRepository,
	projectRepo *repository.ProjectRepository,
	userRepo *repository.UserRepository,
	notifRepo *repository.NotificationRepository,
) *InspectionService {
	return &InspectionService{
		repo:         repo,
		templateRepo: templateRepo,
		phaseRepo:    phaseRepo,
		projectRepo:  projectRepo,
		userRepo:     userRepo,
		notifRepo:    notifRepo,
		logger:       zap.L(),
	}
}

// SetCache 注入聚合缓存，检验数据变更时失效
func (s *InspectionService) SetCache(c *cache.Cache) {
	s.memCache = c
}

// SetPerfexSync 注入Perfex同步服务（可为nil）
func (s *InspectionService) SetPerfexSync(sync *PerfexSyncService) {
	s.perfexSync = sync
}

func (s *InspectionService) invalidateAggregates() {
	if s.memCache != nil {
		s.memCache.Invalidate(cache.KeyDashboardSummary, cache.KeyProjectSummaries)
	}
}

// ListInspections 检验单列表
func (s *InspectionService) ListInspections(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Inspection, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// GetInspection 检验单详情
func (s *InspectionService) GetInspection(ctx context.Context, id string) (*entity.Inspection, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateInspectionRequest 创建检验单请求
type CreateInspectionRequest struct {
	ProjectID  string `json:"project_id" binding:"required"`
	PhaseID    string `json:"phase_id" binding:"required"`
	TemplateID string `json:"template_id" binding:"required"`
	Notes      string `json:"notes"`
}

// CreateInspection 创建检验单，检验项从模板中该阶段的检查项播种
// 权重和必检标记在此刻复制，之后模板变更不影响已建检验单
func (s *InspectionService) CreateInspection(ctx context.Context, inspectorID string, req *CreateInspectionRequest) (*entity.Inspection, error) {
	if inspectorID == "" {
		return nil, &ValidationError{Message: "inspector identity is required"}
	}

	inspector, err := s.userRepo.FindByID(ctx, inspectorID)
	if err != nil {
		return nil, fmt.Errorf("inspector not found: %w", err)
	}
	if inspector.Role != entity.RoleQC && inspector.Role != entity.RoleAdmin {
		return nil, &ValidationError{Message: "inspector must have qc role"}
	}

	if _, err := s.projectRepo.FindByID(ctx, req.ProjectID); err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}
	if _, err := s.phaseRepo.FindByID(ctx, req.PhaseID); err != nil {
		return nil, fmt.Errorf("phase not found: %w", err)
	}
	template, err := s.templateRepo.FindByID(ctx, req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("template not found: %w", err)
	}
	if template.Status == entity.TemplateStatusArchived {
		return nil, &ValidationError{Message: "template is archived"}
	}

	templateItems, err := s.templateRepo.ListItemsByPhase(ctx, req.TemplateID, req.PhaseID)
	if err != nil {
		return nil, fmt.Errorf("load template items: %w", err)
	}

	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := time.Now()
	inspection := &entity.Inspection{
		ID:          generateID(),
		Code:        code,
		ProjectID:   req.ProjectID,
		PhaseID:     req.PhaseID,
		TemplateID:  req.TemplateID,
		InspectorID: inspectorID,
		Status:      entity.InspectionStatusDraft,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	items := make([]entity.InspectionItem, 0, len(templateItems))
	for _, ti := range templateItems {
		items = append(items, entity.InspectionItem{
			ID:             generateID(),
			InspectionID:   inspection.ID,
			TemplateItemID: ti.ID,
			Title:          ti.Title,
			IsMandatory:    ti.IsMandatory,
			Weight:         ti.Weight,
			SortOrder:      ti.SortOrder,
			Status:         entity.ItemStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	if err := s.repo.CreateWithItems(ctx, inspection, items); err != nil {
		return nil, err
	}
	inspection.Items = items

	s.invalidateAggregates()
	return inspection, nil
}

// ItemUpdate 单个检验项的字段更新
type ItemUpdate struct {
	ID            string   `json:"id" binding:"required"`
	Status        string   `json:"status" binding:"required"`
	MeasuredValue *float64 `json:"measured_value"`
	Notes         string   `json:"notes"`
	AttachmentURL string   `json:"attachment_url"`
}

// SaveDraft 保存检验项变更并同步重算得分
// 必检项不合格时检验单降为needs_rework，否则保持原状态；校验失败不落库
func (s *InspectionService) SaveDraft(ctx context.Context, id, actorID string, updates []ItemUpdate) (*entity.Inspection, error) {
	if actorID == "" {
		return nil, &ValidationError{Message: "actor identity is required"}
	}

	inspection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*entity.InspectionItem, len(inspection.Items))
	for i := range inspection.Items {
		byID[inspection.Items[i].ID] = &inspection.Items[i]
	}

	now := time.Now()
	changed := make([]entity.InspectionItem, 0, len(updates))
	for _, u := range updates {
		item, ok := byID[u.ID]
		if !ok {
			return nil, fmt.Errorf("inspection item %s: %w", u.ID, repository.ErrNotFound)
		}
		if !entity.ValidItemStatuses[u.Status] {
			return nil, &ValidationError{Message: "invalid item status: " + u.Status}
		}
		item.Status = u.Status
		item.MeasuredValue = u.MeasuredValue
		item.Notes = u.Notes
		if u.AttachmentURL != "" {
			item.AttachmentURL = u.AttachmentURL
		}
		item.UpdatedAt = now
		changed = append(changed, *item)
	}

	s.recalculate(inspection)
	inspection.UpdatedAt = now

	if err := s.repo.UpdateWithItems(ctx, inspection, changed); err != nil {
		return nil, err
	}

	s.invalidateAggregates()
	return inspection, nil
}

// Submit 提交检验单
// 仅draft/needs_rework可提交，已提交或已评审（approved/rejected为终态）的
// 拒绝重复提交；必检项仍有pending的返回校验错误并给出数量；
// 必检项有不合格的落为needs_rework，否则落为submitted并记提交时间
func (s *InspectionService) Submit(ctx context.Context, id, actorID string) (*entity.Inspection, error) {
	if actorID == "" {
		return nil, &ValidationError{Message: "actor identity is required"}
	}

	inspection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inspection.Status != entity.InspectionStatusDraft && inspection.Status != entity.InspectionStatusNeedsRework {
		return nil, fmt.Errorf("inspection %s cannot be submitted from %s: %w", inspection.Code, inspection.Status, ErrInvalidState)
	}

	pendingMandatory := 0
	for _, item := range inspection.Items {
		if item.IsMandatory && item.Status == entity.ItemStatusPending {
			pendingMandatory++
		}
	}
	if pendingMandatory > 0 {
		return nil, &ValidationError{
			Message:             fmt.Sprintf("%d mandatory items are still pending", pendingMandatory),
			IncompleteMandatory: pendingMandatory,
		}
	}

	result := s.recalculate(inspection)
	now := time.Now()
	if result.MandatoryFailed {
		inspection.Status = entity.InspectionStatusNeedsRework
	} else {
		inspection.Status = entity.InspectionStatusSubmitted
	}
	inspection.SubmittedAt = &now
	inspection.UpdatedAt = now

	if err := s.repo.Update(ctx, inspection); err != nil {
		return nil, err
	}

	s.notifyReviewers(ctx, inspection)
	s.invalidateAggregates()
	return inspection, nil
}

// UpdateItemRequest 单项更新请求
type UpdateItemRequest struct {
	Status        string   `json:"status" binding:"required"`
	MeasuredValue *float64 `json:"measured_value"`
	Notes         string   `json:"notes"`
	AttachmentURL string   `json:"attachment_url"`
}

// UpdateItem 更新单个检验项并立即重算所属检验单的得分和状态
func (s *InspectionService) UpdateItem(ctx context.Context, itemID, actorID string, req *UpdateItemRequest) (*entity.Inspection, error) {
	if actorID == "" {
		return nil, &ValidationError{Message: "actor identity is required"}
	}
	if !entity.ValidItemStatuses[req.Status] {
		return nil, &ValidationError{Message: "invalid item status: " + req.Status}
	}

	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	item.Status = req.Status
	item.MeasuredValue = req.MeasuredValue
	item.Notes = req.Notes
	if req.AttachmentURL != "" {
		item.AttachmentURL = req.AttachmentURL
	}
	item.UpdatedAt = time.Now()

	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, err
	}

	// 重新读取全量检验项后重算
	inspection, err := s.repo.FindByID(ctx, item.InspectionID)
	if err != nil {
		return nil, err
	}
	s.recalculate(inspection)
	inspection.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, inspection); err != nil {
		return nil, err
	}

	s.invalidateAggregates()
	return inspection, nil
}

// ReviewRequest 评审请求
type ReviewRequest struct {
	Decision string `json:"decision" binding:"required"` // approve/reject/rework
	Comment  string `json:"comment"`
}

// Review 评审已提交的检验单
func (s *InspectionService) Review(ctx context.Context, id, reviewerID string, req *ReviewRequest) (*entity.Inspection, error) {
	if reviewerID == "" {
		return nil, &ValidationError{Message: "reviewer identity is required"}
	}

	target, ok := entity.ValidReviewDecisions[req.Decision]
	if !ok {
		return nil, &ValidationError{Message: "invalid review decision: " + req.Decision}
	}

	inspection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inspection.Status != entity.InspectionStatusSubmitted {
		return nil, fmt.Errorf("inspection %s is not submitted: %w", inspection.Code, ErrInvalidState)
	}

	now := time.Now()
	inspection.Status = target
	inspection.ReviewedAt = &now
	inspection.ReviewedBy = &reviewerID
	inspection.UpdatedAt = now

	if err := s.repo.Update(ctx, inspection); err != nil {
		return nil, err
	}

	if err := s.notifRepo.Notify(ctx, inspection.InspectorID, "inspection_reviewed",
		fmt.Sprintf("检验 %s 评审结果: %s", inspection.Code, req.Decision),
		req.Comment, "inspection", inspection.ID); err != nil {
		s.logger.Warn("notify inspector failed",
			zap.String("inspection_id", inspection.ID), zap.Error(err))
	}

	// 审批通过时回写Perfex项目备注，要求返工时建Perfex任务
	if s.perfexSync != nil {
		switch target {
		case entity.InspectionStatusApproved:
			s.perfexSync.PushInspectionApproved(ctx, inspection)
		case entity.InspectionStatusNeedsRework:
			s.perfexSync.PushReworkTask(ctx, inspection, req.Comment)
		}
	}

	s.invalidateAggregates()
	return inspection, nil
}

// AddSignatureRequest 签字请求
type AddSignatureRequest struct {
	Role     string `json:"role" binding:"required"`
	Approved *bool  `json:"approved"`
}

// AddSignature 为检验单追加签字
func (s *InspectionService) AddSignature(ctx context.Context, inspectionID, signerID string, req *AddSignatureRequest) (*entity.Signature, error) {
	if signerID == "" {
		return nil, &ValidationError{Message: "signer identity is required"}
	}

	inspection, err := s.repo.FindByID(ctx, inspectionID)
	if err != nil {
		return nil, err
	}

	signer, err := s.userRepo.FindByID(ctx, signerID)
	if err != nil {
		return nil, fmt.Errorf("signer not found: %w", err)
	}

	approved := true
	if req.Approved != nil {
		approved = *req.Approved
	}

	now := time.Now()
	sig := &entity.Signature{
		ID:           generateID(),
		InspectionID: inspection.ID,
		SignerID:     signer.ID,
		SignerName:   signer.Name,
		Role:         req.Role,
		Approved:     approved,
		SignedAt:     now,
		CreatedAt:    now,
	}
	if err := s.repo.AddSignature(ctx, sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// recalculate 依据当前检验项重算得分，必检项不合格时强制needs_rework
func (s *InspectionService) recalculate(inspection *entity.Inspection) scoring.Result {
	result := scoring.Compute(scoring.FromItems(inspection.Items))
	inspection.Score = result.Score
	if result.MandatoryFailed {
		inspection.Status = entity.InspectionStatusNeedsRework
	}
	return result
}

// notifyReviewers 提交后通知所有管理员评审
func (s *InspectionService) notifyReviewers(ctx context.Context, inspection *entity.Inspection) {
	reviewers, err := s.userRepo.FindByRole(ctx, entity.RoleAdmin)
	if err != nil {
		s.logger.Warn("load reviewers failed",
			zap.String("inspection_id", inspection.ID), zap.Error(err))
		return
	}
	for _, reviewer := range reviewers {
		if err := s.notifRepo.Notify(ctx, reviewer.ID, "inspection_submitted",
			fmt.Sprintf("检验 %s 待评审", inspection.Code),
			fmt.Sprintf("得分 %.1f，状态 %s", inspection.Score, inspection.Status),
			"inspection", inspection.ID); err != nil {
			s.logger.Warn("notify reviewer failed",
				zap.String("inspection_id", inspection.ID),
				zap.String("user_id", reviewer.ID), zap.Error(err))
		}
	}
}
