package service

import (
	"context"
	"math"

	"github.com/bitfantasy/studioqc/internal/config"
	"github.com/bitfantasy/studioqc/internal/qc/cache"
	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"github.com/bitfantasy/studioqc/internal/qc/repository"
	"github.com/bitfantasy/studioqc/internal/qc/scoring"
)

// 聚合口径
const (
	ViewItems  = "items"  // 按检验项条数（默认口径）
	ViewPhases = "phases" // 按阶段完成数（列表页旧口径）
)

// MetricsService 项目质量指标聚合服务
// 所有指标由检验数据实时推导，固定key的聚合结果走内存缓存
type MetricsService struct {
	projectRepo *repository.ProjectRepository
	phaseRepo   *repository.PhaseRepository
	memCache    *cache.Cache
	cfg         config.CacheConfig
}

func NewMetricsService(projectRepo *repository.ProjectRepository, phaseRepo *repository.PhaseRepository, memCache *cache.Cache, cfg config.CacheConfig) *MetricsService {
	return &MetricsService{
		projectRepo: projectRepo,
		phaseRepo:   phaseRepo,
		memCache:    memCache,
		cfg:         cfg,
	}
}

// PhaseStatus 单阶段的检验状态，取该阶段最新一张检验单
type PhaseStatus struct {
	PhaseID   string   `json:"phase_id"`
	PhaseName string   `json:"phase_name"`
	Score     *float64 `json:"score"`
	Status    string   `json:"status"`
}

// PhaseNotStarted 阶段尚无检验单
const PhaseNotStarted = "not_started"

// ProjectMetrics 项目指标
type ProjectMetrics struct {
	ProjectID       string        `json:"project_id"`
	View            string        `json:"view"`
	OverallProgress int           `json:"overall_progress"`
	AverageScore    float64       `json:"average_score"`
	ActiveIssues    int           `json:"active_issues"`
	PerPhase        []PhaseStatus `json:"per_phase"`
}

// GetProjectMetrics 计算单个项目的指标
// view=items 为标准口径（按检验项条数，NA剔除）；view=phases 为按阶段
// 完成数的旧口径，仅为兼容列表页保留。零检验单时全部指标为0
func (s *MetricsService) GetProjectMetrics(ctx context.Context, projectID, view string) (*ProjectMetrics, error) {
	if view != ViewPhases {
		view = ViewItems
	}

	project, err := s.projectRepo.FindByIDWithInspections(ctx, projectID)
	if err != nil {
		return nil, err
	}
	phases, err := s.phaseRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	metrics := &ProjectMetrics{
		ProjectID: projectID,
		View:      view,
		PerPhase:  perPhaseStatus(phases, project.Inspections),
	}
	metrics.ActiveIssues = activeIssues(project.Inspections)

	if view == ViewPhases {
		completed := 0
		var scoreSum float64
		scored := 0
		for _, ps := range metrics.PerPhase {
			if ps.Status == entity.InspectionStatusApproved {
				completed++
			}
			if ps.Score != nil {
				scoreSum += *ps.Score
				scored++
			}
		}
		if len(phases) > 0 {
			metrics.OverallProgress = int(math.Round(float64(completed) / float64(len(phases)) * 100))
		}
		if scored > 0 {
			metrics.AverageScore = scoring.Round1(scoreSum / float64(scored))
		}
		return metrics, nil
	}

	var tally scoring.Tally
	for _, insp := range project.Inspections {
		tally.Add(scoring.FromItems(insp.Items))
	}
	metrics.OverallProgress = tally.Progress()
	metrics.AverageScore = float64(tally.AverageScore())
	return metrics, nil
}

// perPhaseStatus 每个全局阶段取该项目最新一张检验单的得分和状态
// inspections须已按 created_at DESC, id DESC 排序，保证同时间戳时结果稳定
func perPhaseStatus(phases []entity.Phase, inspections []entity.Inspection) []PhaseStatus {
	statuses := make([]PhaseStatus, 0, len(phases))
	for _, phase := range phases {
		ps := PhaseStatus{
			PhaseID:   phase.ID,
			PhaseName: phase.Name,
			Status:    PhaseNotStarted,
		}
		for i := range inspections {
			if inspections[i].PhaseID == phase.ID {
				score := inspections[i].Score
				ps.Score = &score
				ps.Status = inspections[i].Status
				break
			}
		}
		statuses = append(statuses, ps)
	}
	return statuses
}

// activeIssues 未关闭检验单（submitted/needs_rework）中不合格项的数量
// approved的不再计入，避免已处理问题重复出现在看板上
func activeIssues(inspections []entity.Inspection) int {
	count := 0
	for _, insp := range inspections {
		if insp.Status != entity.InspectionStatusSubmitted &&
			insp.Status != entity.InspectionStatusNeedsRework {
			continue
		}
		for _, item := range insp.Items {
			if item.Status == entity.ItemStatusNotOK {
				count++
			}
		}
	}
	return count
}

// ProjectSummary 列表页的项目概览行
type ProjectSummary struct {
	Project         entity.Project `json:"project"`
	OverallProgress int            `json:"overall_progress"`
	AverageScore    int            `json:"average_score"`
	ActiveIssues    int            `json:"active_issues"`
	InspectionCount int            `json:"inspection_count"`
}

// ListProjectSummaries 全部项目的概览（标准口径），走缓存
func (s *MetricsService) ListProjectSummaries(ctx context.Context) ([]ProjectSummary, error) {
	value, err := s.memCache.GetOrFetch(ctx, cache.KeyProjectSummaries, s.cfg.ProjectsTTL, func(ctx context.Context) (interface{}, error) {
		return s.buildProjectSummaries(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.([]ProjectSummary), nil
}

func (s *MetricsService) buildProjectSummaries(ctx context.Context) ([]ProjectSummary, error) {
	projects, err := s.projectRepo.FindAllWithInspections(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]ProjectSummary, 0, len(projects))
	for _, project := range projects {
		var tally scoring.Tally
		for _, insp := range project.Inspections {
			tally.Add(scoring.FromItems(insp.Items))
		}
		summary := ProjectSummary{
			OverallProgress: tally.Progress(),
			AverageScore:    tally.AverageScore(),
			ActiveIssues:    activeIssues(project.Inspections),
			InspectionCount: len(project.Inspections),
		}
		summary.Project = project
		summary.Project.Inspections = nil
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// DashboardSummary 全局看板
type DashboardSummary struct {
	TotalProjects    int64            `json:"total_projects"`
	ProjectsByStatus map[string]int64 `json:"projects_by_status"`
	OverallProgress  int              `json:"overall_progress"`
	AverageScore     int              `json:"average_score"`
	ActiveIssues     int              `json:"active_issues"`
	PendingReview    int              `json:"pending_review"`
}

// GetDashboardSummary 全局看板聚合（标准口径），走缓存
func (s *MetricsService) GetDashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	value, err := s.memCache.GetOrFetch(ctx, cache.KeyDashboardSummary, s.cfg.DashboardTTL, func(ctx context.Context) (interface{}, error) {
		return s.buildDashboardSummary(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.(*DashboardSummary), nil
}

func (s *MetricsService) buildDashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	projects, err := s.projectRepo.FindAllWithInspections(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.projectRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		TotalProjects:    int64(len(projects)),
		ProjectsByStatus: byStatus,
	}

	var tally scoring.Tally
	for _, project := range projects {
		for _, insp := range project.Inspections {
			tally.Add(scoring.FromItems(insp.Items))
			if insp.Status == entity.InspectionStatusSubmitted {
				summary.PendingReview++
			}
		}
		summary.ActiveIssues += activeIssues(project.Inspections)
	}
	summary.OverallProgress = tally.Progress()
	summary.AverageScore = tally.AverageScore()

	return summary, nil
}
