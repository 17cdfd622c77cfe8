package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/studioqc/internal/config"
	"github.com/bitfantasy/studioqc/internal/qc/cache"
	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"github.com/bitfantasy/studioqc/internal/qc/repository"
	"github.com/bitfantasy/studioqc/internal/qc/service"
	"github.com/bitfantasy/studioqc/internal/qc/testutil"
)

func setupMetricsTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	metricsSvc := service.NewMetricsService(repos.Project, repos.Phase, cache.New(), config.CacheConfig{
		DashboardTTL: 30 * time.Second,
		ProjectsTTL:  time.Minute,
	})
	projectSvc := service.NewProjectService(repos.Project, cache.New())
	exportSvc := service.NewExportService(repos.Project, repos.Inspection, repos.Phase)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	projectH := NewProjectHandler(projectSvc, metricsSvc, exportSvc)
	dashboardH := NewDashboardHandler(metricsSvc)
	api.GET("/projects/summaries", projectH.ListSummaries)
	api.GET("/projects/:id/metrics", projectH.GetMetrics)
	api.GET("/dashboard/summary", dashboardH.GetSummary)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// seedMetricsFixtures 两个阶段，一个项目：
// 阶段A最新检验单approved（得分80，4项里3 ok 1 not_ok），
// 阶段B检验单submitted（2项里1 ok 1 pending，另有1项na）
func seedMetricsFixtures(t *testing.T, env *testutil.TestEnv) {
	t.Helper()
	testutil.SeedTestProject(t, env.DB, "prj-m01", "PRJ-2026-0100", "展厅项目")
	testutil.SeedTestPhase(t, env.DB, "phase-a", "生产制作", 10)
	testutil.SeedTestPhase(t, env.DB, "phase-b", "现场安装", 20)

	base := time.Now().Add(-time.Hour)
	seedInspection(t, env, "insp-a1", "QCI-2026-0001", "phase-a", entity.InspectionStatusApproved, 80, base,
		[]string{entity.ItemStatusOK, entity.ItemStatusOK, entity.ItemStatusOK, entity.ItemStatusNotOK})
	seedInspection(t, env, "insp-b1", "QCI-2026-0002", "phase-b", entity.InspectionStatusSubmitted, 40, base.Add(time.Minute),
		[]string{entity.ItemStatusOK, entity.ItemStatusPending, entity.ItemStatusNA})
}

func seedInspection(t *testing.T, env *testutil.TestEnv, id, code, phaseID, status string, score float64, createdAt time.Time, itemStatuses []string) {
	t.Helper()
	inspection := &entity.Inspection{
		ID:          id,
		Code:        code,
		ProjectID:   "prj-m01",
		PhaseID:     phaseID,
		TemplateID:  "tpl-m01",
		InspectorID: "test-qc-001",
		Status:      status,
		Score:       score,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := env.DB.Create(inspection).Error; err != nil {
		t.Fatalf("seed inspection: %v", err)
	}
	for i, st := range itemStatuses {
		item := &entity.InspectionItem{
			ID:           id + "-item-" + string(rune('a'+i)),
			InspectionID: id,
			Title:        "检查项",
			Weight:       1,
			Status:       st,
			CreatedAt:    createdAt,
			UpdatedAt:    createdAt,
		}
		if err := env.DB.Create(item).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}
}

func TestProjectMetricsItemView(t *testing.T) {
	env := setupMetricsTest(t)
	seedMetricsFixtures(t, env)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/projects/prj-m01/metrics", nil, testutil.QCToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})

	// 有效项6（na剔除），完成5 → 83%；ok 4 → 67%
	if data["view"] != "items" {
		t.Fatalf("expected items view default, got %v", data["view"])
	}
	if data["overall_progress"].(float64) != 83 {
		t.Fatalf("expected progress 83, got %v", data["overall_progress"])
	}
	if data["average_score"].(float64) != 67 {
		t.Fatalf("expected average score 67, got %v", data["average_score"])
	}
	// 未决问题：仅submitted/needs_rework里的not_ok，approved里的不算
	if data["active_issues"].(float64) != 0 {
		t.Fatalf("expected 0 active issues, got %v", data["active_issues"])
	}

	perPhase := data["per_phase"].([]interface{})
	if len(perPhase) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(perPhase))
	}
	phaseA := perPhase[0].(map[string]interface{})
	if phaseA["status"] != entity.InspectionStatusApproved {
		t.Fatalf("expected phase A approved, got %v", phaseA["status"])
	}
	if phaseA["score"].(float64) != 80 {
		t.Fatalf("expected phase A score 80, got %v", phaseA["score"])
	}
}

func TestProjectMetricsPhaseView(t *testing.T) {
	env := setupMetricsTest(t)
	seedMetricsFixtures(t, env)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/projects/prj-m01/metrics?view=phases", nil, testutil.QCToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})

	// 2阶段里1个approved → 50%
	if data["overall_progress"].(float64) != 50 {
		t.Fatalf("expected progress 50, got %v", data["overall_progress"])
	}
	// 两张检验单得分均值 (80 + 40) / 2 = 60
	if data["average_score"].(float64) != 60 {
		t.Fatalf("expected average score 60, got %v", data["average_score"])
	}
}

func TestProjectMetricsZeroInspections(t *testing.T) {
	env := setupMetricsTest(t)
	testutil.SeedTestProject(t, env.DB, "prj-empty", "PRJ-2026-0101", "空项目")
	testutil.SeedTestPhase(t, env.DB, "phase-a", "生产制作", 10)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/projects/prj-empty/metrics", nil, testutil.QCToken())
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})

	if data["overall_progress"].(float64) != 0 || data["average_score"].(float64) != 0 {
		t.Fatalf("expected all-zero metrics, got %v", data)
	}
	phase := data["per_phase"].([]interface{})[0].(map[string]interface{})
	if phase["status"] != "not_started" {
		t.Fatalf("expected not_started phase, got %v", phase["status"])
	}
	if phase["score"] != nil {
		t.Fatalf("expected nil phase score, got %v", phase["score"])
	}
}

func TestProjectMetricsNotFound(t *testing.T) {
	env := setupMetricsTest(t)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/projects/nope/metrics", nil, testutil.QCToken())
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDashboardSummaryAndCaching(t *testing.T) {
	env := setupMetricsTest(t)
	seedMetricsFixtures(t, env)
	token := testutil.QCToken()

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/dashboard/summary", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})

	if data["total_projects"].(float64) != 1 {
		t.Fatalf("expected 1 project, got %v", data["total_projects"])
	}
	if data["pending_review"].(float64) != 1 {
		t.Fatalf("expected 1 pending review, got %v", data["pending_review"])
	}

	// 缓存生效：新增项目后TTL内的响应不变
	testutil.SeedTestProject(t, env.DB, "prj-m02", "PRJ-2026-0102", "后加项目")
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/dashboard/summary", nil, token)
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["total_projects"].(float64) != 1 {
		t.Fatalf("expected cached total 1, got %v", data["total_projects"])
	}
}

func TestProjectSummaries(t *testing.T) {
	env := setupMetricsTest(t)
	seedMetricsFixtures(t, env)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/projects/summaries", nil, testutil.QCToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	summaries := testutil.ParseResponse(w)["data"].([]interface{})
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	row := summaries[0].(map[string]interface{})
	if row["inspection_count"].(float64) != 2 {
		t.Fatalf("expected 2 inspections, got %v", row["inspection_count"])
	}
	if row["overall_progress"].(float64) != 83 {
		t.Fatalf("expected progress 83, got %v", row["overall_progress"])
	}
}
