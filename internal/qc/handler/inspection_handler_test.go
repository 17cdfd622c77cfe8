package handler

import (
	"fmt"
	"net/http"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bitfantasy/studioqc/internal/qc/cache"
	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"github.com/bitfantasy/studioqc/internal/qc/repository"
	"github.com/bitfantasy/studioqc/internal/qc/service"
	"github.com/bitfantasy/studioqc/internal/qc/testutil"
)

func setupInspectionTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	svc := service.NewInspectionService(repos.Inspection, repos.Template, repos.Phase, repos.Project, repos.User, repos.Notification)
	svc.SetCache(cache.New())
	exportSvc := service.NewExportService(repos.Project, repos.Inspection, repos.Phase)
	h := NewInspectionHandler(svc, exportSvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/inspections", h.ListInspections)
	api.GET("/inspections/:id", h.GetInspection)
	api.POST("/inspections", h.CreateInspection)
	api.PUT("/inspections/:id/items", h.SaveDraft)
	api.POST("/inspections/:id/submit", h.Submit)
	api.POST("/inspections/:id/review", h.Review)
	api.POST("/inspections/:id/signatures", h.AddSignature)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// seedInspectionFixtures 准备检验员、评审人、项目、阶段和带2个检查项（1必检）的模板
func seedInspectionFixtures(t *testing.T, env *testutil.TestEnv) {
	t.Helper()
	testutil.SeedTestUser(t, env.DB, "test-qc-001", "Inspector", entity.RoleQC)
	testutil.SeedTestUser(t, env.DB, "test-admin-001", "Reviewer", entity.RoleAdmin)
	testutil.SeedTestProject(t, env.DB, "prj-001", "PRJ-2026-0001", "样板间项目")
	testutil.SeedTestPhase(t, env.DB, "phase-001", "深化设计", 10)
	testutil.SeedTestTemplate(t, env.DB, "tpl-001", "phase-001", []entity.ChecklistItemTemplate{
		{ID: "ti-001", Title: "图纸完整性", IsMandatory: true, Weight: 1, SortOrder: 1},
		{ID: "ti-002", Title: "材料清单核对", IsMandatory: false, Weight: 1, SortOrder: 2},
	})
}

func createTestInspection(t *testing.T, env *testutil.TestEnv, token string) map[string]interface{} {
	t.Helper()
	body := map[string]interface{}{
		"project_id":  "prj-001",
		"phase_id":    "phase-001",
		"template_id": "tpl-001",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return testutil.ParseResponse(w)["data"].(map[string]interface{})
}

// itemIDByTitle 从创建响应里按标题找检验项ID
func itemIDByTitle(t *testing.T, data map[string]interface{}, title string) string {
	t.Helper()
	for _, raw := range data["items"].([]interface{}) {
		item := raw.(map[string]interface{})
		if item["title"] == title {
			return item["id"].(string)
		}
	}
	t.Fatalf("item %q not found", title)
	return ""
}

func TestCreateInspectionSeedsItems(t *testing.T) {
	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)

	data := createTestInspection(t, env, testutil.QCToken())

	if data["status"] != entity.InspectionStatusDraft {
		t.Fatalf("expected draft status, got %v", data["status"])
	}
	if data["score"].(float64) != 0 {
		t.Fatalf("expected score 0, got %v", data["score"])
	}
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 seeded items, got %d", len(items))
	}
	first := items[0].(map[string]interface{})
	if first["status"] != entity.ItemStatusPending {
		t.Fatalf("expected pending item, got %v", first["status"])
	}
}

func TestCreateInspectionRejectsArchivedTemplate(t *testing.T) {
	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)

	if err := env.DB.Model(&entity.ChecklistTemplate{}).
		Where("id = ?", "tpl-001").
		Update("status", entity.TemplateStatusArchived).Error; err != nil {
		t.Fatalf("archive template: %v", err)
	}

	body := map[string]interface{}{
		"project_id":  "prj-001",
		"phase_id":    "phase-001",
		"template_id": "tpl-001",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections", body, testutil.QCToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for archived template, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateInspectionRequiresQCRole(t *testing.T) {
	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)
	testutil.SeedTestUser(t, env.DB, "viewer-001", "Viewer", entity.RoleViewer)

	body := map[string]interface{}{
		"project_id":  "prj-001",
		"phase_id":    "phase-001",
		"template_id": "tpl-001",
	}
	token := testutil.GenerateTestToken("viewer-001", "Viewer", entity.RoleViewer)
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections", body, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSaveDraftRecalculatesScore(t *testing.T) {
	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)
	token := testutil.QCToken()

	data := createTestInspection(t, env, token)
	inspectionID := data["id"].(string)

	body := map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": itemIDByTitle(t, data, "图纸完整性"), "status": entity.ItemStatusOK},
			{"id": itemIDByTitle(t, data, "材料清单核对"), "status": entity.ItemStatusNotOK},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/inspections/"+inspectionID+"/items", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	updated := testutil.ParseResponse(w)["data"].(map[string]interface{})
	// ok权重1 / 总权重2 = 50.0
	if updated["score"].(float64) != 50.0 {
		t.Fatalf("expected score 50, got %v", updated["score"])
	}
	if updated["status"] != entity.InspectionStatusDraft {
		t.Fatalf("expected status to stay draft, got %v", updated["status"])
	}
}

func TestSaveDraftRejectsInvalidStatus(t *testing.T) {
	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)
	token := testutil.QCToken()

	data := createTestInspection(t, env, token)
	inspectionID := data["id"].(string)

	body := map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": itemIDByTitle(t, data, "图纸完整性"), "status": "PASSED"},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/inspections/"+inspectionID+"/items", body, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	// 校验失败不落库：检验项保持pending
	var item entity.InspectionItem
	if err := env.DB.Where("title = ?", "图纸完整性").First(&item).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if item.Status != entity.ItemStatusPending {
		t.Fatalf("expected item to stay pending, got %s", item.Status)
	}
}

func TestMandatoryFailForcesNeedsRework(t *testing.T) {
	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)
	token := testutil.QCToken()

	data := createTestInspection(t, env, token)
	inspectionID := data["id"].(string)

	body := map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": itemIDByTitle(t, data, "图纸完整性"), "status": entity.ItemStatusNotOK},
			{"id": itemIDByTitle(t, data, "材料清单核对"), "status": entity.ItemStatusOK},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/inspections/"+inspectionID+"/items", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	updated := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if updated["status"] != entity.InspectionStatusNeedsRework {
		t.Fatalf("expected needs_rework, got %v", updated["status"])
	}
}

func TestSubmitBlockedByPendingMandatory(t *testing.T) {
	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)
	token := testutil.QCToken()

	data := createTestInspection(t, env, token)
	inspectionID := data["id"].(string)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections/"+inspectionID+"/submit", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	expected := fmt.Sprintf("%d mandatory items are still pending", 1)
	if resp["message"] != expected {
		t.Fatalf("expected message %q, got %v", expected, resp["message"])
	}
}

func TestSubmitAndReviewLifecycle(t *testing.T) {
	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)
	qcToken := testutil.QCToken()

	data := createTestInspection(t, env, qcToken)
	inspectionID := data["id"].(string)

	// 填完所有检验项
	fill := map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": itemIDByTitle(t, data, "图纸完整性"), "status": entity.ItemStatusOK},
			{"id": itemIDByTitle(t, data, "材料清单核对"), "status": entity.ItemStatusNA},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/inspections/"+inspectionID+"/items", fill, qcToken)
	if w.Code != http.StatusOK {
		t.Fatalf("save items: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 提交
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections/"+inspectionID+"/submit", nil, qcToken)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	submitted := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if submitted["status"] != entity.InspectionStatusSubmitted {
		t.Fatalf("expected submitted, got %v", submitted["status"])
	}
	if submitted["submitted_at"] == nil {
		t.Fatal("expected submitted_at to be set")
	}

	// 管理员收到待评审通知
	var submitNotifs int64
	env.DB.Model(&entity.Notification{}).
		Where("user_id = ? AND type = ?", "test-admin-001", "inspection_submitted").
		Count(&submitNotifs)
	if submitNotifs != 1 {
		t.Fatalf("expected 1 submit notification, got %d", submitNotifs)
	}

	// 重复提交被拒
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections/"+inspectionID+"/submit", nil, qcToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("resubmit: expected 400, got %d: %s", w.Code, w.Body.String())
	}

	// admin评审通过
	adminToken := testutil.AdminToken()
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections/"+inspectionID+"/review",
		map[string]interface{}{"decision": "approve", "comment": "合格"}, adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("review: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	reviewed := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if reviewed["status"] != entity.InspectionStatusApproved {
		t.Fatalf("expected approved, got %v", reviewed["status"])
	}
	if reviewed["reviewed_by"] == nil {
		t.Fatal("expected reviewed_by to be set")
	}

	// 检验员收到评审通知
	var count int64
	env.DB.Model(&entity.Notification{}).
		Where("user_id = ? AND type = ?", "test-qc-001", "inspection_reviewed").
		Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 review notification, got %d", count)
	}

	// 已评审的检验单是终态，不能再次提交重新打开
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections/"+inspectionID+"/submit", nil, qcToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("submit after approve: expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var current entity.Inspection
	if err := env.DB.First(&current, "id = ?", inspectionID).Error; err != nil {
		t.Fatalf("reload inspection: %v", err)
	}
	if current.Status != entity.InspectionStatusApproved {
		t.Fatalf("expected status to stay approved, got %s", current.Status)
	}
}

func TestSubmitSurvivesNotificationFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	prev := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	defer zap.ReplaceGlobals(prev)

	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)
	qcToken := testutil.QCToken()

	data := createTestInspection(t, env, qcToken)
	inspectionID := data["id"].(string)

	fill := map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": itemIDByTitle(t, data, "图纸完整性"), "status": entity.ItemStatusOK},
			{"id": itemIDByTitle(t, data, "材料清单核对"), "status": entity.ItemStatusOK},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/inspections/"+inspectionID+"/items", fill, qcToken)
	if w.Code != http.StatusOK {
		t.Fatalf("save items: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 通知表不可写时提交本身不受影响
	if err := env.DB.Exec("DROP TABLE qc_notifications").Error; err != nil {
		t.Fatalf("drop notifications table: %v", err)
	}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections/"+inspectionID+"/submit", nil, qcToken)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	submitted := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if submitted["status"] != entity.InspectionStatusSubmitted {
		t.Fatalf("expected submitted, got %v", submitted["status"])
	}

	if logs.FilterMessage("notify reviewer failed").Len() == 0 {
		t.Fatal("expected a warn log for the dropped notification")
	}
}

func TestRejectedInspectionCannotBeResubmitted(t *testing.T) {
	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)
	qcToken := testutil.QCToken()

	data := createTestInspection(t, env, qcToken)
	inspectionID := data["id"].(string)

	fill := map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": itemIDByTitle(t, data, "图纸完整性"), "status": entity.ItemStatusOK},
			{"id": itemIDByTitle(t, data, "材料清单核对"), "status": entity.ItemStatusOK},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/inspections/"+inspectionID+"/items", fill, qcToken)
	if w.Code != http.StatusOK {
		t.Fatalf("save items: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections/"+inspectionID+"/submit", nil, qcToken)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections/"+inspectionID+"/review",
		map[string]interface{}{"decision": "reject", "comment": "不合格"}, testutil.AdminToken())
	if w.Code != http.StatusOK {
		t.Fatalf("review: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	rejected := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if rejected["status"] != entity.InspectionStatusRejected {
		t.Fatalf("expected rejected, got %v", rejected["status"])
	}

	// rejected为终态，提交不能重新打开
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections/"+inspectionID+"/submit", nil, qcToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("submit after reject: expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var current entity.Inspection
	if err := env.DB.First(&current, "id = ?", inspectionID).Error; err != nil {
		t.Fatalf("reload inspection: %v", err)
	}
	if current.Status != entity.InspectionStatusRejected {
		t.Fatalf("expected status to stay rejected, got %s", current.Status)
	}
}

func TestReviewOnlyFromSubmitted(t *testing.T) {
	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)

	data := createTestInspection(t, env, testutil.QCToken())
	inspectionID := data["id"].(string)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections/"+inspectionID+"/review",
		map[string]interface{}{"decision": "approve"}, testutil.AdminToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAddSignature(t *testing.T) {
	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)
	token := testutil.QCToken()

	data := createTestInspection(t, env, token)
	inspectionID := data["id"].(string)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspections/"+inspectionID+"/signatures",
		map[string]interface{}{"role": "inspector"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	sig := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if sig["signer_name"] != "Inspector" {
		t.Fatalf("expected signer name from user record, got %v", sig["signer_name"])
	}
	if sig["approved"] != true {
		t.Fatalf("expected approved default true, got %v", sig["approved"])
	}
}

func TestListInspectionsFilters(t *testing.T) {
	env := setupInspectionTest(t)
	seedInspectionFixtures(t, env)
	token := testutil.QCToken()

	createTestInspection(t, env, token)
	createTestInspection(t, env, token)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/inspections?project_id=prj-001&status=draft", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)["data"].(map[string]interface{})
	items := resp["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 inspections, got %d", len(items))
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/inspections?status=approved", nil, token)
	resp = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if len(resp["items"].([]interface{})) != 0 {
		t.Fatal("expected no approved inspections")
	}
}

// 未登录访问被拒
func TestInspectionRoutesRequireAuth(t *testing.T) {
	env := setupInspectionTest(t)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/inspections", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
