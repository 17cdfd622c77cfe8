package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/studioqc/internal/qc/repository"
	"github.com/bitfantasy/studioqc/internal/qc/service"
)

func failResponse(t *testing.T, err error, message string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)

	Fail(c, err, message)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	return w, resp
}

func TestFailHidesInternalDetail(t *testing.T) {
	w, resp := failResponse(t, errors.New("pq: connection refused"), "获取项目列表失败")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if resp.Code != 50000 {
		t.Fatalf("expected code 50000, got %d", resp.Code)
	}
	// 客户端只见通用文案，底层错误细节不外泄
	if resp.Message != "获取项目列表失败" {
		t.Fatalf("expected generic message, got %q", resp.Message)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Fatalf("internal detail leaked to client: %s", w.Body.String())
	}
}

func TestFailMapsNotFound(t *testing.T) {
	w, resp := failResponse(t, repository.ErrNotFound, "项目不存在")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if resp.Code != 40400 || resp.Message != "项目不存在" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestFailMapsValidationError(t *testing.T) {
	w, resp := failResponse(t, &service.ValidationError{Message: "2 mandatory items are still pending"}, "提交失败")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp.Message != "2 mandatory items are still pending" {
		t.Fatalf("expected validation message, got %q", resp.Message)
	}
}
