package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/studioqc/internal/qc/repository"
)

// SettingHandler 系统配置处理器，键值直读仓储
type SettingHandler struct {
	repo *repository.SettingRepository
}

func NewSettingHandler(repo *repository.SettingRepository) *SettingHandler {
	return &SettingHandler{repo: repo}
}

// ListSettings 全部配置项（admin）
// GET /api/v1/settings
func (h *SettingHandler) ListSettings(c *gin.Context) {
	settings, err := h.repo.All(c.Request.Context())
	if err != nil {
		InternalError(c, "获取配置失败", err)
		return
	}
	Success(c, settings)
}

// GetSetting 单个配置项
// GET /api/v1/settings/:key
func (h *SettingHandler) GetSetting(c *gin.Context) {
	key := c.Param("key")
	value, err := h.repo.Get(c.Request.Context(), key)
	if err != nil {
		Fail(c, err, "配置项不存在")
		return
	}
	Success(c, gin.H{"key": key, "value": value})
}

// UpdateSetting 写入配置项（admin）
// PUT /api/v1/settings/:key
func (h *SettingHandler) UpdateSetting(c *gin.Context) {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	key := c.Param("key")
	if err := h.repo.Set(c.Request.Context(), key, req.Value); err != nil {
		InternalError(c, "保存配置失败", err)
		return
	}
	Success(c, gin.H{"key": key, "value": req.Value})
}
