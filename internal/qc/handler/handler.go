package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bitfantasy/studioqc/internal/qc/repository"
	"github.com/bitfantasy/studioqc/internal/qc/service"
)

// Handlers QC处理器集合
type Handlers struct {
	Auth         *AuthHandler
	Project      *ProjectHandler
	Template     *TemplateHandler
	Inspection   *InspectionHandler
	Dashboard    *DashboardHandler
	Notification *NotificationHandler
	Upload       *UploadHandler
	Perfex       *PerfexHandler
	Setting      *SettingHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(services *service.Services, repos *repository.Repositories) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(services.Auth),
		Project:      NewProjectHandler(services.Project, services.Metrics, services.Export),
		Template:     NewTemplateHandler(services.Template),
		Inspection:   NewInspectionHandler(services.Inspection, services.Export),
		Dashboard:    NewDashboardHandler(services.Metrics),
		Notification: NewNotificationHandler(repos.Notification),
		Upload:       NewUploadHandler(services.Attachment),
		Perfex:       NewPerfexHandler(services.PerfexSync),
		Setting:      NewSettingHandler(repos.Setting),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 内部错误对客户端只回通用文案，详情进日志
func InternalError(c *gin.Context, message string, err error) {
	zap.L().Error(message,
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	Error(c, 50000, message)
}

// Fail 按错误类型映射响应：找不到→40400，校验/状态错误→40000，其余→50000
func Fail(c *gin.Context, err error, message string) {
	var vErr *service.ValidationError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, message)
	case errors.As(err, &vErr):
		BadRequest(c, vErr.Message)
	case errors.Is(err, service.ErrInvalidState):
		BadRequest(c, message+": "+err.Error())
	default:
		InternalError(c, message, err)
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetUserRole(c *gin.Context) string {
	return c.GetString("role")
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
