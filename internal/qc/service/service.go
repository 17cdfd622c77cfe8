package service

import (
	"errors"

	"github.com/bitfantasy/studioqc/internal/config"
	"github.com/bitfantasy/studioqc/internal/qc/cache"
	"github.com/bitfantasy/studioqc/internal/qc/repository"
	"github.com/bitfantasy/studioqc/internal/shared/perfex"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

// ErrInvalidState 非法状态流转（如重复提交）
var ErrInvalidState = errors.New("invalid state transition")

// ValidationError 业务校验失败，携带待用户展示的细节
type ValidationError struct {
	Message             string `json:"message"`
	IncompleteMandatory int    `json:"incomplete_mandatory,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Services 服务集合
type Services struct {
	Auth       *AuthService
	Project    *ProjectService
	Template   *TemplateService
	Inspection *InspectionService
	Metrics    *MetricsService
	Export     *ExportService
	Attachment *AttachmentService
	PerfexSync *PerfexSyncService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, memCache *cache.Cache, cfg *config.Config) *Services {
	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			minioClient = nil
		}
	}

	// 初始化Perfex客户端
	var perfexClient *perfex.Client
	if cfg.Perfex.Enabled && cfg.Perfex.BaseURL != "" {
		perfexClient = perfex.NewClient(cfg.Perfex.BaseURL, cfg.Perfex.AuthToken)
	}

	metricsSvc := NewMetricsService(repos.Project, repos.Phase, memCache, cfg.Cache)
	inspectionSvc := NewInspectionService(repos.Inspection, repos.Template, repos.Phase, repos.Project, repos.User, repos.Notification)
	inspectionSvc.SetCache(memCache)

	exportSvc := NewExportService(repos.Project, repos.Inspection, repos.Phase)

	var perfexSyncSvc *PerfexSyncService
	if perfexClient != nil {
		perfexSyncSvc = NewPerfexSyncService(perfexClient, repos.Project, repos.Client, repos.User)
		perfexSyncSvc.SetExporter(exportSvc)
	}

	projectSvc := NewProjectService(repos.Project, memCache)
	if perfexSyncSvc != nil {
		projectSvc.SetPerfexSync(perfexSyncSvc)
	}
	inspectionSvc.SetPerfexSync(perfexSyncSvc)

	return &Services{
		Auth:       NewAuthService(repos.User, rdb, cfg),
		Project:    projectSvc,
		Template:   NewTemplateService(repos.Template, repos.Phase),
		Inspection: inspectionSvc,
		Metrics:    metricsSvc,
		Export:     exportSvc,
		Attachment: NewAttachmentService(minioClient, cfg.MinIO.Bucket),
		PerfexSync: perfexSyncSvc,
	}
}

// generateID 生成32位实体ID
func generateID() string {
	return uuid.New().String()[:32]
}
