package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bitfantasy/studioqc/internal/config"
	"github.com/bitfantasy/studioqc/internal/middleware"
	"github.com/bitfantasy/studioqc/internal/qc/cache"
	"github.com/bitfantasy/studioqc/internal/qc/entity"
	"github.com/bitfantasy/studioqc/internal/qc/handler"
	"github.com/bitfantasy/studioqc/internal/qc/repository"
	"github.com/bitfantasy/studioqc/internal/qc/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	zapLogger.Info("Starting studio-qc service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Client{},
		&entity.Project{},
		&entity.Phase{},
		&entity.ChecklistTemplate{},
		&entity.ChecklistItemTemplate{},
		&entity.Inspection{},
		&entity.InspectionItem{},
		&entity.Signature{},
		&entity.Notification{},
		&entity.SystemSetting{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}

	// AutoMigrate不建复合索引，手动补
	migrationSQL := []string{
		"CREATE INDEX IF NOT EXISTS idx_qc_inspections_project_phase ON qc_inspections(project_id, phase_id)",
		"CREATE INDEX IF NOT EXISTS idx_qc_notifications_user_read ON qc_notifications(user_id, is_read)",
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			zapLogger.Warn("Migration warning", zap.String("sql", sql), zap.Error(err))
		}
	}
	zapLogger.Info("Database migration completed")

	seedDefaults(db, zapLogger)

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 仓库、缓存和服务
	repos := repository.NewRepositories(db)
	memCache := cache.New()
	services := service.NewServices(repos, rdb, memCache, cfg)

	if err := services.Attachment.EnsureBucket(context.Background()); err != nil {
		zapLogger.Warn("MinIO bucket check failed", zap.Error(err))
	}

	// Perfex定时同步
	var cronRunner *cron.Cron
	if services.PerfexSync != nil {
		cronRunner = cron.New()
		if _, err := cronRunner.AddFunc(cfg.Perfex.SyncCron, func() {
			if _, err := services.PerfexSync.SyncAll(context.Background()); err != nil {
				zapLogger.Error("Perfex sync failed", zap.Error(err))
			}
		}); err != nil {
			zapLogger.Error("Failed to schedule Perfex sync", zap.Error(err))
		} else {
			cronRunner.Start()
			zapLogger.Info("Perfex sync scheduled", zap.String("cron", cfg.Perfex.SyncCron))
		}
	}

	handlers := handler.NewHandlers(services, repos)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	if cronRunner != nil {
		cronRunner.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// seedDefaults 初始化默认阶段和admin账号（仅首次启动生效）
func seedDefaults(db *gorm.DB, zapLogger *zap.Logger) {
	defaultPhases := []string{"概念设计", "深化设计", "生产制作", "现场安装", "竣工验收"}
	for i, name := range defaultPhases {
		var count int64
		db.Model(&entity.Phase{}).Where("name = ?", name).Count(&count)
		if count == 0 {
			db.Create(&entity.Phase{
				ID:        uuid.New().String()[:32],
				Name:      name,
				SortOrder: (i + 1) * 10,
			})
		}
	}

	var userCount int64
	db.Model(&entity.User{}).Count(&userCount)
	if userCount == 0 {
		password := config.GetEnvOrDefault("ADMIN_INITIAL_PASSWORD", "admin123")
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			zapLogger.Warn("Failed to hash admin password", zap.Error(err))
			return
		}
		db.Create(&entity.User{
			ID:           uuid.New().String()[:32],
			Username:     "admin",
			PasswordHash: string(hash),
			Name:         "系统管理员",
			Role:         entity.RoleAdmin,
			Status:       "active",
		})
		zapLogger.Info("Seeded default admin user")
	}
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	api := r.Group("/api/v1")

	// 无需登录
	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	// 需要登录
	authed := api.Group("")
	authed.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		authed.POST("/auth/logout", h.Auth.Logout)
		authed.GET("/auth/me", h.Auth.Me)
		authed.POST("/auth/password", h.Auth.ChangePassword)

		// 用户管理（admin）
		users := authed.Group("/users", middleware.RequireRole("admin"))
		{
			users.GET("", h.Auth.ListUsers)
			users.POST("", h.Auth.CreateUser)
		}

		// 项目
		projects := authed.Group("/projects")
		{
			projects.GET("", h.Project.ListProjects)
			projects.GET("/summaries", h.Project.ListSummaries)
			projects.GET("/:id", h.Project.GetProject)
			projects.GET("/:id/metrics", h.Project.GetMetrics)
			projects.GET("/:id/export", h.Project.ExportReport)
			projects.POST("", middleware.RequireRole("qc"), h.Project.CreateProject)
			projects.PUT("/:id", middleware.RequireRole("qc"), h.Project.UpdateProject)
			projects.DELETE("/:id", middleware.RequireRole("admin"), h.Project.DeleteProject)
		}

		// 阶段目录
		authed.GET("/phases", h.Template.ListPhases)

		// 检查表模板
		templates := authed.Group("/templates")
		{
			templates.GET("", h.Template.ListTemplates)
			templates.GET("/:id", h.Template.GetTemplate)
			templates.POST("", middleware.RequireRole("admin"), h.Template.CreateTemplate)
			templates.POST("/:id/archive", middleware.RequireRole("admin"), h.Template.ArchiveTemplate)
			templates.DELETE("/:id", middleware.RequireRole("admin"), h.Template.DeleteTemplate)
			templates.POST("/:id/items", middleware.RequireRole("admin"), h.Template.AddItem)
			templates.PUT("/items/:itemId", middleware.RequireRole("admin"), h.Template.UpdateItem)
			templates.DELETE("/items/:itemId", middleware.RequireRole("admin"), h.Template.DeleteItem)
		}

		// 检验单
		inspections := authed.Group("/inspections")
		{
			inspections.GET("", h.Inspection.ListInspections)
			inspections.GET("/:id", h.Inspection.GetInspection)
			inspections.GET("/:id/export", h.Inspection.Export)
			inspections.POST("", middleware.RequireRole("qc"), h.Inspection.CreateInspection)
			inspections.PUT("/:id/items", middleware.RequireRole("qc"), h.Inspection.SaveDraft)
			inspections.PUT("/items/:itemId", middleware.RequireRole("qc"), h.Inspection.UpdateItem)
			inspections.POST("/:id/submit", middleware.RequireRole("qc"), h.Inspection.Submit)
			inspections.POST("/:id/review", middleware.RequireRole("admin"), h.Inspection.Review)
			inspections.POST("/:id/signatures", h.Inspection.AddSignature)
		}

		// 看板
		authed.GET("/dashboard/summary", h.Dashboard.GetSummary)

		// 通知
		notifications := authed.Group("/notifications")
		{
			notifications.GET("", h.Notification.ListNotifications)
			notifications.POST("/:id/read", h.Notification.MarkRead)
			notifications.POST("/read-all", h.Notification.MarkAllRead)
		}

		// 附件
		authed.POST("/attachments", middleware.RequireRole("qc"), h.Upload.Upload)
		authed.GET("/attachments/*objectName", h.Upload.Download)

		// Perfex同步
		authed.POST("/perfex/sync", middleware.RequireRole("admin"), h.Perfex.TriggerSync)
		authed.GET("/perfex/staff", middleware.RequireRole("admin"), h.Perfex.ListStaff)

		// 系统配置
		settings := authed.Group("/settings", middleware.RequireRole("admin"))
		{
			settings.GET("", h.Setting.ListSettings)
			settings.GET("/:key", h.Setting.GetSetting)
			settings.PUT("/:key", h.Setting.UpdateSetting)
		}
	}
}
