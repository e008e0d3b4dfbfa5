package app

import (
	"context"
	"edu_progress_backend/internal/catalog"
	"edu_progress_backend/internal/config"
	"edu_progress_backend/internal/controller"
	"edu_progress_backend/internal/event"
	"edu_progress_backend/internal/progress"
	"edu_progress_backend/internal/repository"
	"edu_progress_backend/internal/scheduler"
	"edu_progress_backend/internal/service"
	"edu_progress_backend/internal/util"
	"edu_progress_backend/pkg/configwatcher"
	"edu_progress_backend/pkg/database"
	"edu_progress_backend/pkg/logger"
	"edu_progress_backend/pkg/monitoring"
	"edu_progress_backend/pkg/security"
	"edu_progress_backend/pkg/tracing"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/v2/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressStore 进度快照存储，同时提供健康检查
type ProgressStore interface {
	progress.Store
	controller.Pinger
}

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	Mongo  *mongo.Client

	store     ProgressStore
	catalog   catalog.Catalog
	publisher event.Publisher
	storage   *service.StorageService
	services  *services
	limiter   *security.Limiter
	scheduler *scheduler.Scheduler
	tracer    *sdktrace.TracerProvider
	checks    []controller.HealthCheck

	configCallbacks []func(*config.Config)
	stopWatcher     context.CancelFunc
}

type services struct {
	sessions *service.SessionRegistry
	progress *service.ProgressService
	export   *service.ExportService
}

type controllers struct {
	progress *controller.ProgressController
	catalog  *controller.CatalogController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// progressOptions 把配置转换为进度规则参数
func progressOptions(cfg *config.Config) progress.Options {
	p := cfg.Progress
	return progress.Options{
		PassingScore:         p.PassingScore,
		QuizPassingScore:     p.QuizPassingScore,
		QuizInterval:         p.QuizInterval,
		QuizGate:             p.QuizGate,
		DefaultTotalPages:    p.DefaultTotalPages,
		DefaultTotalChapters: p.DefaultTotalChapters,
		ChaptersPerSemester:  p.ChaptersPerSemester,
		MaxTestAttempts:      p.MaxTestAttempts,
	}
}

func (a *App) needsDB() bool {
	return a.Config.Store.Type == util.StoreMySQL || a.Config.Catalog.Source == "database"
}

func (a *App) initStore() error {
	cfg := a.Config
	switch cfg.Store.Type {
	case util.StoreRedis:
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		a.Redis = rdb
		a.store = repository.NewRedisProgressStore(rdb, cfg.Store.KeyPrefix)
	case util.StoreMySQL:
		a.store = repository.NewGormProgressStore(a.DB)
	case util.StoreMongo:
		client, err := database.InitMongo(&cfg.Mongo)
		if err != nil {
			return fmt.Errorf("init mongo: %w", err)
		}
		a.Mongo = client
		collection := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		a.store = repository.NewMongoProgressStore(collection)
	case util.StoreMemory:
		logger.Log.Warn("Using in-memory progress store, progress is lost on restart")
		a.store = repository.NewMemoryProgressStore()
	default:
		return fmt.Errorf("unknown progress store type %q", cfg.Store.Type)
	}

	a.checks = append(a.checks, controller.HealthCheck{Name: "store", Pinger: a.store})
	return nil
}

// initCatalog 按配置加载目录。database 来源在表为空时用目录文件初始化
func (a *App) initCatalog() error {
	cfg := a.Config.Catalog

	var fileSubjects *catalog.Static
	if cfg.File != "" {
		static, err := catalog.LoadFile(cfg.File)
		switch {
		case err == nil:
			fileSubjects = static
		case errors.Is(err, os.ErrNotExist):
			logger.Log.Warn("Catalog file not found", zap.String("file", cfg.File))
		default:
			return err
		}
	}

	var cat *catalog.Static
	switch cfg.Source {
	case "database":
		repo := repository.NewCatalogRepository(a.DB)
		if fileSubjects != nil {
			seeded, err := repo.Seed(fileSubjects.Subjects())
			if err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}
			if seeded {
				logger.Log.Info("Catalog tables seeded from file", zap.String("file", cfg.File))
			}
		}
		loaded, err := repo.Load()
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		cat = loaded
		a.checks = append(a.checks, controller.HealthCheck{Name: "database", Pinger: repo})
	default:
		cat = fileSubjects
	}

	if cat == nil || len(cat.Subjects()) == 0 {
		cat = catalog.Default(cfg.Subjects, a.Config.Progress.DefaultTotalPages)
	}
	a.catalog = cat

	logger.Log.Info("Catalog loaded",
		zap.String("source", cfg.Source),
		zap.Int("subjects", len(cat.Subjects())))
	return nil
}

// assemble 在基础设施就绪后构建服务、控制器和路由
func (a *App) assemble() {
	cfg := a.Config

	sessions := service.NewSessionRegistry(a.store, a.catalog, progressOptions(cfg), cfg.Progress.TimerFlushEvery)
	a.services = &services{
		sessions: sessions,
		progress: service.NewProgressService(sessions, a.publisher),
		export:   service.NewExportService(sessions, a.storage),
	}

	c := &controllers{
		progress: controller.NewProgressController(a.services.progress, a.services.export),
		catalog:  controller.NewCatalogController(a.catalog),
		health:   controller.NewHealthController(a.checks...),
	}

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	a.limiter = security.NewLimiter(cfg.RateLimit.MaxRequests, window)

	monitoring.Init()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	a.setupMiddlewares(router)
	a.registerRoutes(router, c)
	a.Router = router

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetMode(newCfg.Server.Mode)
		sessions.SetOptions(progressOptions(newCfg))
	})
}

func (a *App) setupMiddlewares(router *gin.Engine) {
	router.Use(security.CORS(a.Config.CORS.AllowedOrigins))
	router.Use(security.Secure())

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks() error {
	a.scheduler = scheduler.New()
	err := a.scheduler.Start(
		scheduler.Job{
			Name:  "evict-idle-sessions",
			Every: time.Minute,
			Run:   func() { a.services.sessions.EvictIdle(a.Config.SessionIdle()) },
		},
		scheduler.Job{
			Name:  "sweep-rate-limiter",
			Every: time.Minute,
			Run:   func() { a.limiter.Sweep() },
		},
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatcher = cancel
	go func() {
		err := configwatcher.WatchConfig(ctx, a.Config.Path, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
	return nil
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	app := &App{Config: cfg}

	if app.needsDB() || cfg.MigrateOnly {
		db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		app.DB = db
	}

	if cfg.MigrateOnly {
		if cfg.Catalog.Source == "database" {
			if err := app.initCatalog(); err != nil {
				return nil, err
			}
		}
		return app, nil
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}
	if err := app.initCatalog(); err != nil {
		return nil, err
	}

	publisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		return nil, fmt.Errorf("init event publisher: %w", err)
	}
	app.publisher = publisher

	storage, err := service.NewStorageService(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	app.storage = storage

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("edu-progress", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		app.tracer = tp
	}

	app.assemble()

	if cfg.Storage.Type == util.StorageLocal {
		app.Router.Static("/uploads", cfg.Storage.LocalPath)
	}

	if err := app.startBackgroundTasks(); err != nil {
		return nil, fmt.Errorf("start scheduler: %w", err)
	}
	return app, nil
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close 停止后台任务，把计时器里的剩余时长写回，再关闭外部连接
func (a *App) Close(ctx context.Context) {
	if a.stopWatcher != nil {
		a.stopWatcher()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.services != nil {
		a.services.sessions.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logger.Log.Error("Failed to close event publisher", zap.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.Mongo != nil {
		a.Mongo.Disconnect(ctx)
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	logger.Log.Sync()
}
