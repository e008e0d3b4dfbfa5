package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig `mapstructure:"log"`
	Database  DatabaseConfig
	Redis     RedisConfig
	Mongo     MongoConfig    `mapstructure:"mongo"`
	RabbitMQ  RabbitMQConfig `mapstructure:"rabbitmq"`
	Store     StoreConfig    `mapstructure:"store"`
	Storage   StorageConfig
	Catalog   CatalogConfig  `mapstructure:"catalog"`
	Progress  ProgressConfig `mapstructure:"progress"`
	JWT       JWTConfig
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	MigrateOnly bool   `mapstructure:"-"`
	Path        string `mapstructure:"-"` // 配置文件所在目录
}

type ServerConfig struct {
	Port string
	Mode string
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	PoolSize   uint64 `mapstructure:"pool_size"`
}

type RabbitMQConfig struct {
	URI      string `mapstructure:"uri"`
	Exchange string `mapstructure:"exchange"`
}

// StoreConfig 进度快照的存储后端：redis / mysql / mongo / memory
type StoreConfig struct {
	Type      string `mapstructure:"type"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

// CatalogConfig 章节目录来源：file（YAML）或 database
type CatalogConfig struct {
	Source   string   `mapstructure:"source"`
	File     string   `mapstructure:"file"`
	Subjects []string `mapstructure:"subjects"` // 目录为空时按约定布局生成的学科
}

type ProgressConfig struct {
	PassingScore         int  `mapstructure:"passing_score"`
	QuizPassingScore     int  `mapstructure:"quiz_passing_score"`
	QuizInterval         int  `mapstructure:"quiz_interval"`
	QuizGate             bool `mapstructure:"quiz_gate"`
	DefaultTotalPages    int  `mapstructure:"default_total_pages"`
	DefaultTotalChapters int  `mapstructure:"default_total_chapters"`
	ChaptersPerSemester  int  `mapstructure:"chapters_per_semester"`
	MaxTestAttempts      int  `mapstructure:"max_test_attempts"`
	TimerFlushEvery      int  `mapstructure:"timer_flush_every"`
	SessionIdleMinutes   int  `mapstructure:"session_idle_minutes"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)

	v.SetDefault("mongo.database", "edu_progress")
	v.SetDefault("mongo.collection", "progress_snapshots")
	v.SetDefault("mongo.pool_size", 20)

	v.SetDefault("rabbitmq.exchange", "progress.events")

	v.SetDefault("store.type", "redis")
	v.SetDefault("store.key_prefix", "progress:learner:")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")

	v.SetDefault("catalog.source", "file")
	v.SetDefault("catalog.file", "configs/catalog.yaml")

	v.SetDefault("progress.passing_score", 80)
	v.SetDefault("progress.quiz_passing_score", 80)
	v.SetDefault("progress.quiz_interval", 5)
	v.SetDefault("progress.quiz_gate", true)
	v.SetDefault("progress.default_total_pages", 20)
	v.SetDefault("progress.default_total_chapters", 10)
	v.SetDefault("progress.chapters_per_semester", 5)
	v.SetDefault("progress.max_test_attempts", 0)
	v.SetDefault("progress.timer_flush_every", 10)
	v.SetDefault("progress.session_idle_minutes", 30)

	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
}

func LoadConfig(path string) (*Config, error) {
	// .env 只用于本地开发，不存在时忽略
	if err := godotenv.Load(filepath.Join(path, "..", ".env")); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("EDU_PROGRESS")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Mongo / RabbitMQ
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("rabbitmq.uri", "RABBITMQ_URI")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("store.type", "PROGRESS_STORE")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}

	switch c.Store.Type {
	case "redis", "mysql", "mongo", "memory":
	default:
		return fmt.Errorf("unknown progress store type %q", c.Store.Type)
	}

	switch c.Catalog.Source {
	case "file", "database":
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}

	if c.Progress.PassingScore < 0 || c.Progress.PassingScore > 100 {
		return fmt.Errorf("progress.passing_score must be within 0..100, got %d", c.Progress.PassingScore)
	}
	return nil
}

// SessionIdle 会话闲置多久后被回收
func (c *Config) SessionIdle() time.Duration {
	if c.Progress.SessionIdleMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Progress.SessionIdleMinutes) * time.Minute
}
